package service

import (
	"UTMTrack-Backend/internal/domain"
	"context"
	"time"

	"go.uber.org/zap"
)

// UpsertVideoRequest данные видео для каталога
type UpsertVideoRequest struct {
	Title       string     `json:"title" validate:"required,max=500"`
	ViewCount   int64      `json:"view_count" validate:"min=0"`
	PublishedAt *time.Time `json:"published_at"`
	IsActive    *bool      `json:"is_active"`
}

// UpsertVideo создает или обновляет видео в каталоге
func (s *LinkService) UpsertVideo(ctx context.Context, videoID string, req UpsertVideoRequest) (*domain.Video, error) {
	if videoID == "" || len(videoID) > 255 {
		return nil, newValidationError("video_id", "must be 1 to 255 characters")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fromValidator(err)
	}

	video := &domain.Video{
		VideoID:     videoID,
		Title:       req.Title,
		ViewCount:   req.ViewCount,
		PublishedAt: req.PublishedAt,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.storage.UpsertVideo(ctx, video); err != nil {
		return nil, err
	}

	s.log.Info("video upserted", zap.String("video_id", videoID), zap.Int64("view_count", video.ViewCount))
	return video, nil
}

// ListVideos возвращает каталог видео
func (s *LinkService) ListVideos(ctx context.Context, activeOnly bool) ([]*domain.Video, error) {
	return s.storage.ListVideos(ctx, activeOnly)
}
