package service

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/repository"
	"context"
	"errors"

	"go.uber.org/zap"
)

// BulkGenerateRequest параметры массовой генерации ссылок для всех активных видео
type BulkGenerateRequest struct {
	DestinationURL string `json:"destination_url" validate:"required,http_url,max=2048"`
	UTMCampaign    string `json:"utm_campaign" validate:"omitempty,max=255"`
	UTMSource      string `json:"utm_source" validate:"omitempty,max=100"`
	UTMMedium      string `json:"utm_medium" validate:"omitempty,max=100"`
	TrackingType   string `json:"tracking_type" validate:"omitempty,oneof=server_redirect direct_posthog direct_ga4"`
}

// BulkLink результат для одного видео
type BulkLink struct {
	*domain.TrackingLink
	VideoTitle   string `json:"video_title"`
	ShareableURL string `json:"shareable_url"`
	Created      bool   `json:"created"`
}

// BulkResult итог массовой генерации
type BulkResult struct {
	Total   int        `json:"total_links"`
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Links   []BulkLink `json:"links"`
}

// BulkGenerate создает или обновляет ссылку (video_id, destination_url) для каждого
// активного видео. Все изменения выполняются в одной транзакции.
func (s *LinkService) BulkGenerate(ctx context.Context, req BulkGenerateRequest) (*BulkResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fromValidator(err)
	}

	params := domain.UTMParams{
		Source:   orDefault(req.UTMSource, s.cfg.DefaultSource),
		Medium:   orDefault(req.UTMMedium, s.cfg.DefaultMedium),
		Campaign: req.UTMCampaign,
	}
	trackingType := domain.TrackingType(orDefault(req.TrackingType, string(domain.TrackingServerRedirect)))

	result := &BulkResult{Links: []BulkLink{}}

	err := s.storage.WithinTx(ctx, func(tx repository.Storage) error {
		videos, err := tx.ListVideos(ctx, true)
		if err != nil {
			return err
		}
		if len(videos) == 0 {
			return ErrNoActiveVideos
		}

		for _, video := range videos {
			link, created, err := s.upsertBulkLink(ctx, tx, video, req.DestinationURL, params, trackingType)
			if err != nil {
				return err
			}

			result.Links = append(result.Links, BulkLink{
				TrackingLink: link,
				VideoTitle:   video.Title,
				ShareableURL: link.ShareableURL(s.cfg.BaseURL),
				Created:      created,
			})
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("bulk generation rolled back", zap.String("destination_url", req.DestinationURL), zap.Error(err))
		return nil, err
	}

	result.Total = len(result.Links)
	s.log.Info("bulk generation completed",
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))

	return result, nil
}

func (s *LinkService) upsertBulkLink(ctx context.Context, tx repository.Storage, video *domain.Video, destination string, params domain.UTMParams, trackingType domain.TrackingType) (*domain.TrackingLink, bool, error) {
	link, err := tx.FindLinkByVideoAndDestination(ctx, video.VideoID, destination)
	created := errors.Is(err, repository.ErrLinkNotFound)
	if err != nil && !created {
		return nil, false, err
	}
	if created {
		link = &domain.TrackingLink{
			VideoID:           video.VideoID,
			DestinationURL:    destination,
			IsActive:          true,
			ForwardingEnabled: true,
		}
	}

	link.UTMSource = params.Source
	link.UTMMedium = params.Medium
	link.UTMCampaign = domain.StringPtr(params.Campaign)
	link.UTMContent = domain.StringPtr(video.VideoID)
	link.TrackingType = trackingType

	if err := link.RegenerateURLs(); err != nil {
		return nil, false, newValidationError("destination_url", err.Error())
	}

	if !created {
		if err := tx.UpdateLink(ctx, link); err != nil {
			return nil, false, err
		}
		return link, false, nil
	}

	if err := s.assignSlug(ctx, tx, link, ""); err != nil {
		return nil, false, err
	}
	if err := tx.CreateLink(ctx, link); err != nil {
		return nil, false, err
	}
	return link, true, nil
}
