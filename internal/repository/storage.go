package repository

import (
	"UTMTrack-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrLinkNotFound  = errors.New("utm link not found")
	ErrVideoNotFound = errors.New("video not found")
	ErrSlugExists    = errors.New("pretty slug already exists")
)

type Storage interface {
	// Link methods
	CreateLink(ctx context.Context, link *domain.TrackingLink) error
	GetLink(ctx context.Context, id int64) (*domain.TrackingLink, error)
	GetLinkBySlug(ctx context.Context, slug string) (*domain.TrackingLink, error)
	UpdateLink(ctx context.Context, link *domain.TrackingLink) error
	FindLinkByVideoAndDestination(ctx context.Context, videoID, destinationURL string) (*domain.TrackingLink, error)
	ListLinks(ctx context.Context, filter domain.LinkFilter) ([]domain.LinkStats, error)
	DeleteLink(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Click methods
	RecordClick(ctx context.Context, click *domain.ClickEvent) error
	CountClicks(ctx context.Context, linkID int64, since *time.Time) (int64, error)
	ClickTimes(ctx context.Context, linkID int64, since time.Time) ([]time.Time, error)
	GetClicksByDevice(ctx context.Context, linkID int64) (map[string]int64, error)
	CountClicksByVideo(ctx context.Context, videoID string, since *time.Time) (map[int64]int64, error)

	// Video methods
	UpsertVideo(ctx context.Context, video *domain.Video) error
	GetVideo(ctx context.Context, videoID string) (*domain.Video, error)
	ListVideos(ctx context.Context, activeOnly bool) ([]*domain.Video, error)

	// Conversion methods
	CreateConversion(ctx context.Context, conv *domain.ConversionEvent) error
	ListConversions(ctx context.Context, filter domain.ConversionFilter) ([]domain.ConversionEvent, error)
	ConversionsByType(ctx context.Context, since time.Time) ([]domain.ConversionTypeStats, error)
	ConversionsBySource(ctx context.Context, since time.Time) ([]domain.ConversionSourceStats, error)

	// External analytics
	UpdateExternalStats(ctx context.Context, linkID int64, stats domain.ExternalStats) error
	ForwardingSummary(ctx context.Context) (*domain.ForwardingSummary, error)

	// WithinTx выполняет fn в одной транзакции: ошибка fn откатывает все изменения
	WithinTx(ctx context.Context, fn func(tx Storage) error) error
}
