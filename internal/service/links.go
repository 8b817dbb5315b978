package service

import (
	"UTMTrack-Backend/internal/config"
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// CreateLinkRequest параметры новой UTM-ссылки
type CreateLinkRequest struct {
	VideoID           string `json:"video_id" validate:"required,max=255"`
	DestinationURL    string `json:"destination_url" validate:"required,http_url,max=2048"`
	UTMSource         string `json:"utm_source" validate:"omitempty,max=100"`
	UTMMedium         string `json:"utm_medium" validate:"omitempty,max=100"`
	UTMCampaign       string `json:"utm_campaign" validate:"omitempty,max=255"`
	UTMContent        string `json:"utm_content" validate:"omitempty,max=255"`
	UTMTerm           string `json:"utm_term" validate:"omitempty,max=255"`
	TrackingType      string `json:"tracking_type" validate:"omitempty,oneof=server_redirect direct_posthog direct_ga4"`
	PrettySlug        string `json:"pretty_slug" validate:"omitempty,min=3,max=100,slug"`
	ForwardingEnabled *bool  `json:"forwarding_enabled"`
}

// UpdateLinkRequest частичное обновление ссылки; nil означает "не менять"
type UpdateLinkRequest struct {
	DestinationURL    *string `json:"destination_url" validate:"omitempty,http_url,max=2048"`
	UTMSource         *string `json:"utm_source" validate:"omitempty,min=1,max=100"`
	UTMMedium         *string `json:"utm_medium" validate:"omitempty,min=1,max=100"`
	UTMCampaign       *string `json:"utm_campaign" validate:"omitempty,max=255"`
	UTMContent        *string `json:"utm_content" validate:"omitempty,max=255"`
	UTMTerm           *string `json:"utm_term" validate:"omitempty,max=255"`
	TrackingType      *string `json:"tracking_type" validate:"omitempty,oneof=server_redirect direct_posthog direct_ga4"`
	PrettySlug        *string `json:"pretty_slug" validate:"omitempty,min=3,max=100,slug"`
	IsActive          *bool   `json:"is_active"`
	ForwardingEnabled *bool   `json:"forwarding_enabled"`
}

// LinkService управляет жизненным циклом UTM-ссылок и отчетами по ним
type LinkService struct {
	storage  repository.Storage
	cfg      *config.Tracker
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func NewLinkService(storage repository.Storage, cfg *config.Tracker, log *zap.Logger) *LinkService {
	return &LinkService{
		storage:  storage,
		cfg:      cfg,
		validate: newValidator(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BaseURL публичный адрес сервиса для коротких ссылок
func (s *LinkService) BaseURL() string {
	return s.cfg.BaseURL
}

// CreateLink создает ссылку: подставляет UTM по умолчанию, строит tracking_url и slug
func (s *LinkService) CreateLink(ctx context.Context, req CreateLinkRequest) (*domain.TrackingLink, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fromValidator(err)
	}

	link := &domain.TrackingLink{
		VideoID:           req.VideoID,
		DestinationURL:    req.DestinationURL,
		UTMSource:         orDefault(req.UTMSource, s.cfg.DefaultSource),
		UTMMedium:         orDefault(req.UTMMedium, s.cfg.DefaultMedium),
		UTMCampaign:       domain.StringPtr(req.UTMCampaign),
		UTMContent:        domain.StringPtr(orDefault(req.UTMContent, req.VideoID)),
		UTMTerm:           domain.StringPtr(req.UTMTerm),
		TrackingType:      domain.TrackingType(orDefault(req.TrackingType, string(domain.TrackingServerRedirect))),
		IsActive:          true,
		ForwardingEnabled: req.ForwardingEnabled == nil || *req.ForwardingEnabled,
	}

	if err := link.RegenerateURLs(); err != nil {
		return nil, newValidationError("destination_url", err.Error())
	}

	if err := s.assignSlug(ctx, s.storage, link, req.PrettySlug); err != nil {
		return nil, err
	}

	if err := s.storage.CreateLink(ctx, link); err != nil {
		return nil, err
	}

	s.log.Info("utm link created",
		zap.Int64("link_id", link.ID),
		zap.String("video_id", link.VideoID),
		zap.String("tracking_type", string(link.TrackingType)))

	return link, nil
}

// assignSlug назначает slug: пользовательский должен быть свободен,
// сгенерированный получает числовой суффикс при совпадении
func (s *LinkService) assignSlug(ctx context.Context, storage repository.Storage, link *domain.TrackingLink, custom string) error {
	if custom != "" {
		exists, err := storage.SlugExists(ctx, custom)
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrSlugExists
		}
		link.PrettySlug = &custom
		return nil
	}

	slug, err := uniqueSlug(ctx, storage, GenerateSlug(link.DestinationURL, link.VideoID))
	if err != nil {
		return err
	}
	link.PrettySlug = &slug
	return nil
}

// GetLink возвращает ссылку по ID
func (s *LinkService) GetLink(ctx context.Context, id int64) (*domain.TrackingLink, error) {
	return s.storage.GetLink(ctx, id)
}

// ListLinks возвращает ссылки со статистикой кликов
func (s *LinkService) ListLinks(ctx context.Context, filter domain.LinkFilter) ([]domain.LinkStats, error) {
	if filter.Limit < 1 || filter.Limit > MaxListLimit {
		return nil, newValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxListLimit))
	}
	if filter.Offset < 0 {
		return nil, newValidationError("offset", "must not be negative")
	}
	return s.storage.ListLinks(ctx, filter)
}

// UpdateLink применяет изменения и пересчитывает URL
func (s *LinkService) UpdateLink(ctx context.Context, id int64, req UpdateLinkRequest) (*domain.TrackingLink, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fromValidator(err)
	}

	link, err := s.storage.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DestinationURL != nil {
		link.DestinationURL = *req.DestinationURL
	}
	if req.UTMSource != nil {
		link.UTMSource = *req.UTMSource
	}
	if req.UTMMedium != nil {
		link.UTMMedium = *req.UTMMedium
	}
	if req.UTMCampaign != nil {
		link.UTMCampaign = domain.StringPtr(*req.UTMCampaign)
	}
	if req.UTMContent != nil {
		link.UTMContent = domain.StringPtr(*req.UTMContent)
	}
	if req.UTMTerm != nil {
		link.UTMTerm = domain.StringPtr(*req.UTMTerm)
	}
	if req.TrackingType != nil {
		link.TrackingType = domain.TrackingType(*req.TrackingType)
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}
	if req.ForwardingEnabled != nil {
		link.ForwardingEnabled = *req.ForwardingEnabled
	}
	if req.PrettySlug != nil && (link.PrettySlug == nil || *link.PrettySlug != *req.PrettySlug) {
		exists, err := s.storage.SlugExists(ctx, *req.PrettySlug)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, repository.ErrSlugExists
		}
		slug := *req.PrettySlug
		link.PrettySlug = &slug
	}

	if err := link.RegenerateURLs(); err != nil {
		return nil, newValidationError("destination_url", err.Error())
	}

	if err := s.storage.UpdateLink(ctx, link); err != nil {
		return nil, err
	}

	s.log.Info("utm link updated", zap.Int64("link_id", link.ID))
	return link, nil
}

// DeleteLink удаляет ссылку вместе с кликами
func (s *LinkService) DeleteLink(ctx context.Context, id int64) error {
	if err := s.storage.DeleteLink(ctx, id); err != nil {
		return err
	}
	s.log.Info("utm link deleted", zap.Int64("link_id", id))
	return nil
}

// LinkAnalytics собирает статистику ссылки за последние daysBack дней
func (s *LinkService) LinkAnalytics(ctx context.Context, id int64, daysBack int) (*domain.LinkAnalytics, error) {
	if err := ValidateDaysBack("days_back", daysBack); err != nil {
		return nil, err
	}

	link, err := s.storage.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}

	total, err := s.storage.CountClicks(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	since := s.now().AddDate(0, 0, -daysBack)
	recent, err := s.storage.CountClicks(ctx, id, &since)
	if err != nil {
		return nil, err
	}

	times, err := s.storage.ClickTimes(ctx, id, since)
	if err != nil {
		return nil, err
	}

	byDevice, err := s.storage.GetClicksByDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.LinkAnalytics{
		LinkID:          link.ID,
		TotalClicks:     total,
		RecentClicks:    recent,
		DaysBack:        daysBack,
		DailyClicks:     dailyBuckets(times),
		ClicksByDevice:  byDevice,
		ExternalEvents:  link.ExternalEvents,
		ExternalUsers:   link.ExternalUsers,
		ExternalSyncAt:  link.ExternalLastSyncAt,
		TrackingType:    link.TrackingType,
		ForwardingState: link.ForwardingEnabled,
	}, nil
}

// dailyBuckets группирует клики по календарным дням UTC, по возрастанию даты
func dailyBuckets(times []time.Time) []domain.DailyClicks {
	counts := make(map[string]int64)
	for _, t := range times {
		counts[t.UTC().Format(time.DateOnly)]++
	}

	days := make([]domain.DailyClicks, 0, len(counts))
	for date, clicks := range counts {
		days = append(days, domain.DailyClicks{Date: date, Clicks: clicks})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// IsNotFound сообщает, означает ли ошибка отсутствующую сущность
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrLinkNotFound) ||
		errors.Is(err, repository.ErrVideoNotFound) ||
		errors.Is(err, ErrNoActiveVideos)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
