package service

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/metrics"
	"UTMTrack-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	DefaultConversionDays = 30
	ConversionListLimit   = 100
	MaxBulkConversions    = 1000

	conversionDataSource = "api"
)

// ConversionRequest событие конверсии от сайта или бэкенда клиента
type ConversionRequest struct {
	EventType  string                 `json:"event_type" validate:"required,max=100"`
	EventValue float64                `json:"event_value" validate:"gte=0"`
	LinkID     *int64                 `json:"utm_link_id,omitempty" validate:"omitempty,gt=0"`
	UserID     string                 `json:"user_id,omitempty" validate:"max=100"`
	Properties map[string]interface{} `json:"additional_properties,omitempty"`
}

// BulkConversionResult итог пакетной записи
type BulkConversionResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ConversionSink принимает сохраненные конверсии для пересылки во внешнюю аналитику.
// SubmitConversion не должен блокироваться.
type ConversionSink interface {
	SubmitConversion(conv *domain.ConversionEvent, link *domain.TrackingLink) error
}

// ConversionService записывает конверсии, атрибутирует их ссылкам и строит сводки
type ConversionService struct {
	storage  repository.Storage
	sink     ConversionSink
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func NewConversionService(storage repository.Storage, sink ConversionSink, log *zap.Logger) *ConversionService {
	return &ConversionService{
		storage:  storage,
		sink:     sink,
		validate: newValidator(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Record сохраняет одну конверсию. Указанная, но несуществующая ссылка дает ErrLinkNotFound.
func (s *ConversionService) Record(ctx context.Context, req ConversionRequest, sessionID string) (*domain.ConversionEvent, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fromValidator(err)
	}

	var link *domain.TrackingLink
	if req.LinkID != nil {
		var err error
		link, err = s.storage.GetLink(ctx, *req.LinkID)
		if err != nil {
			return nil, err
		}
	}

	conv := s.newConversion(req, link, sessionID)
	if err := s.storage.CreateConversion(ctx, conv); err != nil {
		return nil, err
	}
	s.recorded(conv, link)

	s.log.Info("conversion recorded",
		zap.Int64("conversion_id", conv.ID),
		zap.String("event_type", conv.EventType),
		zap.Bool("attributed", link != nil))
	return conv, nil
}

// RecordBulk сохраняет пакет в одной транзакции. Неизвестные ссылки не
// ошибка: такие конверсии записываются без атрибуции.
func (s *ConversionService) RecordBulk(ctx context.Context, reqs []ConversionRequest, sessionID string) (*BulkConversionResult, error) {
	if len(reqs) == 0 {
		return nil, newValidationError("conversions", "must contain at least one event")
	}
	if len(reqs) > MaxBulkConversions {
		return nil, newValidationError("conversions", fmt.Sprintf("must contain at most %d events", MaxBulkConversions))
	}
	for i := range reqs {
		if err := s.validate.Struct(reqs[i]); err != nil {
			return nil, indexed(i, fromValidator(err))
		}
	}

	type saved struct {
		conv *domain.ConversionEvent
		link *domain.TrackingLink
	}
	batch := make([]saved, 0, len(reqs))

	err := s.storage.WithinTx(ctx, func(tx repository.Storage) error {
		batch = batch[:0]
		links := make(map[int64]*domain.TrackingLink)
		for _, req := range reqs {
			var link *domain.TrackingLink
			if req.LinkID != nil {
				var err error
				link, err = lookupLink(ctx, tx, links, *req.LinkID)
				if err != nil {
					return err
				}
			}

			conv := s.newConversion(req, link, sessionID)
			if err := tx.CreateConversion(ctx, conv); err != nil {
				return err
			}
			batch = append(batch, saved{conv: conv, link: link})
		}
		return nil
	})
	if err != nil {
		s.log.Error("bulk conversion tracking failed", zap.Int("count", len(reqs)), zap.Error(err))
		return nil, err
	}

	for _, item := range batch {
		s.recorded(item.conv, item.link)
	}

	s.log.Info("bulk conversions recorded", zap.Int("count", len(batch)))
	return &BulkConversionResult{
		Message: fmt.Sprintf("Successfully tracked %d conversions", len(batch)),
		Count:   len(batch),
	}, nil
}

// List последние конверсии за days дней, не больше ConversionListLimit
func (s *ConversionService) List(ctx context.Context, eventType string, days int) ([]domain.ConversionEvent, error) {
	if err := ValidateDaysBack("days", days); err != nil {
		return nil, err
	}
	return s.storage.ListConversions(ctx, domain.ConversionFilter{
		EventType: eventType,
		Since:     s.now().AddDate(0, 0, -days),
		Limit:     ConversionListLimit,
	})
}

// Analytics сводка по типам и источникам за days дней
func (s *ConversionService) Analytics(ctx context.Context, days int) (*domain.ConversionReport, error) {
	if err := ValidateDaysBack("days", days); err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -days)

	byType, err := s.storage.ConversionsByType(ctx, since)
	if err != nil {
		return nil, err
	}
	bySource, err := s.storage.ConversionsBySource(ctx, since)
	if err != nil {
		return nil, err
	}
	return domain.NewConversionReport(days, byType, bySource), nil
}

func (s *ConversionService) newConversion(req ConversionRequest, link *domain.TrackingLink, sessionID string) *domain.ConversionEvent {
	conv := &domain.ConversionEvent{
		OccurredAt: s.now(),
		EventType:  req.EventType,
		EventValue: req.EventValue,
		UserID:     domain.StringPtr(req.UserID),
		SessionID:  domain.StringPtr(sessionID),
		FunnelStep: domain.FunnelStepConversion,
		Properties: req.Properties,
		DataSource: conversionDataSource,
	}
	if link != nil {
		conv.Attribute(link)
	}
	return conv
}

// recorded пишет метрику и отдает конверсию на пересылку; ошибка пересылки
// только логируется
func (s *ConversionService) recorded(conv *domain.ConversionEvent, link *domain.TrackingLink) {
	metrics.ConversionsRecorded.WithLabelValues(strconv.FormatBool(link != nil)).Inc()

	if s.sink == nil || (link != nil && !link.ForwardingEnabled) {
		return
	}
	if err := s.sink.SubmitConversion(conv, link); err != nil {
		s.log.Warn("conversion not forwarded", zap.Int64("conversion_id", conv.ID), zap.Error(err))
	}
}

// lookupLink ищет ссылку с кешем в пределах пакета; отсутствующая ссылка дает nil
func lookupLink(ctx context.Context, storage repository.Storage, cache map[int64]*domain.TrackingLink, id int64) (*domain.TrackingLink, error) {
	if link, ok := cache[id]; ok {
		return link, nil
	}
	link, err := storage.GetLink(ctx, id)
	if errors.Is(err, repository.ErrLinkNotFound) {
		link, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	cache[id] = link
	return link, nil
}

// indexed добавляет к полям ошибки индекс элемента пакета
func indexed(i int, err error) error {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verr.Fields))}
	for field, msg := range verr.Fields {
		out.Fields[fmt.Sprintf("[%d].%s", i, field)] = msg
	}
	return out
}
