package service

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/metrics"
	"UTMTrack-Backend/internal/repository"
	"UTMTrack-Backend/pkg/useragent"
	"context"
	"net"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ClickSink принимает сохраненные клики для пересылки во внешнюю аналитику.
// Submit не должен блокироваться.
type ClickSink interface {
	Submit(link *domain.TrackingLink, click *domain.ClickEvent) error
}

// Resolution результат разрешения ссылки
type Resolution struct {
	Link   *domain.TrackingLink
	Click  *domain.ClickEvent
	Target string
}

// ClickRequest явные метаданные клика; пустые поля заполняются из запроса
type ClickRequest struct {
	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address" validate:"omitempty,ip"`
	Referrer  string `json:"referrer"`
}

// Resolver находит ссылку, записывает клик и выбирает адрес редиректа
type Resolver struct {
	storage repository.Storage
	parser  *useragent.Parser
	sink     ClickSink
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func NewResolver(storage repository.Storage, parser *useragent.Parser, sink ClickSink, log *zap.Logger) *Resolver {
	return &Resolver{
		storage:  storage,
		parser:   parser,
		sink:     sink,
		validate: newValidator(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ResolveID разрешает ссылку по числовому ID
func (r *Resolver) ResolveID(ctx context.Context, id int64, meta domain.ClickMetadata) (*Resolution, error) {
	link, err := r.activeLink(ctx, func() (*domain.TrackingLink, error) { return r.storage.GetLink(ctx, id) })
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, link, meta)
}

// ResolveSlug разрешает ссылку по pretty slug
func (r *Resolver) ResolveSlug(ctx context.Context, slug string, meta domain.ClickMetadata) (*Resolution, error) {
	link, err := r.activeLink(ctx, func() (*domain.TrackingLink, error) { return r.storage.GetLinkBySlug(ctx, slug) })
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, link, meta)
}

// RecordClick записывает клик без редиректа. Явные метаданные имеют приоритет
// над извлеченными из запроса.
func (r *Resolver) RecordClick(ctx context.Context, id int64, req ClickRequest, inferred domain.ClickMetadata) (*domain.ClickEvent, error) {
	if err := r.validate.Struct(req); err != nil {
		return nil, fromValidator(err)
	}
	explicit := domain.ClickMetadata{UserAgent: req.UserAgent, Referrer: req.Referrer}
	if req.IPAddress != "" {
		explicit.IPAddress = net.ParseIP(req.IPAddress).String()
	}

	link, err := r.activeLink(ctx, func() (*domain.TrackingLink, error) { return r.storage.GetLink(ctx, id) })
	if err != nil {
		return nil, err
	}
	return r.capture(ctx, link, explicit.Merge(inferred))
}

func (r *Resolver) activeLink(ctx context.Context, load func() (*domain.TrackingLink, error)) (*domain.TrackingLink, error) {
	link, err := load()
	if err != nil {
		return nil, err
	}
	if !link.IsActive {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (r *Resolver) resolve(ctx context.Context, link *domain.TrackingLink, meta domain.ClickMetadata) (*Resolution, error) {
	click, err := r.capture(ctx, link, meta)
	if err != nil {
		return nil, err
	}

	if !link.TrackingType.Valid() {
		r.log.Warn("unknown tracking type, falling back to server redirect",
			zap.Int64("link_id", link.ID),
			zap.String("tracking_type", string(link.TrackingType)))
	}

	return &Resolution{
		Link:   link,
		Click:  click,
		Target: link.RedirectTarget(),
	}, nil
}

// capture сохраняет клик и отдает его на пересылку. Ошибка пересылки
// только логируется: клик уже записан.
func (r *Resolver) capture(ctx context.Context, link *domain.TrackingLink, meta domain.ClickMetadata) (*domain.ClickEvent, error) {
	click := domain.NewClickEvent(link.ID, meta, r.now())

	if r.parser != nil {
		if info := r.parser.Parse(meta.UserAgent); info != nil {
			click.DeviceType = domain.StringPtr(info.DeviceType)
			click.Browser = domain.StringPtr(info.Browser)
			click.OS = domain.StringPtr(info.OS)
		}
	}

	if err := r.storage.RecordClick(ctx, click); err != nil {
		r.log.Error("failed to record click", zap.Int64("link_id", link.ID), zap.Error(err))
		return nil, err
	}
	metrics.ClicksRecorded.WithLabelValues(string(link.TrackingType)).Inc()

	if link.ForwardingEnabled && r.sink != nil {
		if err := r.sink.Submit(link, click); err != nil {
			r.log.Warn("click not forwarded",
				zap.Int64("link_id", link.ID),
				zap.Int64("click_id", click.ID),
				zap.Error(err))
		}
	}

	return click, nil
}
