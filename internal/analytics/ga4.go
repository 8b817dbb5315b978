package analytics

import (
	"UTMTrack-Backend/internal/config"
	"UTMTrack-Backend/internal/domain"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GA4 адаптер Google Analytics 4 Measurement Protocol. Отчеты через
// Measurement Protocol недоступны, поэтому FetchAnalytics не поддерживается.
type GA4 struct {
	cfg    config.GA4
	client *http.Client
	log    *zap.Logger
}

func NewGA4(cfg config.GA4, timeout time.Duration, log *zap.Logger) *GA4 {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &GA4{
		cfg:    cfg,
		client: newHTTPClient(timeout),
		log:    log.With(zap.String("provider", "ga4")),
	}
}

func (g *GA4) Name() string { return "ga4" }

func (g *GA4) configured() bool {
	return g.cfg.MeasurementID != "" && g.cfg.APISecret != ""
}

func (g *GA4) Status() ProviderStatus {
	return ProviderStatus{Provider: g.Name(), Configured: g.configured()}
}

type ga4Value struct {
	Value string `json:"value"`
}

type ga4Event struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

type ga4Payload struct {
	ClientID        string              `json:"client_id"`
	TimestampMicros int64               `json:"timestamp_micros,omitempty"`
	Events          []ga4Event          `json:"events"`
	UserProperties  map[string]ga4Value `json:"user_properties,omitempty"`
}

type ga4ValidationMessage struct {
	FieldPath      string `json:"fieldPath"`
	Description    string `json:"description"`
	ValidationCode string `json:"validationCode"`
}

type ga4DebugResponse struct {
	ValidationMessages []ga4ValidationMessage `json:"validationMessages"`
}

func (g *GA4) collectURL(debug bool) string {
	path := "/mp/collect"
	if debug {
		path = "/debug/mp/collect"
	}
	q := url.Values{}
	q.Set("measurement_id", g.cfg.MeasurementID)
	q.Set("api_secret", g.cfg.APISecret)
	return g.cfg.Endpoint + path + "?" + q.Encode()
}

func clickPayload(link *domain.TrackingLink, click *domain.ClickEvent) ga4Payload {
	utm := link.UTM()
	params := map[string]interface{}{
		"link_url":       link.DestinationURL,
		"video_id":       link.VideoID,
		"link_id":        strconv.FormatInt(link.ID, 10),
		"event_category": eventCategory,
		"value":          1,
	}
	for key, value := range map[string]string{
		"utm_source":   utm.Source,
		"utm_medium":   utm.Medium,
		"utm_campaign": utm.Campaign,
		"utm_content":  utm.Content,
		"utm_term":     utm.Term,
	} {
		if value != "" {
			params[key] = value
		}
	}

	payload := ga4Payload{
		ClientID: uuid.NewString(),
		Events:   []ga4Event{{Name: ClickEventName, Params: params}},
	}
	if click != nil {
		if !click.ClickedAt.IsZero() {
			payload.TimestampMicros = click.ClickedAt.UnixMicro()
		}
		if ua := deref(click.UserAgent); ua != "" {
			payload.UserProperties = map[string]ga4Value{"user_agent": {Value: ua}}
		}
	}
	return payload
}

// SendClickEvent отправляет событие utm_link_click через Measurement Protocol
func (g *GA4) SendClickEvent(ctx context.Context, link *domain.TrackingLink, click *domain.ClickEvent) error {
	if !g.configured() {
		return ErrNotConfigured
	}

	if err := doJSON(ctx, g.client, http.MethodPost, g.collectURL(false), nil, clickPayload(link, click), nil); err != nil {
		return fmt.Errorf("ga4 collect: %w", err)
	}

	g.log.Debug("click event collected", zap.Int64("link_id", link.ID))
	return nil
}

// SendConversionEvent отправляет conversion_<type> со значением через Measurement Protocol
func (g *GA4) SendConversionEvent(ctx context.Context, conv *domain.ConversionEvent, link *domain.TrackingLink) error {
	if !g.configured() {
		return ErrNotConfigured
	}

	if err := doJSON(ctx, g.client, http.MethodPost, g.collectURL(false), nil, conversionPayload(conv, link), nil); err != nil {
		return fmt.Errorf("ga4 collect: %w", err)
	}

	g.log.Debug("conversion event collected", zap.Int64("conversion_id", conv.ID))
	return nil
}

func conversionPayload(conv *domain.ConversionEvent, link *domain.TrackingLink) ga4Payload {
	params := map[string]interface{}{
		"event_category": "Conversion",
		"event_type":     conv.EventType,
		"value":          conv.EventValue,
	}
	if link != nil {
		utm := link.UTM()
		params["video_id"] = link.VideoID
		params["link_id"] = strconv.FormatInt(link.ID, 10)
		if utm.Source != "" {
			params["utm_source"] = utm.Source
		}
		if utm.Campaign != "" {
			params["utm_campaign"] = utm.Campaign
		}
	}

	clientID := deref(conv.UserID)
	if clientID == "" {
		clientID = uuid.NewString()
	}
	payload := ga4Payload{
		ClientID: clientID,
		Events:   []ga4Event{{Name: ConversionEventName(conv.EventType), Params: params}},
	}
	if !conv.OccurredAt.IsZero() {
		payload.TimestampMicros = conv.OccurredAt.UnixMicro()
	}
	return payload
}

func (g *GA4) FetchAnalytics(context.Context, Window) (*Report, error) {
	if !g.configured() {
		return nil, ErrNotConfigured
	}
	return nil, ErrNotSupported
}

// HealthCheck валидирует тестовое событие через debug endpoint
func (g *GA4) HealthCheck(ctx context.Context) Health {
	h := Health{Provider: g.Name()}
	if !g.configured() {
		h.Status = HealthNotConfigured
		h.Message = "GA4 not configured"
		return h
	}

	check := ga4Payload{
		ClientID: uuid.NewString(),
		Events:   []ga4Event{{Name: ClickEventName, Params: map[string]interface{}{"event_category": eventCategory, "value": 1}}},
	}

	var resp ga4DebugResponse
	err := doJSON(ctx, g.client, http.MethodPost, g.collectURL(true), nil, check, &resp)

	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		h.Status = HealthUnhealthy
		h.Message = statusErr.Error()
	case err != nil:
		h.Status = HealthError
		h.Message = err.Error()
	case len(resp.ValidationMessages) > 0:
		h.Status = HealthUnhealthy
		h.Message = resp.ValidationMessages[0].Description
	default:
		h.Status = HealthHealthy
	}
	return h
}
