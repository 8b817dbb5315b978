package analytics

import (
	"UTMTrack-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConfigured провайдер не настроен (нет ключей)
	ErrNotConfigured = errors.New("analytics provider not configured")
	// ErrUpstreamUnavailable провайдер недоступен: сетевая ошибка, 5xx или открытый breaker
	ErrUpstreamUnavailable = errors.New("analytics provider unavailable")
	// ErrNotSupported операция не поддерживается провайдером
	ErrNotSupported = errors.New("operation not supported by analytics provider")
)

// HealthStatus состояние провайдера аналитики
type HealthStatus string

const (
	HealthHealthy       HealthStatus = "healthy"
	HealthUnhealthy     HealthStatus = "unhealthy"
	HealthNotConfigured HealthStatus = "not_configured"
	HealthError         HealthStatus = "error"
)

// Health результат проверки провайдера
type Health struct {
	Provider string       `json:"provider"`
	Status   HealthStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
}

// ProviderStatus флаги конфигурации провайдера
type ProviderStatus struct {
	Provider     string `json:"provider"`
	Configured   bool   `json:"configured"`
	CanQuery     bool   `json:"can_query"`
	BreakerState string `json:"breaker_state,omitempty"`
}

// Window интервал выборки отчета, границы - календарные даты UTC
type Window struct {
	From time.Time
	To   time.Time
}

// LastDays окно из последних days дней, заканчивающееся now
func LastDays(now time.Time, days int) Window {
	now = now.UTC()
	return Window{From: now.AddDate(0, 0, -days), To: now}
}

// Days длина окна в днях
func (w Window) Days() int {
	return int(w.To.Sub(w.From).Hours() / 24)
}

// LinkMetrics агрегат событий по одной разбивке отчета
type LinkMetrics struct {
	LinkID      string `json:"link_id"`
	VideoID     string `json:"video_id"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	Events      int64  `json:"event_count"`
	Users       int64  `json:"unique_users"`
	Sessions    int64  `json:"sessions"`
}

// Report отчет провайдера за окно
type Report struct {
	Window Window        `json:"-"`
	Rows   []LinkMetrics `json:"rows"`
}

// Forwarder адаптер внешней аналитики
type Forwarder interface {
	SendClickEvent(ctx context.Context, link *domain.TrackingLink, click *domain.ClickEvent) error
	// SendConversionEvent link == nil для неатрибутированной конверсии
	SendConversionEvent(ctx context.Context, conv *domain.ConversionEvent, link *domain.TrackingLink) error
	FetchAnalytics(ctx context.Context, window Window) (*Report, error)
	HealthCheck(ctx context.Context) Health
	Status() ProviderStatus
	Name() string
}

// WebsiteReporter провайдеры, умеющие отдавать статистику посещений сайта
type WebsiteReporter interface {
	WebsiteAnalytics(ctx context.Context, window Window) (*WebsiteReport, error)
}

// Nop используется, когда провайдер отключен
type Nop struct{}

func (Nop) Name() string { return "none" }

func (Nop) SendClickEvent(context.Context, *domain.TrackingLink, *domain.ClickEvent) error {
	return ErrNotConfigured
}

func (Nop) SendConversionEvent(context.Context, *domain.ConversionEvent, *domain.TrackingLink) error {
	return ErrNotConfigured
}

func (Nop) FetchAnalytics(context.Context, Window) (*Report, error) {
	return nil, ErrNotConfigured
}

func (Nop) WebsiteAnalytics(context.Context, Window) (*WebsiteReport, error) {
	return nil, ErrNotConfigured
}

func (n Nop) HealthCheck(context.Context) Health {
	return Health{Provider: n.Name(), Status: HealthNotConfigured, Message: "analytics provider disabled"}
}

func (n Nop) Status() ProviderStatus {
	return ProviderStatus{Provider: n.Name()}
}
