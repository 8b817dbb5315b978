package analytics

import (
	"UTMTrack-Backend/internal/config"
	"strings"

	"go.uber.org/zap"
)

// NewForwarder выбирает провайдера по конфигурации: posthog, ga4 или none.
// Неизвестное значение отключает пересылку.
func NewForwarder(cfg config.Analytics, log *zap.Logger) Forwarder {
	var inner Forwarder
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "posthog":
		inner = NewPostHog(cfg.PostHog, cfg.RequestTimeout, log)
	case "ga4":
		inner = NewGA4(cfg.GA4, cfg.RequestTimeout, log)
	case "", "none":
		return Nop{}
	default:
		log.Warn("unknown analytics provider, forwarding disabled", zap.String("provider", cfg.Provider))
		return Nop{}
	}

	status := inner.Status()
	log.Info("analytics provider selected",
		zap.String("provider", inner.Name()),
		zap.Bool("configured", status.Configured),
		zap.Bool("can_query", status.CanQuery))

	return NewGuarded(inner, cfg, log)
}
