package analytics

import (
	"UTMTrack-Backend/internal/config"
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/metrics"
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Guarded оборачивает провайдера circuit breaker'ом и ограничителем частоты.
// Все удаленные вызовы, кроме HealthCheck, идут через него.
type Guarded struct {
	inner   Forwarder
	cb      *gobreaker.CircuitBreaker[interface{}]
	limiter *rate.Limiter
	name    string
	log     *zap.Logger
}

func NewGuarded(inner Forwarder, cfg config.Analytics, log *zap.Logger) *Guarded {
	name := "analytics-" + inner.Name()
	log = log.With(zap.String("breaker", name))

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	settings := cfg.Breaker
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		// Открываем цепь при доле ошибок >= FailureRatio, минимум MinRequests запросов
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			trip := ratio >= settings.FailureRatio
			if trip {
				log.Warn("opening circuit",
					zap.Uint32("failures", counts.TotalFailures),
					zap.Float64("failure_ratio", ratio))
			}
			return trip
		},
		IsSuccessful: func(err error) bool {
			return !isUpstreamFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state transition",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Guarded{
		inner:   inner,
		cb:      cb,
		limiter: rate.NewLimiter(limit, burst),
		name:    name,
		log:     log,
	}
}

// isUpstreamFailure только недоступность провайдера учитывается breaker'ом;
// отсутствие настроек и отмена запроса клиентом ошибкой провайдера не считаются
func isUpstreamFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

func (g *Guarded) execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := g.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(g.name, "rejected").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	case isUpstreamFailure(err):
		metrics.CircuitBreakerRequests.WithLabelValues(g.name, "failure").Inc()
		return nil, err
	case err != nil:
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(g.name, "success").Inc()
	return result, nil
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) SendClickEvent(ctx context.Context, link *domain.TrackingLink, click *domain.ClickEvent) error {
	_, err := g.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, g.inner.SendClickEvent(ctx, link, click)
	})
	return err
}

func (g *Guarded) SendConversionEvent(ctx context.Context, conv *domain.ConversionEvent, link *domain.TrackingLink) error {
	_, err := g.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, g.inner.SendConversionEvent(ctx, conv, link)
	})
	return err
}

func (g *Guarded) FetchAnalytics(ctx context.Context, window Window) (*Report, error) {
	result, err := g.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return g.inner.FetchAnalytics(ctx, window)
	})
	return castResult[Report](result, err)
}

func (g *Guarded) WebsiteAnalytics(ctx context.Context, window Window) (*WebsiteReport, error) {
	reporter, ok := g.inner.(WebsiteReporter)
	if !ok {
		return nil, ErrNotSupported
	}
	result, err := g.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return reporter.WebsiteAnalytics(ctx, window)
	})
	return castResult[WebsiteReport](result, err)
}

// HealthCheck обходит breaker, чтобы видеть реальное состояние провайдера
func (g *Guarded) HealthCheck(ctx context.Context) Health {
	return g.inner.HealthCheck(ctx)
}

func (g *Guarded) Status() ProviderStatus {
	status := g.inner.Status()
	status.BreakerState = g.cb.State().String()
	return status
}

func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
