package analytics

import (
	"UTMTrack-Backend/internal/config"
	"context"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAnalyticsConfig() config.Analytics {
	return config.Analytics{
		RequestsPerSecond: 0,
		Breaker: config.Breaker{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			MinRequests:  3,
			FailureRatio: 0.5,
		},
	}
}

func TestGuarded_OpensOnUpstreamFailures(t *testing.T) {
	ctx := context.Background()
	inner := &MockForwarder{}
	inner.On("SendClickEvent", mock.Anything, mock.Anything, mock.Anything).Return(ErrUpstreamUnavailable).Times(3)

	g := NewGuarded(inner, testAnalyticsConfig(), zap.NewNop())

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, g.SendClickEvent(ctx, testLink(), testClick()), ErrUpstreamUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen.String(), g.Status().BreakerState)

	err := g.SendClickEvent(ctx, testLink(), testClick())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	inner.AssertNumberOfCalls(t, "SendClickEvent", 3)
}

func TestGuarded_NotConfiguredDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	inner := &MockForwarder{}
	inner.On("SendClickEvent", mock.Anything, mock.Anything, mock.Anything).Return(ErrNotConfigured)

	g := NewGuarded(inner, testAnalyticsConfig(), zap.NewNop())
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, g.SendClickEvent(ctx, testLink(), testClick()), ErrNotConfigured)
	}
	assert.Equal(t, gobreaker.StateClosed.String(), g.Status().BreakerState)
	inner.AssertNumberOfCalls(t, "SendClickEvent", 5)
}

func TestGuarded_PassThrough(t *testing.T) {
	ctx := context.Background()
	inner := &MockForwarder{}
	report := &Report{Rows: []LinkMetrics{{LinkID: "1", Events: 2}}}
	inner.On("FetchAnalytics", mock.Anything, testWindow).Return(report, nil)
	inner.On("HealthCheck", mock.Anything).Return(Health{Provider: "mock", Status: HealthHealthy})

	g := NewGuarded(inner, testAnalyticsConfig(), zap.NewNop())

	got, err := g.FetchAnalytics(ctx, testWindow)
	require.NoError(t, err)
	assert.Same(t, report, got)
	assert.Equal(t, HealthHealthy, g.HealthCheck(ctx).Status)
	assert.Equal(t, "mock", g.Name())

	_, err = g.WebsiteAnalytics(ctx, testWindow)
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestGuarded_RateLimiterHonoursContext(t *testing.T) {
	cfg := testAnalyticsConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.Burst = 1

	inner := &MockForwarder{}
	inner.On("SendClickEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	g := NewGuarded(inner, cfg, zap.NewNop())

	require.NoError(t, g.SendClickEvent(context.Background(), testLink(), testClick()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, g.SendClickEvent(ctx, testLink(), testClick()))
	inner.AssertNumberOfCalls(t, "SendClickEvent", 1)
}

func TestNewForwarder(t *testing.T) {
	log := zap.NewNop()

	assert.Equal(t, "none", NewForwarder(config.Analytics{Provider: "none"}, log).Name())
	assert.Equal(t, "none", NewForwarder(config.Analytics{Provider: "carrier-pigeon"}, log).Name())

	ph := NewForwarder(config.Analytics{Provider: "PostHog", Breaker: testAnalyticsConfig().Breaker}, log)
	assert.Equal(t, "posthog", ph.Name())
	assert.IsType(t, &Guarded{}, ph)

	ga := NewForwarder(config.Analytics{Provider: "ga4", Breaker: testAnalyticsConfig().Breaker}, log)
	assert.Equal(t, "ga4", ga.Name())
	assert.False(t, ga.Status().Configured)
}
