package analytics

import (
	"UTMTrack-Backend/internal/config"
	"UTMTrack-Backend/internal/domain"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLink() *domain.TrackingLink {
	return &domain.TrackingLink{
		ID:                42,
		VideoID:           "abc123",
		DestinationURL:    "https://example.com",
		UTMSource:         "youtube",
		UTMMedium:         "video",
		UTMContent:        domain.StringPtr("abc123"),
		TrackingType:      domain.TrackingServerRedirect,
		IsActive:          true,
		ForwardingEnabled: true,
	}
}

func testClick() *domain.ClickEvent {
	return domain.NewClickEvent(42, domain.ClickMetadata{UserAgent: "TestAgent/1.0", IPAddress: "203.0.113.9"},
		time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
}

func testConversion() *domain.ConversionEvent {
	return &domain.ConversionEvent{
		ID:         7,
		EventType:  "purchase",
		EventValue: 49.5,
		UserID:     domain.StringPtr("user-1"),
		SessionID:  domain.StringPtr("sess-9"),
		Properties: map[string]interface{}{"plan": "pro", "event_type": "spoofed"},
		OccurredAt: time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC),
	}
}

var testWindow = Window{
	From: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
}

func newTestPostHog(t *testing.T, handler http.HandlerFunc) *PostHog {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPostHog(config.PostHog{
		APIKey:         "phc_project",
		PersonalAPIKey: "phx_personal",
		Host:           srv.URL + "/",
		ProjectID:      "1234",
	}, time.Second, zap.NewNop())
}

func decodeBody(t *testing.T, r *http.Request, v interface{}) {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v))
}

func TestPostHog_SendClickEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("captures event with utm properties", func(t *testing.T) {
		var got captureRequest
		ph := newTestPostHog(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/capture/", r.URL.Path)
			decodeBody(t, r, &got)
			w.WriteHeader(http.StatusOK)
		})

		require.NoError(t, ph.SendClickEvent(ctx, testLink(), testClick()))

		assert.Equal(t, "phc_project", got.APIKey)
		assert.Equal(t, ClickEventName, got.Event)
		assert.NotEmpty(t, got.DistinctID)
		assert.Equal(t, "2024-06-01T10:00:00Z", got.Timestamp)
		assert.Equal(t, "youtube", got.Properties["utm_source"])
		assert.Equal(t, "abc123", got.Properties["utm_content"])
		assert.Equal(t, "42", got.Properties["link_id"])
		assert.Equal(t, "https://example.com", got.Properties["$current_url"])
		assert.Equal(t, "203.0.113.9", got.Properties["$ip"])
		assert.Equal(t, "UTM Tracking", got.Properties["event_category"])
		assert.NotContains(t, got.Properties, "utm_campaign")
		assert.NotContains(t, got.Properties, "$referrer")
	})

	t.Run("distinct ids are random", func(t *testing.T) {
		var ids []string
		ph := newTestPostHog(t, func(w http.ResponseWriter, r *http.Request) {
			var req captureRequest
			decodeBody(t, r, &req)
			ids = append(ids, req.DistinctID)
		})
		require.NoError(t, ph.SendClickEvent(ctx, testLink(), testClick()))
		require.NoError(t, ph.SendClickEvent(ctx, testLink(), testClick()))
		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1])
	})

	t.Run("server error is upstream unavailable", func(t *testing.T) {
		ph := newTestPostHog(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		err := ph.SendClickEvent(ctx, testLink(), testClick())
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("not configured", func(t *testing.T) {
		ph := NewPostHog(config.PostHog{Host: "http://localhost"}, time.Second, zap.NewNop())
		assert.ErrorIs(t, ph.SendClickEvent(ctx, testLink(), testClick()), ErrNotConfigured)
		assert.False(t, ph.Status().Configured)
	})
}

func TestPostHog_SendConversionEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("attributed conversion", func(t *testing.T) {
		var got captureRequest
		ph := newTestPostHog(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/capture/", r.URL.Path)
			decodeBody(t, r, &got)
		})

		require.NoError(t, ph.SendConversionEvent(ctx, testConversion(), testLink()))

		assert.Equal(t, "conversion_purchase", got.Event)
		assert.Equal(t, "user-1", got.DistinctID)
		assert.Equal(t, "2024-06-02T12:00:00Z", got.Timestamp)
		assert.Equal(t, "purchase", got.Properties["event_type"])
		assert.Equal(t, 49.5, got.Properties["event_value"])
		assert.Equal(t, "Conversion", got.Properties["event_category"])
		assert.Equal(t, "pro", got.Properties["plan"])
		assert.Equal(t, "sess-9", got.Properties["$session_id"])
		assert.Equal(t, "youtube", got.Properties["utm_source"])
		assert.Equal(t, "abc123", got.Properties["source_video_id"])
		assert.Equal(t, "42", got.Properties["source_link_id"])
	})

	t.Run("unattributed conversion gets random distinct id", func(t *testing.T) {
		var got captureRequest
		ph := newTestPostHog(t, func(w http.ResponseWriter, r *http.Request) {
			decodeBody(t, r, &got)
		})

		conv := testConversion()
		conv.UserID = nil
		require.NoError(t, ph.SendConversionEvent(ctx, conv, nil))

		assert.NotEmpty(t, got.DistinctID)
		assert.NotContains(t, got.Properties, "utm_source")
		assert.NotContains(t, got.Properties, "source_link_id")
	})

	t.Run("not configured", func(t *testing.T) {
		ph := NewPostHog(config.PostHog{Host: "http://localhost"}, time.Second, zap.NewNop())
		assert.ErrorIs(t, ph.SendConversionEvent(ctx, testConversion(), nil), ErrNotConfigured)
	})
}

func TestPostHog_FetchAnalytics(t *testing.T) {
	ctx := context.Background()

	var query trendQuery
	ph := newTestPostHog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/1234/insights/trend/", r.URL.Path)
		assert.Equal(t, "Bearer phx_personal", r.Header.Get("Authorization"))
		decodeBody(t, r, &query)
		_, _ = w.Write([]byte(`{"result":[
			{"breakdown_value":["youtube","fall","42","abc123"],"data":[1,2,3]},
			{"breakdown_value":["youtube","",7,"xyz"],"data":[4]},
			{"breakdown_value":"$$_posthog_breakdown_other_$$","data":[5]}
		]}`))
	})

	report, err := ph.FetchAnalytics(ctx, testWindow)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01", query.DateFrom)
	assert.Equal(t, "2024-06-08", query.DateTo)
	assert.Equal(t, "event", query.BreakdownType)
	assert.Equal(t, []trendEvent{{ID: ClickEventName, Name: ClickEventName}}, query.Events)

	require.Len(t, report.Rows, 3)
	assert.Equal(t, LinkMetrics{UTMSource: "youtube", UTMCampaign: "fall", LinkID: "42", VideoID: "abc123", Events: 6, Users: 6, Sessions: 6}, report.Rows[0])
	assert.Equal(t, "7", report.Rows[1].LinkID)
	assert.Empty(t, report.Rows[2].LinkID)

	t.Run("not configured without project", func(t *testing.T) {
		ph := NewPostHog(config.PostHog{APIKey: "phc"}, time.Second, zap.NewNop())
		_, err := ph.FetchAnalytics(ctx, testWindow)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestPostHog_HealthCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		status int
		want   HealthStatus
	}{
		{"healthy", http.StatusOK, HealthHealthy},
		{"unauthorized", http.StatusUnauthorized, HealthUnhealthy},
		{"server error", http.StatusInternalServerError, HealthUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ph := newTestPostHog(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/projects/1234/", r.URL.Path)
				w.WriteHeader(tt.status)
			})
			assert.Equal(t, tt.want, ph.HealthCheck(ctx).Status)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		ph := NewPostHog(config.PostHog{APIKey: "k", ProjectID: "1", Host: srv.URL}, time.Second, zap.NewNop())
		assert.Equal(t, HealthError, ph.HealthCheck(ctx).Status)
	})

	t.Run("not configured", func(t *testing.T) {
		ph := NewPostHog(config.PostHog{}, time.Second, zap.NewNop())
		assert.Equal(t, HealthNotConfigured, ph.HealthCheck(ctx).Status)
	})
}

func TestPostHog_WebsiteAnalytics(t *testing.T) {
	ctx := context.Background()

	ph := newTestPostHog(t, func(w http.ResponseWriter, r *http.Request) {
		var q trendQuery
		decodeBody(t, r, &q)
		switch q.Breakdown {
		case nil:
			assert.Equal(t, "day", q.Interval)
			_, _ = w.Write([]byte(`{"result":[{"labels":["1-Jun-2024","2-Jun-2024"],"data":[10,5]}]}`))
		case "distinct_id":
			_, _ = w.Write([]byte(`{"result":[{"breakdown_value":"u1","data":[1]},{"breakdown_value":"u2","data":[3]}]}`))
		case "$current_url":
			_, _ = w.Write([]byte(`{"result":[
				{"breakdown_value":"https://site/a","data":[2]},
				{"breakdown_value":"https://site/b","data":[9]},
				{"breakdown_value":"https://site/c","data":[0]}
			]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	report, err := ph.WebsiteAnalytics(ctx, testWindow)
	require.NoError(t, err)
	assert.Equal(t, int64(15), report.TotalVisits)
	assert.Equal(t, int64(15), report.PageViews)
	assert.Equal(t, int64(2), report.UniqueVisitors)
	assert.Equal(t, []DailyVisits{{Date: "1-Jun-2024", Visits: 10}, {Date: "2-Jun-2024", Visits: 5}}, report.DailyVisits)
	assert.Equal(t, []PageViews{{URL: "https://site/b", Views: 9}, {URL: "https://site/a", Views: 2}}, report.TopPages)
	assert.Equal(t, 7, report.PeriodDays)
	assert.Equal(t, "2024-06-01", report.StartDate)
	assert.Empty(t, report.Error)
}

func TestWebsiteAnalytics_Degraded(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		ph := NewPostHog(config.PostHog{}, time.Second, zap.NewNop())
		report := WebsiteAnalytics(ctx, ph, testWindow, zap.NewNop())
		assert.Equal(t, "PostHog not configured", report.Error)
		assert.Zero(t, report.TotalVisits)
		assert.NotNil(t, report.DailyVisits)
	})

	t.Run("api error", func(t *testing.T) {
		ph := newTestPostHog(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		report := WebsiteAnalytics(ctx, ph, testWindow, zap.NewNop())
		assert.Equal(t, "API error: 403", report.Error)
	})

	t.Run("provider without website reports", func(t *testing.T) {
		report := WebsiteAnalytics(ctx, &MockForwarder{}, testWindow, zap.NewNop())
		assert.Equal(t, ErrNotSupported.Error(), report.Error)
	})

	t.Run("provider disabled", func(t *testing.T) {
		report := WebsiteAnalytics(ctx, Nop{}, testWindow, zap.NewNop())
		assert.Equal(t, "PostHog not configured", report.Error)
		assert.Equal(t, 7, report.PeriodDays)
	})
}
