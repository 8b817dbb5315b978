package service

import (
	"UTMTrack-Backend/internal/config"
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/repository"
	"UTMTrack-Backend/internal/repository/memory"
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTrackerConfig = &config.Tracker{
	BaseURL:       "https://t.example.com",
	DefaultSource: "youtube",
	DefaultMedium: "video",
}

func setupLinkService(t *testing.T, videoIDs ...string) (*LinkService, *memory.MemStorage) {
	t.Helper()
	storage := memory.New()
	for _, id := range videoIDs {
		require.NoError(t, storage.UpsertVideo(context.Background(), &domain.Video{
			VideoID:   id,
			Title:     "Video " + id,
			ViewCount: 1000,
			IsActive:  true,
		}))
	}
	return NewLinkService(storage, testTrackerConfig, zap.NewNop()), storage
}

func queryOf(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func TestLinkService_CreateLink(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults produce expected tracking url", func(t *testing.T) {
		svc, _ := setupLinkService(t, "abc123")

		link, err := svc.CreateLink(ctx, CreateLinkRequest{VideoID: "abc123", DestinationURL: "https://example.com"})
		require.NoError(t, err)

		assert.Equal(t, url.Values{
			"utm_source":  {"youtube"},
			"utm_medium":  {"video"},
			"utm_content": {"abc123"},
		}, queryOf(t, link.TrackingURL))
		assert.Equal(t, domain.TrackingServerRedirect, link.TrackingType)
		assert.Nil(t, link.DirectURL)
		assert.True(t, link.IsActive)
		assert.True(t, link.ForwardingEnabled)
		require.NotNil(t, link.PrettySlug)
		assert.Equal(t, "example-abc123", *link.PrettySlug)
	})

	t.Run("tracking url keeps existing query", func(t *testing.T) {
		svc, _ := setupLinkService(t, "abc123")

		link, err := svc.CreateLink(ctx, CreateLinkRequest{
			VideoID:        "abc123",
			DestinationURL: "https://example.com/page?ref=yt&utm_source=old",
			UTMCampaign:    "launch",
			UTMTerm:        "shoes",
			TrackingType:   "direct_posthog",
		})
		require.NoError(t, err)

		assert.Equal(t, url.Values{
			"ref":          {"yt"},
			"utm_source":   {"youtube"},
			"utm_medium":   {"video"},
			"utm_campaign": {"launch"},
			"utm_content":  {"abc123"},
			"utm_term":     {"shoes"},
		}, queryOf(t, link.TrackingURL))
		require.NotNil(t, link.DirectURL)
		assert.Equal(t, link.TrackingURL, *link.DirectURL)
	})

	t.Run("generated slugs get numeric suffix", func(t *testing.T) {
		svc, _ := setupLinkService(t, "abc123")

		slugs := make([]string, 0, 3)
		for i := 0; i < 3; i++ {
			link, err := svc.CreateLink(ctx, CreateLinkRequest{VideoID: "abc123", DestinationURL: "https://example.com/offer"})
			require.NoError(t, err)
			slugs = append(slugs, *link.PrettySlug)
		}
		assert.Equal(t, []string{"example-offer-abc123", "example-offer-abc123-2", "example-offer-abc123-3"}, slugs)
	})

	t.Run("custom slug collision", func(t *testing.T) {
		svc, _ := setupLinkService(t, "abc123")

		_, err := svc.CreateLink(ctx, CreateLinkRequest{VideoID: "abc123", DestinationURL: "https://example.com", PrettySlug: "spring-sale"})
		require.NoError(t, err)

		_, err = svc.CreateLink(ctx, CreateLinkRequest{VideoID: "abc123", DestinationURL: "https://example.org", PrettySlug: "spring-sale"})
		assert.ErrorIs(t, err, repository.ErrSlugExists)
	})

	t.Run("unknown video", func(t *testing.T) {
		svc, _ := setupLinkService(t)

		_, err := svc.CreateLink(ctx, CreateLinkRequest{VideoID: "nope", DestinationURL: "https://example.com"})
		assert.ErrorIs(t, err, repository.ErrVideoNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		svc, _ := setupLinkService(t, "abc123")

		cases := map[string]CreateLinkRequest{
			"video_id":        {DestinationURL: "https://example.com"},
			"destination_url": {VideoID: "abc123", DestinationURL: "not a url"},
			"tracking_type":   {VideoID: "abc123", DestinationURL: "https://example.com", TrackingType: "carrier_pigeon"},
			"pretty_slug":     {VideoID: "abc123", DestinationURL: "https://example.com", PrettySlug: "Bad Slug!"},
		}
		for field, req := range cases {
			t.Run(field, func(t *testing.T) {
				_, err := svc.CreateLink(ctx, req)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, field)
			})
		}
	})
}

func TestLinkService_UpdateLink(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupLinkService(t, "abc123")

	link, err := svc.CreateLink(ctx, CreateLinkRequest{VideoID: "abc123", DestinationURL: "https://example.com"})
	require.NoError(t, err)

	t.Run("regenerates urls", func(t *testing.T) {
		campaign := "summer"
		tracking := "direct_ga4"
		updated, err := svc.UpdateLink(ctx, link.ID, UpdateLinkRequest{UTMCampaign: &campaign, TrackingType: &tracking})
		require.NoError(t, err)

		assert.Equal(t, "summer", queryOf(t, updated.TrackingURL).Get("utm_campaign"))
		require.NotNil(t, updated.DirectURL)
		assert.Equal(t, updated.TrackingURL, *updated.DirectURL)

		stored, err := svc.GetLink(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.TrackingURL, stored.TrackingURL)
	})

	t.Run("clearing campaign drops the key", func(t *testing.T) {
		empty := ""
		updated, err := svc.UpdateLink(ctx, link.ID, UpdateLinkRequest{UTMCampaign: &empty})
		require.NoError(t, err)
		assert.Nil(t, updated.UTMCampaign)
		assert.NotContains(t, queryOf(t, updated.TrackingURL), "utm_campaign")
	})

	t.Run("invalid tracking type", func(t *testing.T) {
		bad := "nope"
		_, err := svc.UpdateLink(ctx, link.ID, UpdateLinkRequest{TrackingType: &bad})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("missing link", func(t *testing.T) {
		active := false
		_, err := svc.UpdateLink(ctx, 999, UpdateLinkRequest{IsActive: &active})
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	})
}

func TestLinkService_DeleteLink(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupLinkService(t, "abc123")

	link, err := svc.CreateLink(ctx, CreateLinkRequest{VideoID: "abc123", DestinationURL: "https://example.com"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteLink(ctx, 999), repository.ErrLinkNotFound)

	require.NoError(t, svc.DeleteLink(ctx, link.ID))
	_, err = svc.GetLink(ctx, link.ID)
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestLinkService_ListLinks(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupLinkService(t, "abc123")

	for _, dest := range []string{"https://a.example.com", "https://b.example.com"} {
		_, err := svc.CreateLink(ctx, CreateLinkRequest{VideoID: "abc123", DestinationURL: dest})
		require.NoError(t, err)
	}

	links, err := svc.ListLinks(ctx, domain.LinkFilter{Limit: DefaultListLimit, ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, links, 2)

	for _, filter := range []domain.LinkFilter{{Limit: 0}, {Limit: MaxListLimit + 1}, {Limit: 10, Offset: -1}} {
		_, err := svc.ListLinks(ctx, filter)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	}
}

func TestLinkService_LinkAnalytics(t *testing.T) {
	ctx := context.Background()
	svc, storage := setupLinkService(t, "abc123")

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	link, err := svc.CreateLink(ctx, CreateLinkRequest{VideoID: "abc123", DestinationURL: "https://example.com"})
	require.NoError(t, err)

	mobile := "mobile"
	for _, at := range []time.Time{
		now.AddDate(0, 0, -60),
		now.AddDate(0, 0, -2),
		now.AddDate(0, 0, -2).Add(time.Hour),
		now.Add(-time.Hour),
	} {
		require.NoError(t, storage.RecordClick(ctx, &domain.ClickEvent{LinkID: link.ID, ClickedAt: at, DeviceType: &mobile}))
	}

	analytics, err := svc.LinkAnalytics(ctx, link.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(4), analytics.TotalClicks)
	assert.Equal(t, int64(3), analytics.RecentClicks)
	assert.Equal(t, []domain.DailyClicks{
		{Date: "2024-06-13", Clicks: 2},
		{Date: "2024-06-15", Clicks: 1},
	}, analytics.DailyClicks)
	assert.Equal(t, map[string]int64{"mobile": 4}, analytics.ClicksByDevice)

	t.Run("days back out of range", func(t *testing.T) {
		for _, days := range []int{0, 366} {
			_, err := svc.LinkAnalytics(ctx, link.ID, days)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		}
	})

	t.Run("missing link", func(t *testing.T) {
		_, err := svc.LinkAnalytics(ctx, 999, 30)
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	})
}
