package memory

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedVideo(t *testing.T, s *MemStorage, videoID string, active bool) {
	t.Helper()
	require.NoError(t, s.UpsertVideo(context.Background(), &domain.Video{
		VideoID:   videoID,
		Title:     "Video " + videoID,
		ViewCount: 1000,
		IsActive:  active,
	}))
}

func newLink(videoID, destination string) *domain.TrackingLink {
	link := &domain.TrackingLink{
		VideoID:           videoID,
		DestinationURL:    destination,
		UTMSource:         "youtube",
		UTMMedium:         "video",
		UTMContent:        domain.StringPtr(videoID),
		TrackingType:      domain.TrackingServerRedirect,
		IsActive:          true,
		ForwardingEnabled: true,
	}
	_ = link.RegenerateURLs()
	return link
}

func TestMemStorage_CreateLink(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown video", func(t *testing.T) {
		s := New()
		err := s.CreateLink(ctx, newLink("missing", "https://example.com"))
		assert.ErrorIs(t, err, repository.ErrVideoNotFound)
	})

	t.Run("assigns id and timestamps", func(t *testing.T) {
		s := New()
		seedVideo(t, s, "abc123", true)

		link := newLink("abc123", "https://example.com")
		require.NoError(t, s.CreateLink(ctx, link))
		assert.Equal(t, int64(1), link.ID)
		assert.False(t, link.CreatedAt.IsZero())

		stored, err := s.GetLink(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, link.TrackingURL, stored.TrackingURL)
	})

	t.Run("slug collision", func(t *testing.T) {
		s := New()
		seedVideo(t, s, "abc123", true)

		first := newLink("abc123", "https://example.com")
		first.PrettySlug = domain.StringPtr("example-abc123")
		require.NoError(t, s.CreateLink(ctx, first))

		second := newLink("abc123", "https://example.org")
		second.PrettySlug = domain.StringPtr("example-abc123")
		assert.ErrorIs(t, s.CreateLink(ctx, second), repository.ErrSlugExists)

		found, err := s.GetLinkBySlug(ctx, "example-abc123")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
	})
}

func TestMemStorage_DeleteLink(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedVideo(t, s, "abc123", true)

	link := newLink("abc123", "https://example.com")
	require.NoError(t, s.CreateLink(ctx, link))
	require.NoError(t, s.RecordClick(ctx, &domain.ClickEvent{LinkID: link.ID}))

	t.Run("missing id", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteLink(ctx, 999), repository.ErrLinkNotFound)
	})

	t.Run("cascades clicks", func(t *testing.T) {
		require.NoError(t, s.DeleteLink(ctx, link.ID))

		_, err := s.GetLink(ctx, link.ID)
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)

		count, err := s.CountClicks(ctx, link.ID, nil)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestMemStorage_ListLinks(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedVideo(t, s, "v1", true)
	seedVideo(t, s, "v2", true)

	a := newLink("v1", "https://a.example.com")
	b := newLink("v1", "https://b.example.com")
	c := newLink("v2", "https://c.example.com")
	for _, l := range []*domain.TrackingLink{a, b, c} {
		require.NoError(t, s.CreateLink(ctx, l))
	}
	b.IsActive = false
	require.NoError(t, s.UpdateLink(ctx, b))

	clickedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordClick(ctx, &domain.ClickEvent{LinkID: a.ID, ClickedAt: clickedAt.Add(-time.Hour)}))
	require.NoError(t, s.RecordClick(ctx, &domain.ClickEvent{LinkID: a.ID, ClickedAt: clickedAt}))

	t.Run("newest first with stats", func(t *testing.T) {
		links, err := s.ListLinks(ctx, domain.LinkFilter{})
		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, c.ID, links[0].ID)
		assert.Equal(t, a.ID, links[2].ID)
		assert.Equal(t, int64(2), links[2].ClickCount)
		require.NotNil(t, links[2].LastClickedAt)
		assert.True(t, clickedAt.Equal(*links[2].LastClickedAt))
	})

	t.Run("filters", func(t *testing.T) {
		links, err := s.ListLinks(ctx, domain.LinkFilter{VideoID: "v1", ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, a.ID, links[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		links, err := s.ListLinks(ctx, domain.LinkFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, b.ID, links[0].ID)

		links, err = s.ListLinks(ctx, domain.LinkFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestMemStorage_ClickQueries(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedVideo(t, s, "v1", true)

	a := newLink("v1", "https://a.example.com")
	b := newLink("v1", "https://b.example.com")
	require.NoError(t, s.CreateLink(ctx, a))
	require.NoError(t, s.CreateLink(ctx, b))

	now := time.Now().UTC()
	mobile := "mobile"
	require.NoError(t, s.RecordClick(ctx, &domain.ClickEvent{LinkID: a.ID, ClickedAt: now.AddDate(0, 0, -10)}))
	require.NoError(t, s.RecordClick(ctx, &domain.ClickEvent{LinkID: a.ID, ClickedAt: now, DeviceType: &mobile}))

	assert.ErrorIs(t, s.RecordClick(ctx, &domain.ClickEvent{LinkID: 42}), repository.ErrLinkNotFound)

	since := now.AddDate(0, 0, -1)

	total, err := s.CountClicks(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	recent, err := s.CountClicks(ctx, a.ID, &since)
	require.NoError(t, err)
	assert.Equal(t, int64(1), recent)

	times, err := s.ClickTimes(ctx, a.ID, since)
	require.NoError(t, err)
	assert.Len(t, times, 1)

	byDevice, err := s.GetClicksByDevice(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"mobile": 1, "unknown": 1}, byDevice)

	byVideo, err := s.CountClicksByVideo(ctx, "v1", nil)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{a.ID: 2, b.ID: 0}, byVideo)
}

func TestMemStorage_WithinTx(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedVideo(t, s, "v1", true)

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.WithinTx(ctx, func(tx repository.Storage) error {
			require.NoError(t, tx.CreateLink(ctx, newLink("v1", "https://a.example.com")))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		links, err := s.ListLinks(ctx, domain.LinkFilter{})
		require.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("commit", func(t *testing.T) {
		err := s.WithinTx(ctx, func(tx repository.Storage) error {
			return tx.CreateLink(ctx, newLink("v1", "https://a.example.com"))
		})
		require.NoError(t, err)

		links, err := s.ListLinks(ctx, domain.LinkFilter{})
		require.NoError(t, err)
		assert.Len(t, links, 1)
	})
}

func TestMemStorage_WithinTxKeepsOutsideWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedVideo(t, s, "v1", true)

	existing := newLink("v1", "https://a.example.com")
	require.NoError(t, s.CreateLink(ctx, existing))
	require.NoError(t, s.RecordClick(ctx, &domain.ClickEvent{LinkID: existing.ID}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx repository.Storage) error {
		require.NoError(t, tx.CreateLink(ctx, newLink("v1", "https://b.example.com")))
		require.NoError(t, tx.RecordClick(ctx, &domain.ClickEvent{LinkID: existing.ID}))

		// Запись редиректа вне транзакции, пока она открыта
		done := make(chan error, 1)
		go func() {
			done <- s.RecordClick(ctx, &domain.ClickEvent{LinkID: existing.ID})
		}()
		require.NoError(t, <-done)
		require.NoError(t, s.UpsertVideo(ctx, &domain.Video{VideoID: "v2", Title: "Outside", IsActive: true}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.CountClicks(ctx, existing.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "outside click survives, tx click is rolled back")

	links, err := s.ListLinks(ctx, domain.LinkFilter{})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, existing.ID, links[0].ID)

	_, err = s.GetVideo(ctx, "v2")
	assert.NoError(t, err)
}

func TestMemStorage_WithinTxRollbackRestoresUpdates(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedVideo(t, s, "v1", true)

	link := newLink("v1", "https://a.example.com")
	require.NoError(t, s.CreateLink(ctx, link))
	require.NoError(t, s.RecordClick(ctx, &domain.ClickEvent{LinkID: link.ID}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx repository.Storage) error {
		changed := *link
		changed.DestinationURL = "https://changed.example.com"
		require.NoError(t, tx.UpdateLink(ctx, &changed))
		require.NoError(t, tx.UpdateExternalStats(ctx, link.ID, domain.ExternalStats{Events: 9, SyncedAt: time.Now()}))
		require.NoError(t, tx.UpsertVideo(ctx, &domain.Video{VideoID: "v1", Title: "Renamed", IsActive: false}))
		require.NoError(t, tx.UpsertVideo(ctx, &domain.Video{VideoID: "v9", Title: "New"}))
		require.NoError(t, tx.CreateConversion(ctx, &domain.ConversionEvent{EventType: "signup"}))
		require.NoError(t, tx.DeleteLink(ctx, link.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := s.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com", stored.DestinationURL)
	assert.Zero(t, stored.ExternalEvents)
	assert.Nil(t, stored.ExternalLastSyncAt)

	n, err := s.CountClicks(ctx, link.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	video, err := s.GetVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Video v1", video.Title)
	assert.True(t, video.IsActive)
	_, err = s.GetVideo(ctx, "v9")
	assert.ErrorIs(t, err, repository.ErrVideoNotFound)

	convs, err := s.ListConversions(ctx, domain.ConversionFilter{})
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestMemStorage_Conversions(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()
	youtube := "youtube"

	for _, c := range []domain.ConversionEvent{
		{EventType: "purchase", EventValue: 30, Source: &youtube, OccurredAt: now.Add(-time.Hour)},
		{EventType: "purchase", EventValue: 10, Source: &youtube, OccurredAt: now},
		{EventType: "signup", OccurredAt: now.Add(-time.Minute)},
		{EventType: "signup", OccurredAt: now.AddDate(0, 0, -40)},
	} {
		c := c
		require.NoError(t, s.CreateConversion(ctx, &c))
		assert.NotZero(t, c.ID)
	}
	since := now.AddDate(0, 0, -30)

	t.Run("list newest first with filter and limit", func(t *testing.T) {
		all, err := s.ListConversions(ctx, domain.ConversionFilter{Since: since})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, 10.0, all[0].EventValue)
		assert.Equal(t, "signup", all[1].EventType)

		purchases, err := s.ListConversions(ctx, domain.ConversionFilter{Since: since, EventType: "purchase", Limit: 1})
		require.NoError(t, err)
		require.Len(t, purchases, 1)
		assert.Equal(t, 10.0, purchases[0].EventValue)
	})

	t.Run("aggregates", func(t *testing.T) {
		byType, err := s.ConversionsByType(ctx, since)
		require.NoError(t, err)
		assert.Equal(t, []domain.ConversionTypeStats{
			{EventType: "purchase", Count: 2, TotalValue: 40, AvgValue: 20},
			{EventType: "signup", Count: 1},
		}, byType)

		bySource, err := s.ConversionsBySource(ctx, since)
		require.NoError(t, err)
		assert.Equal(t, []domain.ConversionSourceStats{
			{Source: "youtube", Count: 2, TotalValue: 40},
			{Source: domain.UnknownSource, Count: 1},
		}, bySource)
	})
}

func TestMemStorage_ExternalStats(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedVideo(t, s, "v1", true)

	link := newLink("v1", "https://a.example.com")
	require.NoError(t, s.CreateLink(ctx, link))

	syncedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateExternalStats(ctx, link.ID, domain.ExternalStats{Events: 5, Users: 3, Sessions: 4, SyncedAt: syncedAt}))
	assert.ErrorIs(t, s.UpdateExternalStats(ctx, 999, domain.ExternalStats{}), repository.ErrLinkNotFound)

	stored, err := s.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.ExternalEvents)

	summary, err := s.ForwardingSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.ForwardingLinks)
	require.NotNil(t, summary.LastSyncAt)
	assert.True(t, syncedAt.Equal(*summary.LastSyncAt))
}
