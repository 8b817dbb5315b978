package service

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/repository"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// failingStorage ломает создание ссылки для одного видео
type failingStorage struct {
	repository.Storage
	failVideo string
}

var errInjected = errors.New("injected failure")

func (f *failingStorage) CreateLink(ctx context.Context, link *domain.TrackingLink) error {
	if link.VideoID == f.failVideo {
		return errInjected
	}
	return f.Storage.CreateLink(ctx, link)
}

func (f *failingStorage) WithinTx(ctx context.Context, fn func(tx repository.Storage) error) error {
	return f.Storage.WithinTx(ctx, func(tx repository.Storage) error {
		return fn(&failingStorage{Storage: tx, failVideo: f.failVideo})
	})
}

func TestLinkService_BulkGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("one link per active video", func(t *testing.T) {
		svc, storage := setupLinkService(t, "vid001", "vid002", "vid003")
		require.NoError(t, storage.UpsertVideo(ctx, &domain.Video{VideoID: "hidden", Title: "Hidden", IsActive: false}))

		result, err := svc.BulkGenerate(ctx, BulkGenerateRequest{DestinationURL: "https://example.com/offer", UTMCampaign: "fall"})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 3, result.Created)

		seen := make(map[string]bool)
		for _, l := range result.Links {
			q := queryOf(t, l.TrackingURL)
			assert.Equal(t, l.VideoID, q.Get("utm_content"))
			assert.Equal(t, "fall", q.Get("utm_campaign"))
			assert.False(t, seen[l.TrackingURL], "tracking urls must be distinct")
			seen[l.TrackingURL] = true
			assert.Equal(t, "https://t.example.com"+l.ShortPath(), l.ShareableURL)
		}
		assert.NotContains(t, seen, "https://example.com/offer?utm_content=hidden&utm_medium=video&utm_source=youtube")
	})

	t.Run("second run updates existing links", func(t *testing.T) {
		svc, _ := setupLinkService(t, "vid001", "vid002")

		_, err := svc.BulkGenerate(ctx, BulkGenerateRequest{DestinationURL: "https://example.com"})
		require.NoError(t, err)

		result, err := svc.BulkGenerate(ctx, BulkGenerateRequest{DestinationURL: "https://example.com", UTMCampaign: "relaunch", TrackingType: "direct_posthog"})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, 2, result.Updated)
		for _, l := range result.Links {
			assert.Equal(t, domain.TrackingDirectPostHog, l.TrackingType)
			assert.Equal(t, "relaunch", queryOf(t, l.TrackingURL).Get("utm_campaign"))
			assert.Equal(t, l.TrackingURL, l.ShareableURL)
		}

		links, err := svc.ListLinks(ctx, domain.LinkFilter{Limit: DefaultListLimit})
		require.NoError(t, err)
		assert.Len(t, links, 2)
	})

	t.Run("no active videos", func(t *testing.T) {
		svc, _ := setupLinkService(t)
		_, err := svc.BulkGenerate(ctx, BulkGenerateRequest{DestinationURL: "https://example.com"})
		assert.ErrorIs(t, err, ErrNoActiveVideos)
	})

	t.Run("invalid tracking type", func(t *testing.T) {
		svc, _ := setupLinkService(t, "vid001")
		_, err := svc.BulkGenerate(ctx, BulkGenerateRequest{DestinationURL: "https://example.com", TrackingType: "smoke_signal"})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("failure rolls back the whole batch", func(t *testing.T) {
		_, mem := setupLinkService(t, "vid001", "vid002", "vid003")
		storage := &failingStorage{Storage: mem, failVideo: "vid003"}
		svc := NewLinkService(storage, testTrackerConfig, zap.NewNop())

		_, err := svc.BulkGenerate(ctx, BulkGenerateRequest{DestinationURL: "https://example.com"})
		assert.ErrorIs(t, err, errInjected)

		links, err := mem.ListLinks(ctx, domain.LinkFilter{})
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}
