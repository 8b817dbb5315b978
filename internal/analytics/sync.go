package analytics

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/metrics"
	"UTMTrack-Backend/internal/repository"
	"context"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// SyncResult итог синхронизации
type SyncResult struct {
	Synced int `json:"synced"`
	Errors int `json:"errors"`
}

// Syncer переносит метрики внешней аналитики в ссылки
type Syncer struct {
	storage   repository.Storage
	forwarder Forwarder
	log       *zap.Logger
	now       func() time.Time
}

func NewSyncer(storage repository.Storage, forwarder Forwarder, log *zap.Logger) *Syncer {
	return &Syncer{
		storage:   storage,
		forwarder: forwarder,
		log:       log.With(zap.String("component", "syncer")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Sync запрашивает отчет за последние daysBack дней и обновляет внешние
// метрики ссылок. Строки с нечисловым или неизвестным link_id, а также
// ошибки записи увеличивают Errors, синхронизация при этом продолжается.
func (s *Syncer) Sync(ctx context.Context, daysBack int) (*SyncResult, error) {
	now := s.now()
	report, err := s.forwarder.FetchAnalytics(ctx, LastDays(now, daysBack))
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		s.log.Warn("analytics sync failed", zap.String("provider", s.forwarder.Name()), zap.Error(err))
		return nil, err
	}

	result := &SyncResult{}

	// Одна ссылка может встречаться в нескольких разбивках (разные source/campaign)
	totals := make(map[int64]*domain.ExternalStats)
	for _, row := range report.Rows {
		linkID, err := strconv.ParseInt(row.LinkID, 10, 64)
		if err != nil {
			result.Errors++
			s.log.Debug("skipping row with non-numeric link id", zap.String("link_id", row.LinkID))
			continue
		}
		stats, ok := totals[linkID]
		if !ok {
			stats = &domain.ExternalStats{SyncedAt: now}
			totals[linkID] = stats
		}
		stats.Events += row.Events
		stats.Users += row.Users
		stats.Sessions += row.Sessions
	}

	ids := make([]int64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := s.storage.UpdateExternalStats(ctx, id, *totals[id]); err != nil {
			result.Errors++
			s.log.Warn("failed to update external stats", zap.Int64("link_id", id), zap.Error(err))
			continue
		}
		result.Synced++
	}

	metrics.SyncRuns.WithLabelValues("success").Inc()
	metrics.SyncedLinks.Add(float64(result.Synced))
	s.log.Info("analytics sync completed",
		zap.Int("days_back", daysBack),
		zap.Int("rows", len(report.Rows)),
		zap.Int("synced", result.Synced),
		zap.Int("errors", result.Errors))

	return result, nil
}
