package memory

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

// MemStorage хранит ссылки, клики, видео и конверсии в памяти процесса.
// Используется в тестах и для локального запуска без базы.
type MemStorage struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	links       map[int64]*domain.TrackingLink
	clicks      []domain.ClickEvent
	videos      map[string]*domain.Video
	conversions []domain.ConversionEvent

	linkCounter       int64
	clickCounter      int64
	videoCounter      int64
	conversionCounter int64
}

// undoFunc отменяет одну запись; вызывается под s.mu
type undoFunc func(s *MemStorage)

func New() *MemStorage {
	return &MemStorage{
		links:  make(map[int64]*domain.TrackingLink),
		videos: make(map[string]*domain.Video),
	}
}

// --- Link Methods ---

func (s *MemStorage) CreateLink(_ context.Context, link *domain.TrackingLink) error {
	return s.write(func() (undoFunc, error) { return s.createLink(link) })
}

func (s *MemStorage) createLink(link *domain.TrackingLink) (undoFunc, error) {
	if _, ok := s.videos[link.VideoID]; !ok {
		return nil, repository.ErrVideoNotFound
	}
	if link.PrettySlug != nil && s.slugTaken(*link.PrettySlug, 0) {
		return nil, repository.ErrSlugExists
	}

	s.linkCounter++
	now := time.Now().UTC()
	link.ID = s.linkCounter
	link.CreatedAt = now
	link.UpdatedAt = now
	s.links[link.ID] = cloneLink(link)

	id := link.ID
	return func(s *MemStorage) { s.dropLink(id) }, nil
}

func (s *MemStorage) GetLink(_ context.Context, id int64) (*domain.TrackingLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[id]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	return cloneLink(link), nil
}

func (s *MemStorage) GetLinkBySlug(_ context.Context, slug string) (*domain.TrackingLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.PrettySlug != nil && *link.PrettySlug == slug {
			return cloneLink(link), nil
		}
	}
	return nil, repository.ErrLinkNotFound
}

func (s *MemStorage) UpdateLink(_ context.Context, link *domain.TrackingLink) error {
	return s.write(func() (undoFunc, error) { return s.updateLink(link) })
}

func (s *MemStorage) updateLink(link *domain.TrackingLink) (undoFunc, error) {
	existing, ok := s.links[link.ID]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	if link.PrettySlug != nil && s.slugTaken(*link.PrettySlug, link.ID) {
		return nil, repository.ErrSlugExists
	}

	link.CreatedAt = existing.CreatedAt
	link.UpdatedAt = time.Now().UTC()
	s.links[link.ID] = cloneLink(link)

	return func(s *MemStorage) {
		if _, ok := s.links[existing.ID]; ok {
			s.links[existing.ID] = existing
		}
	}, nil
}

func (s *MemStorage) FindLinkByVideoAndDestination(_ context.Context, videoID, destinationURL string) (*domain.TrackingLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.TrackingLink
	for _, link := range s.links {
		if link.VideoID != videoID || link.DestinationURL != destinationURL {
			continue
		}
		if found == nil || link.ID < found.ID {
			found = link
		}
	}
	if found == nil {
		return nil, repository.ErrLinkNotFound
	}
	return cloneLink(found), nil
}

func (s *MemStorage) ListLinks(_ context.Context, filter domain.LinkFilter) ([]domain.LinkStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.LinkStats
	for _, link := range s.links {
		if filter.VideoID != "" && link.VideoID != filter.VideoID {
			continue
		}
		if filter.ActiveOnly && !link.IsActive {
			continue
		}

		stats := domain.LinkStats{TrackingLink: *cloneLink(link)}
		for i := range s.clicks {
			c := &s.clicks[i]
			if c.LinkID != link.ID {
				continue
			}
			stats.ClickCount++
			if stats.LastClickedAt == nil || c.ClickedAt.After(*stats.LastClickedAt) {
				t := c.ClickedAt
				stats.LastClickedAt = &t
			}
		}
		result = append(result, stats)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.LinkStats{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	if result == nil {
		result = []domain.LinkStats{}
	}
	return result, nil
}

func (s *MemStorage) DeleteLink(_ context.Context, id int64) error {
	return s.write(func() (undoFunc, error) { return s.deleteLink(id) })
}

func (s *MemStorage) deleteLink(id int64) (undoFunc, error) {
	link, ok := s.links[id]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	removed := s.dropLink(id)

	return func(s *MemStorage) {
		s.links[id] = link
		s.clicks = append(s.clicks, removed...)
		sort.Slice(s.clicks, func(i, j int) bool { return s.clicks[i].ID < s.clicks[j].ID })
	}, nil
}

// dropLink удаляет ссылку вместе с кликами и возвращает удаленные клики
func (s *MemStorage) dropLink(id int64) []domain.ClickEvent {
	delete(s.links, id)

	var removed []domain.ClickEvent
	kept := make([]domain.ClickEvent, 0, len(s.clicks))
	for _, c := range s.clicks {
		if c.LinkID == id {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	s.clicks = kept
	return removed
}

func (s *MemStorage) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slugTaken(slug, 0), nil
}

// --- Click Methods ---

func (s *MemStorage) RecordClick(_ context.Context, click *domain.ClickEvent) error {
	return s.write(func() (undoFunc, error) { return s.recordClick(click) })
}

func (s *MemStorage) recordClick(click *domain.ClickEvent) (undoFunc, error) {
	if _, ok := s.links[click.LinkID]; !ok {
		return nil, repository.ErrLinkNotFound
	}
	s.clickCounter++
	click.ID = s.clickCounter
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now().UTC()
	}
	s.clicks = append(s.clicks, *click)

	id := click.ID
	return func(s *MemStorage) {
		for i := range s.clicks {
			if s.clicks[i].ID == id {
				s.clicks = append(s.clicks[:i], s.clicks[i+1:]...)
				return
			}
		}
	}, nil
}

func (s *MemStorage) CountClicks(_ context.Context, linkID int64, since *time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, c := range s.clicks {
		if c.LinkID == linkID && (since == nil || !c.ClickedAt.Before(*since)) {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) ClickTimes(_ context.Context, linkID int64, since time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var times []time.Time
	for _, c := range s.clicks {
		if c.LinkID == linkID && !c.ClickedAt.Before(since) {
			times = append(times, c.ClickedAt)
		}
	}
	return times, nil
}

func (s *MemStorage) GetClicksByDevice(_ context.Context, linkID int64) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clicksByDevice := make(map[string]int64)
	for i := range s.clicks {
		if s.clicks[i].LinkID == linkID {
			clicksByDevice[s.clicks[i].GetDeviceType()]++
		}
	}
	return clicksByDevice, nil
}

func (s *MemStorage) CountClicksByVideo(_ context.Context, videoID string, since *time.Time) (map[int64]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int64]int64)
	for _, link := range s.links {
		if link.VideoID == videoID {
			counts[link.ID] = 0
		}
	}
	for _, c := range s.clicks {
		if _, ok := counts[c.LinkID]; !ok {
			continue
		}
		if since == nil || !c.ClickedAt.Before(*since) {
			counts[c.LinkID]++
		}
	}
	return counts, nil
}

// --- Video Methods ---

func (s *MemStorage) UpsertVideo(_ context.Context, video *domain.Video) error {
	return s.write(func() (undoFunc, error) { return s.upsertVideo(video) })
}

func (s *MemStorage) upsertVideo(video *domain.Video) (undoFunc, error) {
	now := time.Now().UTC()
	existing, ok := s.videos[video.VideoID]
	if ok {
		video.ID = existing.ID
		video.CreatedAt = existing.CreatedAt
	} else {
		s.videoCounter++
		video.ID = s.videoCounter
		video.CreatedAt = now
	}
	video.UpdatedAt = now
	v := *video
	s.videos[video.VideoID] = &v

	key := video.VideoID
	return func(s *MemStorage) {
		if existing != nil {
			s.videos[key] = existing
			return
		}
		delete(s.videos, key)
	}, nil
}

func (s *MemStorage) GetVideo(_ context.Context, videoID string) (*domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.videos[videoID]
	if !ok {
		return nil, repository.ErrVideoNotFound
	}
	v := *video
	return &v, nil
}

func (s *MemStorage) ListVideos(_ context.Context, activeOnly bool) ([]*domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	videos := make([]*domain.Video, 0, len(s.videos))
	for _, video := range s.videos {
		if activeOnly && !video.IsActive {
			continue
		}
		v := *video
		videos = append(videos, &v)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].ID < videos[j].ID })
	return videos, nil
}

// --- Conversion Methods ---

func (s *MemStorage) CreateConversion(_ context.Context, conv *domain.ConversionEvent) error {
	return s.write(func() (undoFunc, error) { return s.createConversion(conv) })
}

func (s *MemStorage) createConversion(conv *domain.ConversionEvent) (undoFunc, error) {
	s.conversionCounter++
	conv.ID = s.conversionCounter
	if conv.OccurredAt.IsZero() {
		conv.OccurredAt = time.Now().UTC()
	}
	s.conversions = append(s.conversions, *conv)

	id := conv.ID
	return func(s *MemStorage) {
		for i := range s.conversions {
			if s.conversions[i].ID == id {
				s.conversions = append(s.conversions[:i], s.conversions[i+1:]...)
				return
			}
		}
	}, nil
}

func (s *MemStorage) ListConversions(_ context.Context, filter domain.ConversionFilter) ([]domain.ConversionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.ConversionEvent{}
	for _, c := range s.conversions {
		if c.OccurredAt.Before(filter.Since) {
			continue
		}
		if filter.EventType != "" && c.EventType != filter.EventType {
			continue
		}
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.After(result[j].OccurredAt)
		}
		return result[i].ID > result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *MemStorage) ConversionsByType(_ context.Context, since time.Time) ([]domain.ConversionTypeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int)
	result := []domain.ConversionTypeStats{}
	for _, c := range s.conversions {
		if c.OccurredAt.Before(since) {
			continue
		}
		i, ok := index[c.EventType]
		if !ok {
			i = len(result)
			index[c.EventType] = i
			result = append(result, domain.ConversionTypeStats{EventType: c.EventType})
		}
		result[i].Count++
		result[i].TotalValue += c.EventValue
	}
	for i := range result {
		result[i].AvgValue = result[i].TotalValue / float64(result[i].Count)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].EventType < result[j].EventType
	})
	return result, nil
}

func (s *MemStorage) ConversionsBySource(_ context.Context, since time.Time) ([]domain.ConversionSourceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int)
	result := []domain.ConversionSourceStats{}
	for i := range s.conversions {
		c := &s.conversions[i]
		if c.OccurredAt.Before(since) {
			continue
		}
		source := c.SourceName()
		j, ok := index[source]
		if !ok {
			j = len(result)
			index[source] = j
			result = append(result, domain.ConversionSourceStats{Source: source})
		}
		result[j].Count++
		result[j].TotalValue += c.EventValue
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Source < result[j].Source
	})
	return result, nil
}

// --- External analytics ---

func (s *MemStorage) UpdateExternalStats(_ context.Context, linkID int64, stats domain.ExternalStats) error {
	return s.write(func() (undoFunc, error) { return s.updateExternalStats(linkID, stats) })
}

func (s *MemStorage) updateExternalStats(linkID int64, stats domain.ExternalStats) (undoFunc, error) {
	link, ok := s.links[linkID]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	prev := cloneLink(link)
	syncedAt := stats.SyncedAt
	link.ExternalEvents = stats.Events
	link.ExternalUsers = stats.Users
	link.ExternalSessions = stats.Sessions
	link.ExternalLastSyncAt = &syncedAt

	return func(s *MemStorage) {
		if cur, ok := s.links[linkID]; ok {
			cur.ExternalEvents = prev.ExternalEvents
			cur.ExternalUsers = prev.ExternalUsers
			cur.ExternalSessions = prev.ExternalSessions
			cur.ExternalLastSyncAt = prev.ExternalLastSyncAt
		}
	}, nil
}

func (s *MemStorage) ForwardingSummary(_ context.Context) (*domain.ForwardingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary := &domain.ForwardingSummary{}
	for _, link := range s.links {
		if link.ForwardingEnabled {
			summary.ForwardingLinks++
		}
		if link.ExternalLastSyncAt != nil && (summary.LastSyncAt == nil || link.ExternalLastSyncAt.After(*summary.LastSyncAt)) {
			t := *link.ExternalLastSyncAt
			summary.LastSyncAt = &t
		}
	}
	return summary, nil
}

// WithinTx выполняет fn с журналом отмены. При ошибке откатываются только
// записи, сделанные через tx; параллельные записи вне транзакции сохраняются.
// Транзакции сериализуются между собой, счетчики ID не откатываются.
func (s *MemStorage) WithinTx(_ context.Context, fn func(tx repository.Storage) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txStorage{MemStorage: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// --- Helpers ---

// write выполняет запись под блокировкой
func (s *MemStorage) write(op func() (undoFunc, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := op()
	return err
}

func (s *MemStorage) slugTaken(slug string, exceptID int64) bool {
	for id, link := range s.links {
		if id != exceptID && link.PrettySlug != nil && *link.PrettySlug == slug {
			return true
		}
	}
	return false
}

func cloneLink(link *domain.TrackingLink) *domain.TrackingLink {
	c := *link
	c.Clicks = nil
	return &c
}
