package postgres

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStorage реализует интерфейс Storage для PostgreSQL
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Link Methods ---

// CreateLink сохраняет новую UTM-ссылку
func (s *PostgresStorage) CreateLink(ctx context.Context, link *domain.TrackingLink) error {
	// Видео должно существовать в каталоге
	var videos int64
	if err := s.db.WithContext(ctx).Model(&domain.Video{}).Where("video_id = ?", link.VideoID).Count(&videos).Error; err != nil {
		s.log.Error("failed to check video existence", zap.String("video_id", link.VideoID), zap.Error(err))
		return fmt.Errorf("failed to check video: %w", err)
	}
	if videos == 0 {
		return repository.ErrVideoNotFound
	}

	// Проверяем, не занят ли slug
	if link.PrettySlug != nil {
		exists, err := s.SlugExists(ctx, *link.PrettySlug)
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrSlugExists
		}
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrSlugExists
		}
		s.log.Error("failed to save utm link", zap.String("video_id", link.VideoID), zap.Error(err))
		return fmt.Errorf("failed to save link: %w", err)
	}

	s.log.Info("saved new utm link", zap.Int64("link_id", link.ID), zap.String("video_id", link.VideoID))
	return nil
}

// GetLink получает ссылку по ID (включая неактивные)
func (s *PostgresStorage) GetLink(ctx context.Context, id int64) (*domain.TrackingLink, error) {
	var link domain.TrackingLink

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.Int64("link_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// GetLinkBySlug получает ссылку по pretty slug
func (s *PostgresStorage) GetLinkBySlug(ctx context.Context, slug string) (*domain.TrackingLink, error) {
	var link domain.TrackingLink

	err := s.db.WithContext(ctx).Where("pretty_slug = ?", slug).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link by slug", zap.String("slug", slug), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// UpdateLink перезаписывает все изменяемые поля ссылки
func (s *PostgresStorage) UpdateLink(ctx context.Context, link *domain.TrackingLink) error {
	result := s.db.WithContext(ctx).Model(link).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(link)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return repository.ErrSlugExists
		}
		s.log.Error("failed to update link", zap.Int64("link_id", link.ID), zap.Error(result.Error))
		return fmt.Errorf("failed to update link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	return nil
}

// FindLinkByVideoAndDestination ищет самую раннюю ссылку видео с данным destination
func (s *PostgresStorage) FindLinkByVideoAndDestination(ctx context.Context, videoID, destinationURL string) (*domain.TrackingLink, error) {
	var link domain.TrackingLink

	err := s.db.WithContext(ctx).
		Where("video_id = ? AND destination_url = ?", videoID, destinationURL).
		Order("id ASC").
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to find link", zap.String("video_id", videoID), zap.Error(err))
		return nil, fmt.Errorf("failed to find link: %w", err)
	}

	return &link, nil
}

// ListLinks возвращает ссылки с количеством кликов, новые первыми
func (s *PostgresStorage) ListLinks(ctx context.Context, filter domain.LinkFilter) ([]domain.LinkStats, error) {
	links := []domain.LinkStats{}

	query := s.db.WithContext(ctx).
		Table("utm_links").
		Select("utm_links.*, COUNT(link_clicks.id) AS click_count, MAX(link_clicks.clicked_at) AS last_clicked_at").
		Joins("LEFT JOIN link_clicks ON link_clicks.utm_link_id = utm_links.id").
		Group("utm_links.id").
		Order("utm_links.created_at DESC, utm_links.id DESC")

	if filter.VideoID != "" {
		query = query.Where("utm_links.video_id = ?", filter.VideoID)
	}
	if filter.ActiveOnly {
		query = query.Where("utm_links.is_active = ?", true)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Scan(&links).Error; err != nil {
		s.log.Error("failed to list links", zap.String("video_id", filter.VideoID), zap.Error(err))
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	return links, nil
}

// DeleteLink удаляет ссылку вместе с ее кликами в одной транзакции
func (s *PostgresStorage) DeleteLink(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("utm_link_id = ?", id).Delete(&domain.ClickEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete clicks: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&domain.TrackingLink{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete link: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrLinkNotFound
		}
		return nil
	})
	if errors.Is(err, repository.ErrLinkNotFound) {
		return err
	}
	if err != nil {
		s.log.Error("failed to delete link", zap.Int64("link_id", id), zap.Error(err))
		return err
	}

	s.log.Info("deleted link", zap.Int64("link_id", id))
	return nil
}

// SlugExists проверяет, занят ли slug
func (s *PostgresStorage) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.TrackingLink{}).Where("pretty_slug = ?", slug).Count(&count).Error
	if err != nil {
		s.log.Error("failed to check slug existence", zap.String("slug", slug), zap.Error(err))
		return false, fmt.Errorf("failed to check slug: %w", err)
	}

	return count > 0, nil
}

// --- Click Methods ---

// RecordClick сохраняет одну запись клика
func (s *PostgresStorage) RecordClick(ctx context.Context, click *domain.ClickEvent) error {
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(click).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return repository.ErrLinkNotFound
		}
		s.log.Error("failed to create click record", zap.Int64("link_id", click.LinkID), zap.Error(err))
		return fmt.Errorf("failed to create click: %w", err)
	}

	return nil
}

// CountClicks считает клики ссылки; since == nil означает за все время
func (s *PostgresStorage) CountClicks(ctx context.Context, linkID int64, since *time.Time) (int64, error) {
	var count int64

	query := s.db.WithContext(ctx).Model(&domain.ClickEvent{}).Where("utm_link_id = ?", linkID)
	if since != nil {
		query = query.Where("clicked_at >= ?", *since)
	}
	if err := query.Count(&count).Error; err != nil {
		s.log.Error("failed to count clicks", zap.Int64("link_id", linkID), zap.Error(err))
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}

	return count, nil
}

// ClickTimes возвращает моменты кликов ссылки начиная с since
func (s *PostgresStorage) ClickTimes(ctx context.Context, linkID int64, since time.Time) ([]time.Time, error) {
	var times []time.Time

	err := s.db.WithContext(ctx).
		Model(&domain.ClickEvent{}).
		Where("utm_link_id = ? AND clicked_at >= ?", linkID, since).
		Order("clicked_at ASC").
		Pluck("clicked_at", &times).Error
	if err != nil {
		s.log.Error("failed to load click times", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to load click times: %w", err)
	}

	return times, nil
}

// GetClicksByDevice возвращает статистику кликов по типам устройств для ссылки
func (s *PostgresStorage) GetClicksByDevice(ctx context.Context, linkID int64) (map[string]int64, error) {
	var results []struct {
		DeviceType string `gorm:"column:device_type"`
		Count      int64  `gorm:"column:count"`
	}

	err := s.db.WithContext(ctx).
		Model(&domain.ClickEvent{}).
		Select("COALESCE(device_type, 'unknown') as device_type, count(*) as count").
		Where("utm_link_id = ?", linkID).
		Group("COALESCE(device_type, 'unknown')").
		Find(&results).Error

	if err != nil {
		s.log.Error("failed to get clicks by device", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to get clicks by device: %w", err)
	}

	clicksByDevice := make(map[string]int64)
	for _, result := range results {
		clicksByDevice[result.DeviceType] = result.Count
	}

	return clicksByDevice, nil
}

// CountClicksByVideo возвращает количество кликов по каждой ссылке видео (нули включены)
func (s *PostgresStorage) CountClicksByVideo(ctx context.Context, videoID string, since *time.Time) (map[int64]int64, error) {
	var results []struct {
		LinkID int64 `gorm:"column:link_id"`
		Clicks int64 `gorm:"column:clicks"`
	}

	query := s.db.WithContext(ctx).
		Table("utm_links").
		Select("utm_links.id AS link_id, COUNT(link_clicks.id) AS clicks")
	if since != nil {
		query = query.Joins("LEFT JOIN link_clicks ON link_clicks.utm_link_id = utm_links.id AND link_clicks.clicked_at >= ?", *since)
	} else {
		query = query.Joins("LEFT JOIN link_clicks ON link_clicks.utm_link_id = utm_links.id")
	}

	err := query.Where("utm_links.video_id = ?", videoID).
		Group("utm_links.id").
		Scan(&results).Error
	if err != nil {
		s.log.Error("failed to count clicks by video", zap.String("video_id", videoID), zap.Error(err))
		return nil, fmt.Errorf("failed to count clicks by video: %w", err)
	}

	counts := make(map[int64]int64, len(results))
	for _, result := range results {
		counts[result.LinkID] = result.Clicks
	}

	return counts, nil
}

// --- Video Methods ---

// UpsertVideo создает или обновляет видео по video_id
func (s *PostgresStorage) UpsertVideo(ctx context.Context, video *domain.Video) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "view_count", "published_at", "is_active", "updated_at"}),
	}).Create(video).Error
	if err != nil {
		s.log.Error("failed to upsert video", zap.String("video_id", video.VideoID), zap.Error(err))
		return fmt.Errorf("failed to upsert video: %w", err)
	}

	// Перечитываем запись, чтобы вернуть исходный created_at
	if err := s.db.WithContext(ctx).Where("video_id = ?", video.VideoID).First(video).Error; err != nil {
		return fmt.Errorf("failed to reload video: %w", err)
	}

	return nil
}

// GetVideo получает видео по video_id
func (s *PostgresStorage) GetVideo(ctx context.Context, videoID string) (*domain.Video, error) {
	var video domain.Video

	err := s.db.WithContext(ctx).Where("video_id = ?", videoID).First(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrVideoNotFound
	}
	if err != nil {
		s.log.Error("failed to get video", zap.String("video_id", videoID), zap.Error(err))
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &video, nil
}

// ListVideos возвращает каталог видео
func (s *PostgresStorage) ListVideos(ctx context.Context, activeOnly bool) ([]*domain.Video, error) {
	var videos []*domain.Video

	query := s.db.WithContext(ctx).Order("id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&videos).Error; err != nil {
		s.log.Error("failed to list videos", zap.Error(err))
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	return videos, nil
}

// --- Conversion Methods ---

// CreateConversion сохраняет событие конверсии
func (s *PostgresStorage) CreateConversion(ctx context.Context, conv *domain.ConversionEvent) error {
	if conv.OccurredAt.IsZero() {
		conv.OccurredAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		s.log.Error("failed to create conversion", zap.String("event_type", conv.EventType), zap.Error(err))
		return fmt.Errorf("failed to create conversion: %w", err)
	}

	return nil
}

// ListConversions возвращает конверсии начиная с filter.Since, новые первыми
func (s *PostgresStorage) ListConversions(ctx context.Context, filter domain.ConversionFilter) ([]domain.ConversionEvent, error) {
	conversions := []domain.ConversionEvent{}

	query := s.db.WithContext(ctx).Where("date >= ?", filter.Since)
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("date DESC, id DESC").Find(&conversions).Error; err != nil {
		s.log.Error("failed to list conversions", zap.Error(err))
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	return conversions, nil
}

// ConversionsByType группирует конверсии по типу события
func (s *PostgresStorage) ConversionsByType(ctx context.Context, since time.Time) ([]domain.ConversionTypeStats, error) {
	stats := []domain.ConversionTypeStats{}

	err := s.db.WithContext(ctx).
		Model(&domain.ConversionEvent{}).
		Select("event_type, COUNT(*) AS count, COALESCE(SUM(event_value), 0) AS total_value, COALESCE(AVG(event_value), 0) AS avg_value").
		Where("date >= ?", since).
		Group("event_type").
		Order("count DESC, event_type ASC").
		Scan(&stats).Error
	if err != nil {
		s.log.Error("failed to aggregate conversions by type", zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate conversions by type: %w", err)
	}

	return stats, nil
}

// ConversionsBySource группирует конверсии по источнику; без источника - "unknown"
func (s *PostgresStorage) ConversionsBySource(ctx context.Context, since time.Time) ([]domain.ConversionSourceStats, error) {
	stats := []domain.ConversionSourceStats{}

	source := "COALESCE(NULLIF(youtube_source, ''), '" + domain.UnknownSource + "')"
	err := s.db.WithContext(ctx).
		Model(&domain.ConversionEvent{}).
		Select(source+" AS source, COUNT(*) AS count, COALESCE(SUM(event_value), 0) AS total_value").
		Where("date >= ?", since).
		Group(source).
		Order("count DESC, source ASC").
		Scan(&stats).Error
	if err != nil {
		s.log.Error("failed to aggregate conversions by source", zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate conversions by source: %w", err)
	}

	return stats, nil
}

// --- External analytics ---

// UpdateExternalStats сохраняет метрики, полученные от внешней аналитики
func (s *PostgresStorage) UpdateExternalStats(ctx context.Context, linkID int64, stats domain.ExternalStats) error {
	result := s.db.WithContext(ctx).Model(&domain.TrackingLink{}).Where("id = ?", linkID).Updates(map[string]interface{}{
		"external_events":       stats.Events,
		"external_users":        stats.Users,
		"external_sessions":     stats.Sessions,
		"external_last_sync_at": stats.SyncedAt,
	})
	if result.Error != nil {
		s.log.Error("failed to update external stats", zap.Int64("link_id", linkID), zap.Error(result.Error))
		return fmt.Errorf("failed to update external stats: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	return nil
}

// ForwardingSummary возвращает число ссылок с пересылкой и время последней синхронизации
func (s *PostgresStorage) ForwardingSummary(ctx context.Context) (*domain.ForwardingSummary, error) {
	summary := &domain.ForwardingSummary{}

	err := s.db.WithContext(ctx).Model(&domain.TrackingLink{}).
		Where("forwarding_enabled = ?", true).
		Count(&summary.ForwardingLinks).Error
	if err != nil {
		s.log.Error("failed to count forwarding links", zap.Error(err))
		return nil, fmt.Errorf("failed to count forwarding links: %w", err)
	}

	var lastSync sql.NullTime
	err = s.db.WithContext(ctx).Model(&domain.TrackingLink{}).
		Select("MAX(external_last_sync_at)").
		Row().Scan(&lastSync)
	if err != nil {
		s.log.Error("failed to get last sync time", zap.Error(err))
		return nil, fmt.Errorf("failed to get last sync time: %w", err)
	}
	if lastSync.Valid {
		summary.LastSyncAt = &lastSync.Time
	}

	return summary, nil
}

// WithinTx выполняет fn в транзакции; любая ошибка откатывает все изменения
func (s *PostgresStorage) WithinTx(ctx context.Context, fn func(tx repository.Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresStorage{db: tx, log: s.log})
	})
}
