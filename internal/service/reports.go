package service

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

// VideoLinkPerformance возвращает клики по всем ссылкам видео и CTR
func (s *LinkService) VideoLinkPerformance(ctx context.Context, videoID string) (*domain.VideoLinkPerformance, error) {
	video, err := s.storage.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	links, err := s.storage.ListLinks(ctx, domain.LinkFilter{VideoID: videoID})
	if err != nil {
		return nil, err
	}

	perf := &domain.VideoLinkPerformance{
		VideoID:   video.VideoID,
		Title:     video.Title,
		ViewCount: video.ViewCount,
		Links:     make([]domain.VideoLinkClicks, 0, len(links)),
	}
	for _, l := range links {
		perf.TotalClicks += l.ClickCount
		perf.Links = append(perf.Links, domain.VideoLinkClicks{
			LinkID:         l.ID,
			DestinationURL: l.DestinationURL,
			TrackingURL:    l.TrackingURL,
			UTMCampaign:    l.UTMCampaign,
			Clicks:         l.ClickCount,
			IsActive:       l.IsActive,
		})
	}
	perf.ClickThroughRate = domain.ClickThroughRate(perf.TotalClicks, video.ViewCount, 2)
	perf.ViewsToClickRatio = domain.ViewsToClicksRatio(perf.TotalClicks, video.ViewCount)

	return perf, nil
}

// VideoTrafficCorrelation сопоставляет просмотры видео с кликами по его активным
// ссылкам за последние daysBack дней. Сортировка по просмотрам по убыванию.
func (s *LinkService) VideoTrafficCorrelation(ctx context.Context, daysBack int) ([]domain.CorrelationRecord, error) {
	if err := ValidateDaysBack("days_back", daysBack); err != nil {
		return nil, err
	}

	links, err := s.storage.ListLinks(ctx, domain.LinkFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	activeByVideo := make(map[string][]int64)
	var order []string
	for _, l := range links {
		if _, seen := activeByVideo[l.VideoID]; !seen {
			order = append(order, l.VideoID)
		}
		activeByVideo[l.VideoID] = append(activeByVideo[l.VideoID], l.ID)
	}

	since := s.now().AddDate(0, 0, -daysBack)
	records := make([]domain.CorrelationRecord, 0, len(order))

	for _, videoID := range order {
		record := domain.CorrelationRecord{
			VideoID:   videoID,
			Title:     "Video " + videoID,
			LinkCount: len(activeByVideo[videoID]),
		}

		video, err := s.storage.GetVideo(ctx, videoID)
		switch {
		case err == nil:
			record.Title = video.Title
			record.ViewCount = video.ViewCount
			record.PublishedAt = video.PublishedAt
		case !errors.Is(err, repository.ErrVideoNotFound):
			return nil, err
		}

		counts, err := s.storage.CountClicksByVideo(ctx, videoID, &since)
		if err != nil {
			return nil, err
		}
		for _, id := range activeByVideo[videoID] {
			record.TotalClicks += counts[id]
		}

		record.ClickThroughRate = domain.ClickThroughRate(record.TotalClicks, record.ViewCount, 4)
		record.ViewsToClickRatio = domain.ViewsToClicksRatio(record.TotalClicks, record.ViewCount)
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ViewCount != records[j].ViewCount {
			return records[i].ViewCount > records[j].ViewCount
		}
		return records[i].VideoID < records[j].VideoID
	})

	return records, nil
}

var correlationHeader = []string{
	"video_id", "video_title", "publication_date", "video_views",
	"link_count", "total_clicks", "click_through_rate", "views_to_clicks_ratio",
}

// ExportCorrelationXLSX строит XLSX-файл с отчетом корреляции
func (s *LinkService) ExportCorrelationXLSX(ctx context.Context, daysBack int) (string, []byte, error) {
	records, err := s.VideoTrafficCorrelation(ctx, daysBack)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "correlation"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return "", nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(correlationHeader))
	for i, h := range correlationHeader {
		header[i] = h
	}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		published := ""
		if r.PublishedAt != nil {
			published = r.PublishedAt.UTC().Format(time.RFC3339)
		}
		row := []interface{}{
			r.VideoID, r.Title, published, r.ViewCount,
			r.LinkCount, r.TotalClicks, r.ClickThroughRate, r.ViewsToClickRatio,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", nil, err
		}
		if err := xl.SetSheetRow(sheet, cell, &row); err != nil {
			return "", nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("failed to write xlsx: %w", err)
	}

	filename := fmt.Sprintf("video_traffic_correlation_%dd.xlsx", daysBack)
	return filename, buf.Bytes(), nil
}
