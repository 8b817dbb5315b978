package domain

import (
	"fmt"
	"math"
	"time"
)

// DailyClicks количество кликов за календарный день (UTC)
type DailyClicks struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// LinkAnalytics статистика одной ссылки за окно
type LinkAnalytics struct {
	LinkID          int64            `json:"link_id"`
	TotalClicks     int64            `json:"total_clicks"`
	RecentClicks    int64            `json:"recent_clicks"`
	DaysBack        int              `json:"days_back"`
	DailyClicks     []DailyClicks    `json:"daily_clicks"`
	ClicksByDevice  map[string]int64 `json:"clicks_by_device"`
	ExternalEvents  int64            `json:"external_events"`
	ExternalUsers   int64            `json:"external_users"`
	ExternalSyncAt  *time.Time       `json:"external_last_sync_at,omitempty"`
	TrackingType    TrackingType     `json:"tracking_type"`
	ForwardingState bool             `json:"forwarding_enabled"`
}

// VideoLinkClicks ссылка видео с количеством кликов
type VideoLinkClicks struct {
	LinkID         int64   `json:"link_id"`
	DestinationURL string  `json:"destination_url"`
	TrackingURL    string  `json:"tracking_url"`
	UTMCampaign    *string `json:"utm_campaign,omitempty"`
	Clicks         int64   `json:"clicks"`
	IsActive       bool    `json:"is_active"`
}

// VideoLinkPerformance эффективность ссылок одного видео
type VideoLinkPerformance struct {
	VideoID           string            `json:"video_id"`
	Title             string            `json:"title"`
	ViewCount         int64             `json:"view_count"`
	Links             []VideoLinkClicks `json:"links"`
	TotalClicks       int64             `json:"total_clicks"`
	ClickThroughRate  float64           `json:"click_through_rate"`
	ViewsToClickRatio string            `json:"views_to_clicks_ratio"`
}

// CorrelationRecord связь просмотров видео и кликов по его ссылкам
type CorrelationRecord struct {
	VideoID           string     `json:"video_id"`
	Title             string     `json:"title"`
	ViewCount         int64      `json:"view_count"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
	LinkCount         int        `json:"link_count"`
	TotalClicks       int64      `json:"total_clicks"`
	ClickThroughRate  float64    `json:"click_through_rate"`
	ViewsToClickRatio string     `json:"views_to_clicks_ratio"`
}

// ClickThroughRate clicks / views * 100 с округлением до decimals знаков.
// При нуле просмотров возвращает 0.
func ClickThroughRate(clicks, views int64, decimals int) float64 {
	if views <= 0 {
		return 0
	}
	rate := float64(clicks) / float64(views) * 100
	scale := math.Pow10(decimals)
	return math.Round(rate*scale) / scale
}

// ViewsToClicksRatio форматирует соотношение "1:N"; "N/A" когда просмотров нет.
// При нуле кликов делитель считается равным 1.
func ViewsToClicksRatio(clicks, views int64) string {
	if views <= 0 {
		return "N/A"
	}
	if clicks < 1 {
		clicks = 1
	}
	return fmt.Sprintf("1:%d", views/clicks)
}
