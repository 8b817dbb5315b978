package analytics

import (
	"UTMTrack-Backend/internal/config"
	"UTMTrack-Backend/internal/domain"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// ClickEventName имя события клика во внешней аналитике
	ClickEventName = "utm_link_click"
	eventCategory  = "UTM Tracking"
	dateLayout     = "2006-01-02"
	topPagesLimit  = 10
)

// PostHog адаптер PostHog: capture API для событий и insights API для отчетов
type PostHog struct {
	cfg    config.PostHog
	client *http.Client
	log    *zap.Logger
}

func NewPostHog(cfg config.PostHog, timeout time.Duration, log *zap.Logger) *PostHog {
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return &PostHog{
		cfg:    cfg,
		client: newHTTPClient(timeout),
		log:    log.With(zap.String("provider", "posthog")),
	}
}

func (p *PostHog) Name() string { return "posthog" }

// configured ключ проекта задан: события можно отправлять
func (p *PostHog) configured() bool {
	return p.cfg.APIKey != ""
}

// canQuery можно выполнять запросы к insights API
func (p *PostHog) canQuery() bool {
	return p.queryKey() != "" && p.cfg.ProjectID != ""
}

func (p *PostHog) queryKey() string {
	if p.cfg.PersonalAPIKey != "" {
		return p.cfg.PersonalAPIKey
	}
	return p.cfg.APIKey
}

func (p *PostHog) Status() ProviderStatus {
	return ProviderStatus{
		Provider:   p.Name(),
		Configured: p.configured() && p.cfg.ProjectID != "",
		CanQuery:   p.canQuery(),
	}
}

type captureRequest struct {
	APIKey     string                 `json:"api_key"`
	Event      string                 `json:"event"`
	DistinctID string                 `json:"distinct_id"`
	Properties map[string]interface{} `json:"properties"`
	Timestamp  string                 `json:"timestamp,omitempty"`
}

// SendClickEvent отправляет событие utm_link_click через capture API
func (p *PostHog) SendClickEvent(ctx context.Context, link *domain.TrackingLink, click *domain.ClickEvent) error {
	if !p.configured() {
		return ErrNotConfigured
	}

	req := captureRequest{
		APIKey:     p.cfg.APIKey,
		Event:      ClickEventName,
		DistinctID: uuid.NewString(),
		Properties: clickProperties(link, click),
	}
	if click != nil && !click.ClickedAt.IsZero() {
		req.Timestamp = click.ClickedAt.UTC().Format(time.RFC3339)
	}

	if err := doJSON(ctx, p.client, http.MethodPost, p.cfg.Host+"/capture/", nil, req, nil); err != nil {
		return fmt.Errorf("posthog capture: %w", err)
	}

	p.log.Debug("click event captured", zap.Int64("link_id", link.ID))
	return nil
}

// ConversionEventName имя события конверсии: conversion_<event_type>
func ConversionEventName(eventType string) string {
	return "conversion_" + eventType
}

// SendConversionEvent отправляет событие conversion_<type> через capture API
func (p *PostHog) SendConversionEvent(ctx context.Context, conv *domain.ConversionEvent, link *domain.TrackingLink) error {
	if !p.configured() {
		return ErrNotConfigured
	}

	distinctID := deref(conv.UserID)
	if distinctID == "" {
		distinctID = uuid.NewString()
	}
	req := captureRequest{
		APIKey:     p.cfg.APIKey,
		Event:      ConversionEventName(conv.EventType),
		DistinctID: distinctID,
		Properties: conversionProperties(conv, link),
	}
	if !conv.OccurredAt.IsZero() {
		req.Timestamp = conv.OccurredAt.UTC().Format(time.RFC3339)
	}

	if err := doJSON(ctx, p.client, http.MethodPost, p.cfg.Host+"/capture/", nil, req, nil); err != nil {
		return fmt.Errorf("posthog capture: %w", err)
	}

	p.log.Debug("conversion event captured", zap.Int64("conversion_id", conv.ID), zap.String("event_type", conv.EventType))
	return nil
}

// conversionProperties свойства конверсии; пользовательские свойства не
// перекрывают служебные ключи
func conversionProperties(conv *domain.ConversionEvent, link *domain.TrackingLink) map[string]interface{} {
	props := make(map[string]interface{}, len(conv.Properties)+10)
	for k, v := range conv.Properties {
		props[k] = v
	}
	props["event_type"] = conv.EventType
	props["event_value"] = conv.EventValue
	props["event_category"] = "Conversion"
	props["event_action"] = conv.EventType
	if sid := deref(conv.SessionID); sid != "" {
		props["$session_id"] = sid
	}
	if link == nil {
		return props
	}

	utm := link.UTM()
	set := func(key, value string) {
		if value != "" {
			props[key] = value
		}
	}
	set("utm_source", utm.Source)
	set("utm_medium", utm.Medium)
	set("utm_campaign", utm.Campaign)
	set("utm_content", utm.Content)
	set("utm_term", utm.Term)
	props["source_video_id"] = link.VideoID
	props["source_link_id"] = strconv.FormatInt(link.ID, 10)
	return props
}

// clickProperties свойства события; пустые значения не передаются
func clickProperties(link *domain.TrackingLink, click *domain.ClickEvent) map[string]interface{} {
	utm := link.UTM()
	props := map[string]interface{}{
		"link_url":       link.DestinationURL,
		"video_id":       link.VideoID,
		"link_id":        strconv.FormatInt(link.ID, 10),
		"tracking_type":  string(link.TrackingType),
		"event_category": eventCategory,
		"event_action":   "click",
		"event_value":    1,
		"$current_url":   link.DestinationURL,
	}
	set := func(key, value string) {
		if value != "" {
			props[key] = value
		}
	}
	set("utm_source", utm.Source)
	set("utm_medium", utm.Medium)
	set("utm_campaign", utm.Campaign)
	set("utm_content", utm.Content)
	set("utm_term", utm.Term)
	if click != nil {
		set("$user_agent", deref(click.UserAgent))
		set("$ip", deref(click.IPAddress))
		set("$referrer", deref(click.Referrer))
		set("$device_type", deref(click.DeviceType))
		set("$browser", deref(click.Browser))
		set("$os", deref(click.OS))
	}
	return props
}

type trendEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type trendQuery struct {
	Events        []trendEvent `json:"events"`
	DateFrom      string       `json:"date_from"`
	DateTo        string       `json:"date_to"`
	Interval      string       `json:"interval,omitempty"`
	Breakdown     interface{}  `json:"breakdown,omitempty"`
	BreakdownType string       `json:"breakdown_type,omitempty"`
}

type trendSeries struct {
	BreakdownValue interface{} `json:"breakdown_value"`
	Labels         []string    `json:"labels"`
	Data           []float64   `json:"data"`
}

type trendResponse struct {
	Result []trendSeries `json:"result"`
}

func (s trendSeries) total() int64 {
	var sum float64
	for _, v := range s.Data {
		sum += v
	}
	return int64(sum)
}

func (p *PostHog) trend(ctx context.Context, q trendQuery) (*trendResponse, error) {
	url := fmt.Sprintf("%s/api/projects/%s/insights/trend/", p.cfg.Host, p.cfg.ProjectID)
	headers := map[string]string{"Authorization": "Bearer " + p.queryKey()}

	var resp trendResponse
	if err := doJSON(ctx, p.client, http.MethodPost, url, headers, q, &resp); err != nil {
		return nil, fmt.Errorf("posthog trend query: %w", err)
	}
	return &resp, nil
}

func windowQuery(event string, w Window) trendQuery {
	return trendQuery{
		Events:   []trendEvent{{ID: event, Name: event}},
		DateFrom: w.From.UTC().Format(dateLayout),
		DateTo:   w.To.UTC().Format(dateLayout),
	}
}

// FetchAnalytics события кликов за окно с разбивкой по источнику, кампании, ссылке и видео
func (p *PostHog) FetchAnalytics(ctx context.Context, window Window) (*Report, error) {
	if !p.canQuery() {
		return nil, ErrNotConfigured
	}

	q := windowQuery(ClickEventName, window)
	q.Breakdown = []string{"utm_source", "utm_campaign", "link_id", "video_id"}
	q.BreakdownType = "event"

	resp, err := p.trend(ctx, q)
	if err != nil {
		return nil, err
	}

	report := &Report{Window: window, Rows: make([]LinkMetrics, 0, len(resp.Result))}
	for _, series := range resp.Result {
		parts := breakdownParts(series.BreakdownValue)
		count := series.total()
		report.Rows = append(report.Rows, LinkMetrics{
			UTMSource:   partAt(parts, 0),
			UTMCampaign: partAt(parts, 1),
			LinkID:      partAt(parts, 2),
			VideoID:     partAt(parts, 3),
			Events:      count,
			// trend API не отдает пользователей и сессии отдельно
			Users:    count,
			Sessions: count,
		})
	}

	p.log.Debug("analytics fetched", zap.Int("rows", len(report.Rows)), zap.Int("days", window.Days()))
	return report, nil
}

// HealthCheck проверяет доступ к проекту PostHog
func (p *PostHog) HealthCheck(ctx context.Context) Health {
	h := Health{Provider: p.Name()}
	if !p.canQuery() {
		h.Status = HealthNotConfigured
		h.Message = "PostHog not configured"
		return h
	}

	url := fmt.Sprintf("%s/api/projects/%s/", p.cfg.Host, p.cfg.ProjectID)
	headers := map[string]string{"Authorization": "Bearer " + p.queryKey()}
	err := doJSON(ctx, p.client, http.MethodGet, url, headers, nil, nil)

	var statusErr *StatusError
	switch {
	case err == nil:
		h.Status = HealthHealthy
	case errors.As(err, &statusErr):
		h.Status = HealthUnhealthy
		h.Message = statusErr.Error()
	default:
		h.Status = HealthError
		h.Message = err.Error()
	}
	return h
}

// WebsiteAnalytics статистика просмотров страниц сайта за окно
func (p *PostHog) WebsiteAnalytics(ctx context.Context, window Window) (*WebsiteReport, error) {
	if !p.canQuery() {
		return nil, ErrNotConfigured
	}

	report := newWebsiteReport(window)

	daily := windowQuery("$pageview", window)
	daily.Interval = "day"
	resp, err := p.trend(ctx, daily)
	if err != nil {
		return nil, err
	}
	if len(resp.Result) > 0 {
		series := resp.Result[0]
		for i, label := range series.Labels {
			var visits int64
			if i < len(series.Data) {
				visits = int64(series.Data[i])
			}
			report.DailyVisits = append(report.DailyVisits, DailyVisits{Date: label, Visits: visits})
			report.TotalVisits += visits
		}
	}
	report.PageViews = report.TotalVisits

	// Уникальные посетители и топ страниц - вторичные запросы, их ошибки не валят отчет
	visitors := windowQuery("$pageview", window)
	visitors.Breakdown = "distinct_id"
	visitors.BreakdownType = "person"
	if resp, err := p.trend(ctx, visitors); err != nil {
		p.log.Warn("unique visitors query failed", zap.Error(err))
	} else {
		report.UniqueVisitors = int64(len(resp.Result))
	}

	pages := windowQuery("$pageview", window)
	pages.Breakdown = "$current_url"
	pages.BreakdownType = "event"
	if resp, err := p.trend(ctx, pages); err != nil {
		p.log.Warn("top pages query failed", zap.Error(err))
	} else {
		report.TopPages = topPages(resp.Result)
	}

	return report, nil
}

func topPages(result []trendSeries) []PageViews {
	pages := make([]PageViews, 0, topPagesLimit)
	for _, series := range result {
		views := series.total()
		if views <= 0 {
			continue
		}
		url := partAt(breakdownParts(series.BreakdownValue), 0)
		if url == "" {
			url = "Unknown"
		}
		pages = append(pages, PageViews{URL: url, Views: views})
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Views > pages[j].Views })
	if len(pages) > topPagesLimit {
		pages = pages[:topPagesLimit]
	}
	return pages
}

// breakdownParts приводит breakdown_value (строка, число или массив) к списку строк
func breakdownParts(v interface{}) []string {
	switch value := v.(type) {
	case nil:
		return nil
	case []interface{}:
		parts := make([]string, len(value))
		for i, item := range value {
			parts[i] = scalarString(item)
		}
		return parts
	default:
		return []string{scalarString(value)}
	}
}

func scalarString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}

func partAt(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
