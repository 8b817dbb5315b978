package analytics

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// DailyVisits посещения за день
type DailyVisits struct {
	Date   string `json:"date"`
	Visits int64  `json:"visits"`
}

// PageViews просмотры страницы
type PageViews struct {
	URL   string `json:"url"`
	Views int64  `json:"views"`
}

// WebsiteReport статистика посещений сайта. Поле Error заполняется, когда
// данные получить не удалось; остальные поля при этом нулевые.
type WebsiteReport struct {
	TotalVisits    int64         `json:"total_visits"`
	UniqueVisitors int64         `json:"unique_visitors"`
	PageViews      int64         `json:"page_views"`
	DailyVisits    []DailyVisits `json:"daily_visits"`
	TopPages       []PageViews   `json:"top_pages"`
	PeriodDays     int           `json:"period_days"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	Error          string        `json:"error,omitempty"`
}

func newWebsiteReport(window Window) *WebsiteReport {
	return &WebsiteReport{
		DailyVisits: []DailyVisits{},
		TopPages:    []PageViews{},
		PeriodDays:  window.Days(),
		StartDate:   window.From.UTC().Format(dateLayout),
		EndDate:     window.To.UTC().Format(dateLayout),
	}
}

// WebsiteAnalytics запрашивает статистику сайта у провайдера. Ошибка
// провайдера не возвращается, а превращается в отчет с полем error.
func WebsiteAnalytics(ctx context.Context, f Forwarder, window Window, log *zap.Logger) *WebsiteReport {
	reporter, ok := f.(WebsiteReporter)
	if !ok {
		return degradedWebsiteReport(window, ErrNotSupported)
	}

	report, err := reporter.WebsiteAnalytics(ctx, window)
	if err != nil {
		log.Warn("website analytics unavailable", zap.String("provider", f.Name()), zap.Error(err))
		return degradedWebsiteReport(window, err)
	}
	return report
}

func degradedWebsiteReport(window Window, err error) *WebsiteReport {
	report := newWebsiteReport(window)

	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrNotConfigured):
		report.Error = "PostHog not configured"
	case errors.As(err, &statusErr):
		report.Error = (&StatusError{Code: statusErr.Code}).Error()
	default:
		report.Error = err.Error()
	}
	return report
}
