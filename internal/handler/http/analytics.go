package http

import (
	"UTMTrack-Backend/internal/analytics"
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/service"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ForwardingSummarizer источник сводки по пересылке (хранилище ссылок)
type ForwardingSummarizer interface {
	ForwardingSummary(ctx context.Context) (*domain.ForwardingSummary, error)
}

// StatsProvider источник статистики очереди пересылки
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// AnalyticsHandler отчеты и состояние внешней аналитики
type AnalyticsHandler struct {
	links      *service.LinkService
	forwarder  analytics.Forwarder
	syncer     *analytics.Syncer
	summarizer ForwardingSummarizer
	dispatcher StatsProvider
	log        *zap.Logger
	now        func() time.Time
}

func NewAnalyticsHandler(
	links *service.LinkService,
	forwarder analytics.Forwarder,
	syncer *analytics.Syncer,
	summarizer ForwardingSummarizer,
	dispatcher StatsProvider,
	log *zap.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		links:      links,
		forwarder:  forwarder,
		syncer:     syncer,
		summarizer: summarizer,
		dispatcher: dispatcher,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CorrelationResponse структура ответа корреляции просмотров и кликов
type CorrelationResponse struct {
	DaysBack int                        `json:"days_back"`
	Videos   []domain.CorrelationRecord `json:"videos"`
}

// StatusResponse состояние интеграции с внешней аналитикой
type StatusResponse struct {
	Provider   analytics.ProviderStatus  `json:"provider"`
	Forwarding *domain.ForwardingSummary `json:"forwarding"`
	Dispatcher map[string]interface{}    `json:"dispatcher,omitempty"`
	Message    string                    `json:"message"`
}

// SyncResponse итог синхронизации; Error заполняется при недоступном провайдере
type SyncResponse struct {
	analytics.SyncResult
	DaysBack int    `json:"days_back"`
	Error    string `json:"error,omitempty"`
}

// VideoTrafficCorrelation корреляция просмотров видео и кликов по ссылкам
//
//	@Summary		Video traffic correlation
//	@Tags			Analytics
//	@Produce		json
//	@Security		BearerAuth
//	@Param			days_back	query		int	false	"Window in days (1-365)"	default(30)
//	@Success		200			{object}	CorrelationResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/api/v1/analytics/video-traffic-correlation [get]
func (h *AnalyticsHandler) VideoTrafficCorrelation(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, h.log, "days_back", 30)
	if !ok {
		return
	}

	records, err := h.links.VideoTrafficCorrelation(r.Context(), days)
	if err != nil {
		writeServiceError(w, h.log, "build correlation report", err)
		return
	}

	writeJSON(w, CorrelationResponse{DaysBack: days, Videos: records}, http.StatusOK)
}

// ExportCorrelation выгрузка корреляции в XLSX
//
//	@Summary		Export video traffic correlation
//	@Tags			Analytics
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Security		BearerAuth
//	@Param			days_back	query	int	false	"Window in days (1-365)"	default(30)
//	@Success		200			{file}	binary
//	@Failure		422			{object}	ErrorResponse
//	@Router			/api/v1/analytics/video-traffic-correlation/export [get]
func (h *AnalyticsHandler) ExportCorrelation(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, h.log, "days_back", 30)
	if !ok {
		return
	}

	filename, data, err := h.links.ExportCorrelationXLSX(r.Context(), days)
	if err != nil {
		writeServiceError(w, h.log, "export correlation report", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Warn("failed to write export", zap.Error(err))
	}
}

// Status флаги конфигурации провайдера и сводка по пересылке
//
//	@Summary		Analytics integration status
//	@Tags			Analytics
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	StatusResponse
//	@Router			/api/v1/analytics/status [get]
func (h *AnalyticsHandler) Status(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summarizer.ForwardingSummary(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "get forwarding summary", err)
		return
	}

	resp := StatusResponse{
		Provider:   h.forwarder.Status(),
		Forwarding: summary,
	}
	if h.dispatcher != nil {
		resp.Dispatcher = h.dispatcher.GetStats()
	}
	if resp.Provider.Configured {
		resp.Message = fmt.Sprintf("%s integration is active", resp.Provider.Provider)
	} else {
		resp.Message = "analytics provider not configured"
	}

	writeJSON(w, resp, http.StatusOK)
}

// Health проверка доступности провайдера
//
//	@Summary		Analytics provider health
//	@Tags			Analytics
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	analytics.Health
//	@Router			/api/v1/analytics/health [get]
func (h *AnalyticsHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	writeJSON(w, h.forwarder.HealthCheck(ctx), http.StatusOK)
}

// Sync переносит метрики провайдера в ссылки
//
//	@Summary		Sync external analytics
//	@Tags			Analytics
//	@Produce		json
//	@Security		BearerAuth
//	@Param			days_back	query		int	false	"Window in days (1-365)"	default(7)
//	@Success		200			{object}	SyncResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		503			{object}	ErrorResponse	"Provider not configured"
//	@Router			/api/v1/analytics/sync [post]
func (h *AnalyticsHandler) Sync(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, h.log, "days_back", 7)
	if !ok {
		return
	}

	result, err := h.syncer.Sync(r.Context(), days)
	switch {
	case errors.Is(err, analytics.ErrNotConfigured):
		writeError(w, "Analytics provider not configured", http.StatusServiceUnavailable)
	case err != nil:
		writeJSON(w, SyncResponse{DaysBack: days, Error: err.Error()}, http.StatusOK)
	default:
		writeJSON(w, SyncResponse{SyncResult: *result, DaysBack: days}, http.StatusOK)
	}
}

// Website статистика посещений сайта
//
//	@Summary		Website analytics
//	@Tags			Analytics
//	@Produce		json
//	@Security		BearerAuth
//	@Param			days	query		int	false	"Window in days (1-365)"	default(7)
//	@Success		200		{object}	analytics.WebsiteReport
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/v1/analytics/website [get]
func (h *AnalyticsHandler) Website(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, h.log, "days", 7)
	if !ok {
		return
	}

	report := analytics.WebsiteAnalytics(r.Context(), h.forwarder, analytics.LastDays(h.now(), days), h.log)
	writeJSON(w, report, http.StatusOK)
}
