package http

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/service"
	"net/http"

	"go.uber.org/zap"
)

// SessionHeader заголовок с идентификатором сессии сайта
const SessionHeader = "X-Session-ID"

// ConversionsHandler обработчик событий конверсий
type ConversionsHandler struct {
	conversions *service.ConversionService
	log         *zap.Logger
}

func NewConversionsHandler(conversions *service.ConversionService, log *zap.Logger) *ConversionsHandler {
	return &ConversionsHandler{conversions: conversions, log: log}
}

// ListConversionsResponse структура ответа списка конверсий
type ListConversionsResponse struct {
	Conversions []domain.ConversionEvent `json:"conversions"`
	Count       int                      `json:"count"`
}

// TrackConversion записывает одну конверсию
//
//	@Summary		Track a conversion
//	@Description	Store a conversion event, optionally attributed to a UTM link, and forward it to analytics
//	@Tags			Conversions
//	@Accept			json
//	@Produce		json
//	@Param			X-Session-ID	header		string						false	"Site session ID"
//	@Param			request			body		service.ConversionRequest	true	"Conversion event"
//	@Success		201				{object}	domain.ConversionEvent
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse	"UTM link not found"
//	@Failure		422				{object}	ErrorResponse
//	@Router			/api/v1/conversions [post]
func (h *ConversionsHandler) TrackConversion(w http.ResponseWriter, r *http.Request) {
	var req service.ConversionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	conv, err := h.conversions.Record(r.Context(), req, r.Header.Get(SessionHeader))
	if err != nil {
		writeServiceError(w, h.log, "track conversion", err)
		return
	}

	writeJSON(w, conv, http.StatusCreated)
}

// TrackBulkConversions записывает пакет конверсий
//
//	@Summary		Track conversions in bulk
//	@Description	Unknown link IDs are stored unattributed
//	@Tags			Conversions
//	@Accept			json
//	@Produce		json
//	@Param			X-Session-ID	header		string						false	"Site session ID"
//	@Param			request			body		[]service.ConversionRequest	true	"Conversion events"
//	@Success		201				{object}	service.BulkConversionResult
//	@Failure		400				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Router			/api/v1/conversions/bulk [post]
func (h *ConversionsHandler) TrackBulkConversions(w http.ResponseWriter, r *http.Request) {
	var reqs []service.ConversionRequest
	if err := decodeJSON(r, &reqs, false); err != nil {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	result, err := h.conversions.RecordBulk(r.Context(), reqs, r.Header.Get(SessionHeader))
	if err != nil {
		writeServiceError(w, h.log, "track bulk conversions", err)
		return
	}

	writeJSON(w, result, http.StatusCreated)
}

// ListConversions последние конверсии
//
//	@Summary		List recent conversions
//	@Tags			Conversions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			event_type	query		string	false	"Filter by event type"
//	@Param			days		query		int		false	"Window in days (1-365)"	default(30)
//	@Success		200			{object}	ListConversionsResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/api/v1/conversions [get]
func (h *ConversionsHandler) ListConversions(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, h.log, "days", service.DefaultConversionDays)
	if !ok {
		return
	}

	conversions, err := h.conversions.List(r.Context(), r.URL.Query().Get("event_type"), days)
	if err != nil {
		writeServiceError(w, h.log, "list conversions", err)
		return
	}

	writeJSON(w, ListConversionsResponse{Conversions: conversions, Count: len(conversions)}, http.StatusOK)
}

// ConversionAnalytics сводка конверсий
//
//	@Summary		Conversion analytics
//	@Description	Totals with breakdowns by event type and traffic source
//	@Tags			Conversions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			days	query		int	false	"Window in days (1-365)"	default(30)
//	@Success		200		{object}	domain.ConversionReport
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/v1/conversions/analytics [get]
func (h *ConversionsHandler) ConversionAnalytics(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, h.log, "days", service.DefaultConversionDays)
	if !ok {
		return
	}

	report, err := h.conversions.Analytics(r.Context(), days)
	if err != nil {
		writeServiceError(w, h.log, "build conversion analytics", err)
		return
	}

	writeJSON(w, report, http.StatusOK)
}
