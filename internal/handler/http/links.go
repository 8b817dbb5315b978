package http

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/service"
	"net/http"

	"go.uber.org/zap"
)

// LinksHandler обработчик для работы с UTM-ссылками
type LinksHandler struct {
	links    *service.LinkService
	resolver *service.Resolver
	log      *zap.Logger
}

// NewLinksHandler создает новый обработчик ссылок
func NewLinksHandler(links *service.LinkService, resolver *service.Resolver, log *zap.Logger) *LinksHandler {
	return &LinksHandler{
		links:    links,
		resolver: resolver,
		log:      log,
	}
}

// LinkResponse ссылка с адресом для публикации
type LinkResponse struct {
	*domain.TrackingLink
	ShortURL     string `json:"short_url"`
	ShareableURL string `json:"shareable_url"`
}

// LinkStatsResponse ссылка со статистикой кликов
type LinkStatsResponse struct {
	domain.LinkStats
	ShortURL     string `json:"short_url"`
	ShareableURL string `json:"shareable_url"`
}

// ListLinksResponse структура ответа списка ссылок
type ListLinksResponse struct {
	Links  []LinkStatsResponse `json:"links"`
	Count  int                 `json:"count"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ClickResponse структура ответа записи клика
type ClickResponse struct {
	Success bool               `json:"success"`
	Click   *domain.ClickEvent `json:"click"`
}

func (h *LinksHandler) linkResponse(link *domain.TrackingLink) LinkResponse {
	base := h.links.BaseURL()
	return LinkResponse{
		TrackingLink: link,
		ShortURL:     base + link.ShortPath(),
		ShareableURL: link.ShareableURL(base),
	}
}

// CreateLink создает новую UTM-ссылку
//
//	@Summary		Create a UTM link
//	@Description	Create a tracking link for a video
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		service.CreateLinkRequest	true	"Link creation request"
//	@Success		201		{object}	LinkResponse	"Link created successfully"
//	@Failure		400		{object}	ErrorResponse	"Malformed request"
//	@Failure		404		{object}	ErrorResponse	"Video not found"
//	@Failure		409		{object}	ErrorResponse	"Pretty slug already exists"
//	@Failure		422		{object}	ErrorResponse	"Validation failed"
//	@Router			/api/v1/utm-links [post]
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLinkRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.log.Debug("invalid create link request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	link, err := h.links.CreateLink(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, "create UTM link", err)
		return
	}

	writeJSON(w, h.linkResponse(link), http.StatusCreated)
}

// ListLinks возвращает ссылки со статистикой кликов
//
//	@Summary		List UTM links
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Param			video_id	query		string	false	"Filter by video"
//	@Param			active_only	query		bool	false	"Only active links"	default(true)
//	@Param			limit		query		int		false	"Page size (1-1000)"	default(100)
//	@Param			offset		query		int		false	"Offset"	default(0)
//	@Success		200			{object}	ListLinksResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/api/v1/utm-links [get]
func (h *LinksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	filter := domain.LinkFilter{VideoID: r.URL.Query().Get("video_id")}

	var err error
	if filter.ActiveOnly, err = queryBool(r, "active_only", true); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", service.DefaultListLimit); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	links, err := h.links.ListLinks(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, "list UTM links", err)
		return
	}

	base := h.links.BaseURL()
	resp := ListLinksResponse{
		Links:  make([]LinkStatsResponse, 0, len(links)),
		Count:  len(links),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, l := range links {
		resp.Links = append(resp.Links, LinkStatsResponse{
			LinkStats:    l,
			ShortURL:     base + l.ShortPath(),
			ShareableURL: l.ShareableURL(base),
		})
	}

	writeJSON(w, resp, http.StatusOK)
}

// GetLink возвращает одну ссылку
//
//	@Summary		Get a UTM link
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Link ID"
//	@Success		200	{object}	LinkResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/utm-links/{id} [get]
func (h *LinksHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	link, err := h.links.GetLink(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "get UTM link", err)
		return
	}

	writeJSON(w, h.linkResponse(link), http.StatusOK)
}

// UpdateLink частично обновляет ссылку
//
//	@Summary		Update a UTM link
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int							true	"Link ID"
//	@Param			request	body		service.UpdateLinkRequest	true	"Fields to change"
//	@Success		200		{object}	LinkResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/v1/utm-links/{id} [patch]
func (h *LinksHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req service.UpdateLinkRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	link, err := h.links.UpdateLink(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.log, "update UTM link", err)
		return
	}

	writeJSON(w, h.linkResponse(link), http.StatusOK)
}

// DeleteLink удаляет ссылку вместе с кликами
//
//	@Summary		Delete a UTM link
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Link ID"
//	@Success		200	{object}	SuccessResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/utm-links/{id} [delete]
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.links.DeleteLink(r.Context(), id); err != nil {
		writeServiceError(w, h.log, "delete UTM link", err)
		return
	}

	h.log.Info("UTM link deleted", zap.Int64("link_id", id))
	writeJSON(w, SuccessResponse{Success: true, Message: "UTM link deleted successfully"}, http.StatusOK)
}

// LinkAnalytics статистика кликов ссылки за окно
//
//	@Summary		UTM link analytics
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		int	true	"Link ID"
//	@Param			days_back	query		int	false	"Window in days (1-365)"	default(30)
//	@Success		200			{object}	domain.LinkAnalytics
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/api/v1/utm-links/{id}/analytics [get]
func (h *LinksHandler) LinkAnalytics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	days, ok := daysParam(w, r, h.log, "days_back", 30)
	if !ok {
		return
	}

	stats, err := h.links.LinkAnalytics(r.Context(), id, days)
	if err != nil {
		writeServiceError(w, h.log, "get link analytics", err)
		return
	}

	writeJSON(w, stats, http.StatusOK)
}

// RecordClick записывает клик без редиректа
//
//	@Summary		Record a click
//	@Description	Record a click for a link; explicit metadata overrides values taken from the request
//	@Tags			Tracking
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Link ID"
//	@Param			request	body		service.ClickRequest	false	"Explicit click metadata"
//	@Success		201		{object}	ClickResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/v1/utm-links/{id}/click [post]
func (h *LinksHandler) RecordClick(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req service.ClickRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	click, err := h.resolver.RecordClick(r.Context(), id, req, requestMetadata(r))
	if err != nil {
		writeServiceError(w, h.log, "record click", err)
		return
	}

	writeJSON(w, ClickResponse{Success: true, Click: click}, http.StatusCreated)
}

// BulkGenerate создает ссылки для всех активных видео
//
//	@Summary		Bulk generate UTM links
//	@Description	Create or update one link per active video for the given destination
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		service.BulkGenerateRequest	true	"Bulk generation request"
//	@Success		200		{object}	service.BulkResult
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse	"No active videos"
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/v1/utm/bulk-generate [post]
func (h *LinksHandler) BulkGenerate(w http.ResponseWriter, r *http.Request) {
	var req service.BulkGenerateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	result, err := h.links.BulkGenerate(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, "bulk generate UTM links", err)
		return
	}

	writeJSON(w, result, http.StatusOK)
}
