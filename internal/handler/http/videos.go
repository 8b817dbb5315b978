package http

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// VideosHandler обработчик каталога видео
type VideosHandler struct {
	links *service.LinkService
	log   *zap.Logger
}

func NewVideosHandler(links *service.LinkService, log *zap.Logger) *VideosHandler {
	return &VideosHandler{links: links, log: log}
}

// ListVideosResponse структура ответа списка видео
type ListVideosResponse struct {
	Videos []*domain.Video `json:"videos"`
	Count  int             `json:"count"`
}

// ListVideos возвращает каталог видео
//
//	@Summary		List videos
//	@Tags			Videos
//	@Produce		json
//	@Security		BearerAuth
//	@Param			active_only	query		bool	false	"Only active videos"	default(false)
//	@Success		200			{object}	ListVideosResponse
//	@Router			/api/v1/videos [get]
func (h *VideosHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active_only", false)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	videos, err := h.links.ListVideos(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, h.log, "list videos", err)
		return
	}

	writeJSON(w, ListVideosResponse{Videos: videos, Count: len(videos)}, http.StatusOK)
}

// UpsertVideo создает или обновляет видео
//
//	@Summary		Create or update a video
//	@Tags			Videos
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			video_id	path		string						true	"Video ID"
//	@Param			request		body		service.UpsertVideoRequest	true	"Video data"
//	@Success		200			{object}	domain.Video
//	@Failure		400			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/api/v1/videos/{video_id} [put]
func (h *VideosHandler) UpsertVideo(w http.ResponseWriter, r *http.Request) {
	var req service.UpsertVideoRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	video, err := h.links.UpsertVideo(r.Context(), chi.URLParam(r, "video_id"), req)
	if err != nil {
		writeServiceError(w, h.log, "save video", err)
		return
	}

	writeJSON(w, video, http.StatusOK)
}

// LinkPerformance клики ссылок видео относительно просмотров
//
//	@Summary		Video link performance
//	@Tags			Videos
//	@Produce		json
//	@Security		BearerAuth
//	@Param			video_id	path		string	true	"Video ID"
//	@Success		200			{object}	domain.VideoLinkPerformance
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/v1/videos/{video_id}/link-performance [get]
func (h *VideosHandler) LinkPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.links.VideoLinkPerformance(r.Context(), chi.URLParam(r, "video_id"))
	if err != nil {
		writeServiceError(w, h.log, "get video link performance", err)
		return
	}

	writeJSON(w, perf, http.StatusOK)
}
