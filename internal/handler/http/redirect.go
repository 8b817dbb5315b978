package http

import (
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/service"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RedirectHandler обработчик редиректов
type RedirectHandler struct {
	resolver *service.Resolver
	log      *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректов
func NewRedirectHandler(resolver *service.Resolver, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver: resolver,
		log:      log,
	}
}

// RedirectByID обрабатывает редирект по ID ссылки
//
//	@Summary		Redirect by link ID
//	@Description	Record a click and redirect to the link target
//	@Tags			Tracking
//	@Param			id	path	int	true	"Link ID"
//	@Success		302	"Redirect to target"
//	@Failure		404	"Link not found or inactive"
//	@Router			/api/v1/r/{id} [get]
//	@Router			/api/v1/track/{id} [get]
func (h *RedirectHandler) RedirectByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	res, err := h.resolver.ResolveID(r.Context(), id, requestMetadata(r))
	h.finish(w, r, res, err, zap.Int64("link_id", id))
}

// RedirectBySlug обрабатывает редирект по pretty slug
//
//	@Summary		Redirect by pretty slug
//	@Tags			Tracking
//	@Param			slug	path	string	true	"Pretty slug"
//	@Success		302		"Redirect to target"
//	@Failure		404		"Link not found or inactive"
//	@Router			/api/v1/go/{slug} [get]
func (h *RedirectHandler) RedirectBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	res, err := h.resolver.ResolveSlug(r.Context(), slug, requestMetadata(r))
	h.finish(w, r, res, err, zap.String("slug", slug))
}

func (h *RedirectHandler) finish(w http.ResponseWriter, r *http.Request, res *service.Resolution, err error, ref zap.Field) {
	if err != nil {
		if service.IsNotFound(err) {
			h.log.Debug("link not found", ref)
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to process redirect", ref, zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.log.Info("successful redirect",
		ref,
		zap.Int64("link_id", res.Link.ID),
		zap.String("tracking_type", string(res.Link.TrackingType)),
		zap.String("target", res.Target),
		zap.String("device_type", res.Click.GetDeviceType()))

	http.Redirect(w, r, res.Target, http.StatusFound)
}

// requestMetadata метаданные клика, извлеченные из запроса
func requestMetadata(r *http.Request) domain.ClickMetadata {
	return domain.ClickMetadata{
		UserAgent: r.UserAgent(),
		IPAddress: extractIPAddress(r),
		Referrer:  r.Referer(),
	}
}

// extractIPAddress извлекает IP адрес из запроса с учетом прокси.
// Значения заголовков, которые не разбираются как IP, пропускаются.
func extractIPAddress(r *http.Request) string {
	// X-Forwarded-For может содержать список IP через запятую
	for _, token := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := parseIP(token); ip != "" {
			return ip
		}
	}

	for _, header := range []string{"X-Real-IP", "X-Client-IP"} {
		if ip := parseIP(r.Header.Get(header)); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return parseIP(host)
}

// parseIP возвращает нормализованный адрес или пустую строку
func parseIP(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	return ip.String()
}
