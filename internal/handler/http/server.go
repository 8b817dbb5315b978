package http

import (
	"UTMTrack-Backend/internal/analytics"
	"UTMTrack-Backend/internal/auth"
	"UTMTrack-Backend/internal/config"
	"UTMTrack-Backend/internal/metrics"
	"UTMTrack-Backend/internal/service"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Dependencies зависимости HTTP сервера
type Dependencies struct {
	Links       *service.LinkService
	Resolver    *service.Resolver
	Conversions *service.ConversionService
	Forwarder   analytics.Forwarder
	Syncer      *analytics.Syncer
	Summarizer  ForwardingSummarizer
	Dispatcher  StatsProvider
	JWT         *auth.JWTService
	Passwords   *auth.PasswordService
	// CheckDB проверка базы для /health; nil - проверка пропускается
	CheckDB func(ctx context.Context) error
}

// Server HTTP сервер с обработчиками
type Server struct {
	authHandlers       *auth.Handlers
	linksHandler       *LinksHandler
	redirectHandler    *RedirectHandler
	videosHandler      *VideosHandler
	conversionsHandler *ConversionsHandler
	analyticsHandler   *AnalyticsHandler
	healthHandler      *HealthHandler
	authMiddleware     *auth.Middleware
	cfg                config.HTTPServer
	log                *zap.Logger
}

// NewServer создает новый HTTP сервер
func NewServer(deps Dependencies, httpCfg config.HTTPServer, authCfg config.Auth, log *zap.Logger) *Server {
	return &Server{
		authHandlers:       auth.NewHandlers(authCfg.Enabled, authCfg.AdminUsername, authCfg.AdminPasswordHash, deps.JWT, deps.Passwords, log),
		linksHandler:       NewLinksHandler(deps.Links, deps.Resolver, log),
		redirectHandler:    NewRedirectHandler(deps.Resolver, log),
		videosHandler:      NewVideosHandler(deps.Links, log),
		conversionsHandler: NewConversionsHandler(deps.Conversions, log),
		analyticsHandler:   NewAnalyticsHandler(deps.Links, deps.Forwarder, deps.Syncer, deps.Summarizer, deps.Dispatcher, log),
		healthHandler:      NewHealthHandler(deps.CheckDB, log),
		authMiddleware:     auth.NewMiddleware(deps.JWT, authCfg.Enabled, log),
		cfg:                httpCfg,
		log:                log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", SessionHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health checks и метрики (без аутентификации)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/ready", s.healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Swagger документация
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		// Публичные точки трекинга
		r.Group(func(r chi.Router) {
			if s.cfg.RedirectRateLimit > 0 {
				r.Use(httprate.LimitByIP(s.cfg.RedirectRateLimit, time.Minute))
			}
			r.Get("/r/{id}", s.redirectHandler.RedirectByID)
			r.Get("/track/{id}", s.redirectHandler.RedirectByID)
			r.Get("/go/{slug}", s.redirectHandler.RedirectBySlug)
			r.Post("/utm-links/{id}/click", s.linksHandler.RecordClick)
			r.Post("/conversions", s.conversionsHandler.TrackConversion)
			r.Post("/conversions/bulk", s.conversionsHandler.TrackBulkConversions)
		})

		r.Post("/auth/token", s.authHandlers.Token)

		// Управление и отчеты (с аутентификацией)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware.RequireAdmin)

			r.Post("/utm-links", s.linksHandler.CreateLink)
			r.Get("/utm-links", s.linksHandler.ListLinks)
			r.Get("/utm-links/{id}", s.linksHandler.GetLink)
			r.Patch("/utm-links/{id}", s.linksHandler.UpdateLink)
			r.Delete("/utm-links/{id}", s.linksHandler.DeleteLink)
			r.Get("/utm-links/{id}/analytics", s.linksHandler.LinkAnalytics)
			r.Post("/utm/bulk-generate", s.linksHandler.BulkGenerate)

			r.Get("/videos", s.videosHandler.ListVideos)
			r.Put("/videos/{video_id}", s.videosHandler.UpsertVideo)
			r.Get("/videos/{video_id}/link-performance", s.videosHandler.LinkPerformance)

			r.Get("/conversions", s.conversionsHandler.ListConversions)
			r.Get("/conversions/analytics", s.conversionsHandler.ConversionAnalytics)

			r.Get("/analytics/video-traffic-correlation", s.analyticsHandler.VideoTrafficCorrelation)
			r.Get("/analytics/video-traffic-correlation/export", s.analyticsHandler.ExportCorrelation)
			r.Get("/analytics/status", s.analyticsHandler.Status)
			r.Get("/analytics/health", s.analyticsHandler.Health)
			r.Post("/analytics/sync", s.analyticsHandler.Sync)
			r.Get("/analytics/website", s.analyticsHandler.Website)
		})
	})

	return r
}

// requestLogger логирует запрос и пишет метрики по шаблону маршрута
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, route, status, duration)

		s.log.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration))
	})
}
