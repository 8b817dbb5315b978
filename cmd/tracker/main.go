// Package main provides the entry point for the UTMTrack link tracking service.
//
//	@title			UTMTrack API
//	@version		1.0.0
//	@description	UTM link tracking for video marketing traffic.
//
//	@contact.name	UTMTrack Support
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"UTMTrack-Backend/internal/analytics"
	"UTMTrack-Backend/internal/auth"
	"UTMTrack-Backend/internal/config"
	"UTMTrack-Backend/internal/database"
	httpHandler "UTMTrack-Backend/internal/handler/http"
	"UTMTrack-Backend/internal/repository/postgres"
	"UTMTrack-Backend/internal/service"
	"UTMTrack-Backend/pkg/logger"
	"UTMTrack-Backend/pkg/useragent"
	"context"
	"errors"
	"fmt"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "UTMTrack-Backend/docs" // Import swagger docs
)

func main() {
	// tracker hash-password <password> печатает bcrypt хэш для AUTH_ADMIN_PASSWORD_HASH
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(hashPassword(os.Args[2:]))
	}

	cfg := config.MustLoad()
	log := logger.New(cfg.Env, logger.File{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting UTMTrack service", zap.String("env", cfg.Env))

	// Initialize database connection
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewConnection(connectCtx, &cfg.Database, cfg.Env, log)
	connectCancel()
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	parser := useragent.NewParser(cfg.Tracker.UserAgentRegexes, log)
	storage := postgres.New(db, log)

	// Пересылка кликов во внешнюю аналитику
	forwarder := analytics.NewForwarder(cfg.Analytics, log)
	dispatcher := analytics.NewDispatcher(forwarder, cfg.Analytics.Dispatcher, log)
	if err := dispatcher.Start(); err != nil {
		log.Fatal("failed to start analytics dispatcher", zap.Error(err))
	}

	linkService := service.NewLinkService(storage, &cfg.Tracker, log)
	resolver := service.NewResolver(storage, parser, dispatcher, log)
	conversionService := service.NewConversionService(storage, dispatcher, log)
	syncer := analytics.NewSyncer(storage, forwarder, log)

	if cfg.Auth.Enabled && (cfg.Auth.JWTSecret == "" || cfg.Auth.AdminPasswordHash == "") {
		log.Fatal("auth is enabled but AUTH_JWT_SECRET or AUTH_ADMIN_PASSWORD_HASH is empty")
	}
	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey:           []byte(cfg.Auth.JWTSecret),
		AccessTokenDuration: cfg.Auth.AccessTokenDuration,
		Issuer:              cfg.Auth.Issuer,
	})
	passwordService := auth.NewPasswordService()

	apiServer := httpHandler.NewServer(httpHandler.Dependencies{
		Links:       linkService,
		Resolver:    resolver,
		Conversions: conversionService,
		Forwarder:   forwarder,
		Syncer:      syncer,
		Summarizer:  storage,
		Dispatcher:  dispatcher,
		JWT:         jwtService,
		Passwords:   passwordService,
		CheckDB:     checkDB(db),
	}, cfg.HTTPServer, cfg.Auth, log)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      apiServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server",
		zap.String("address", cfg.HTTPServer.Address),
		zap.String("analytics_provider", forwarder.Name()),
		zap.Bool("auth_enabled", cfg.Auth.Enabled))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down UTMTrack service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer shutdownCancel()

	// Сначала HTTP, чтобы новые клики не попадали в остановленную очередь
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	if err := dispatcher.Stop(); err != nil {
		log.Error("failed to stop analytics dispatcher", zap.Error(err))
	}
}

func checkDB(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.HealthCheck(ctx, db)
	}
}

func hashPassword(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tracker hash-password <password>")
		return 2
	}
	hash, err := auth.NewPasswordService().HashPassword(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
