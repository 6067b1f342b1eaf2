//	@title			Media Upload Gateway API
//	@version		1.0
//	@description	Accepts authenticated image, video and audio uploads and serves token-gated deletion.
//
//	@host		localhost:9000
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Per-user JWT credential. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/mediagate/uploader/internal/auth"
	"github.com/mediagate/uploader/internal/config"
	"github.com/mediagate/uploader/internal/db"
	"github.com/mediagate/uploader/internal/logging"
	"github.com/mediagate/uploader/internal/metrics"
	appMiddleware "github.com/mediagate/uploader/internal/middleware"
	"github.com/mediagate/uploader/internal/storage"
	"github.com/mediagate/uploader/internal/upload"
	"github.com/mediagate/uploader/internal/webhook"

	_ "github.com/mediagate/uploader/docs/swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("info", false)
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logging.New(cfg.LogLevel, !cfg.IsProduction())
	if !cfg.DotenvLoaded {
		log.Debug().Msg("no .env file found, using environment only")
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	store, err := newBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("storage init failed")
	}

	users, err := cfg.Directory()
	if err != nil {
		log.Fatal().Err(err).Msg("user table invalid")
	}

	notifier := webhook.New(webhook.Options{
		URL:     cfg.WebhookURL,
		Timeout: cfg.WebhookTimeout,
		Async:   cfg.WebhookAsync,
	}, log)

	// Wire dependencies: repository → service → handler
	verifier := auth.NewVerifier(users, log)
	repo := upload.NewRepository(pool)
	var svcNotifier upload.Notifier
	if notifier.Enabled() {
		svcNotifier = notifier
	}
	uploadSvc := upload.NewService(verifier, users, store, repo, svcNotifier, upload.Options{
		PublicURL:    cfg.PublicURL,
		AudioBaseURL: cfg.AudioBaseURL,
	}, log)
	uploadHandler := upload.NewHandler(uploadSvc, repo, cfg.MaxUploadBytes, log)

	limiter := appMiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	stopCleanup := make(chan struct{})
	go limiter.Cleanup(stopCleanup)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(appMiddleware.Metrics)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", upload.PreserveHeader},
		MaxAge:         300,
	}))

	r.Get("/health", uploadHandler.Health)
	r.Handle("/metrics", metrics.Handler())

	// Swagger UI, available at http://localhost:9000/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		uploadHandler.Register(r, appMiddleware.RequireAuth(verifier))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.AppEnv).
			Str("storage", cfg.StorageDriver).
			Int("users", users.Len()).
			Bool("webhook", notifier.Enabled()).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	close(stopCleanup)
	notifier.Wait()

	log.Info().Msg("server stopped")
}

func newBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Backend, error) {
	if cfg.StorageDriver == config.DriverMinio {
		return storage.NewMinioBackend(ctx, storage.MinioOptions{
			Endpoint:    cfg.StorageEndpoint,
			AccessKey:   cfg.StorageAccessKey,
			SecretKey:   cfg.StorageSecretKey,
			Bucket:      cfg.StorageBucket,
			AudioBucket: cfg.StorageAudioBucket,
			UseSSL:      cfg.StorageUseSSL,
		}, log)
	}
	return storage.NewLocalBackend(cfg.ImageRoot, cfg.AudioRoot)
}
