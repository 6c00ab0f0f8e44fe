//	@title			Star Gallery API
//	@version		1.0
//	@description	Stars and their image galleries; image payloads live in S3-compatible object storage.
//
//	@host		localhost:8080
//	@BasePath	/api
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stargallery/service/internal/config"
	"github.com/stargallery/service/internal/db"
	"github.com/stargallery/service/internal/image"
	"github.com/stargallery/service/internal/logging"
	"github.com/stargallery/service/internal/media"
	"github.com/stargallery/service/internal/server"
	"github.com/stargallery/service/internal/star"
	"github.com/stargallery/service/internal/storage"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.New(cfg.LogLevel, cfg.IsProduction())
	log.Logger = logger

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	var objects storage.ObjectStore = storage.Unavailable{}
	if cfg.StorageConfigured() {
		minioStore, err := storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			PublicBase: cfg.StoragePublicBase,
			UseSSL:     cfg.StorageUseSSL,
		}, logger)
		if err != nil {
			log.Fatal().Err(err).Msg("object storage init failed")
		}
		objects = minioStore
		log.Info().Str("endpoint", cfg.StorageEndpoint).Str("bucket", cfg.StorageBucket).Msg("object storage ready")
	} else {
		log.Warn().Msg("object storage credentials not set; image uploads are disabled")
	}

	// Wire dependencies: repository → orchestrator/service → handler
	starRepo := star.NewRepository(pool)
	imageRepo := image.NewRepository(pool)

	orchestrator := media.NewOrchestrator(starRepo, imageRepo, objects, cfg.UploadItemTimeout, logger)
	starSvc := star.NewService(starRepo, orchestrator)

	router := server.NewRouter(server.Deps{
		Config: cfg,
		Stars:  star.NewHandler(starSvc, logger),
		Images: media.NewHandler(orchestrator, cfg.UploadMaxRequestBytes, logger),
		Logger: logger,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 2 * time.Minute,
		// Upload batches may run up to one item timeout after the body is read.
		WriteTimeout: cfg.UploadItemTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server listening")
		log.Info().Msgf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
