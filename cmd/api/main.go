package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"vidtube/internal/config"
	"vidtube/internal/db"
	apihttp "vidtube/internal/http"
	"vidtube/internal/media"
	"vidtube/internal/repository"
	"vidtube/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := db.RunMigrations(ctx, cfg); err != nil {
		logger.Fatal("db migrations", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		logger.Fatal("temp dir", zap.Error(err))
	}

	var uploader media.Uploader = media.NewDisabledUploader("media uploader not configured")
	if cfg.S3Bucket != "" {
		s3Uploader, err := media.NewS3Uploader(ctx, media.S3Options{
			BaseEndpoint:  cfg.S3BaseEndpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			logger.Warn("s3 uploader init failed", zap.Error(err))
		} else {
			uploader = s3Uploader
		}
	}

	tokenSvc := service.NewTokenService(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLMinutes)*time.Minute,
	)

	userRepo := repository.NewPgUserRepository(pool)
	hasher := service.NewPasswordHasher(0)
	userSvc := service.NewUserService(logger, userRepo, uploader, hasher, tokenSvc)

	cookies := apihttp.NewCookieHelper(cfg.CookieDomain, cfg.CookieSecure)
	userHandler := apihttp.NewUserHandler(logger, userSvc, tokenSvc, cookies, cfg.TempDir)
	router := apihttp.NewRouter(logger, userHandler, tokenSvc, cookies)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
