// Package main is the entry point for the trip planner API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/tripplanner/api/internal/auth"
	"github.com/tripplanner/api/internal/config"
	"github.com/tripplanner/api/internal/handler"
	"github.com/tripplanner/api/internal/imagesearch"
	"github.com/tripplanner/api/internal/imagestore"
	"github.com/tripplanner/api/internal/mail"
	"github.com/tripplanner/api/internal/middleware"
	"github.com/tripplanner/api/internal/repo"
	"github.com/tripplanner/api/internal/service"
	"github.com/tripplanner/api/migrations"
)

const appName = "Trip Planner"

func main() {
	// --- Config -----------------------------------------------------------
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if err := migrate(context.Background(), pool); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// --- Upstream clients -------------------------------------------------
	store, err := imagestore.NewCloudinary(cfg.CloudinaryURL, cfg.UpstreamTimeout, logger)
	if err != nil {
		slog.Error("failed to configure image store", "error", err)
		os.Exit(1)
	}
	search := imagesearch.NewPixabay(imagesearch.DefaultBaseURL, cfg.PixabayAPIKey, cfg.UpstreamTimeout, logger)
	if cfg.PixabayAPIKey == "" {
		slog.Warn("PIXABAY_API_KEY not set; image search returns no results")
	}

	var sender mail.Sender = mail.LogSender{Log: logger}
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.SMTPFrom,
			FromName:   appName,
			RequireTLS: true,
			Timeout:    cfg.UpstreamTimeout,
		}, logger)
	} else {
		slog.Warn("SMTP_HOST not set; OTP emails are written to the log")
	}
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	// --- Services ---------------------------------------------------------
	tripRepo := repo.NewTripRepo(pool)
	userRepo := repo.NewUserRepo(pool)

	gallery := service.NewGalleryService(tripRepo, store, cfg.EphemeralImageHosts, logger)
	srvHandlers := handler.NewServer(handler.Services{
		Trips:   service.NewTripService(tripRepo, gallery),
		Gallery: gallery,
		Users:   service.NewAuthService(userRepo, mail.NewMailer(sender, appName), tokens, logger),
		Images:  search,
	}, tokens, cfg.MaxUploadBytes, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit. The body limit leaves room for multipart framing
	// around a maximum-size photo.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxUploadBytes + 1<<20))
	r.Mount("/", srvHandlers.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Write timeout covers an upload plus the image store round trip.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30*time.Second + cfg.UpstreamTimeout,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies pending goose migrations through a database/sql view of pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := migrations.NewProvider(db)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		slog.Info("migration applied", "version", res.Source.Version, "path", res.Source.Path)
	}
	return nil
}
