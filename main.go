// CalorieCam API server. Wires configuration, the database pool, the
// upload store, the vision analyzer and the HTTP surface together, then
// serves until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/user/caloriecam-go/analyzer"
	"github.com/user/caloriecam-go/auth"
	"github.com/user/caloriecam-go/config"
	"github.com/user/caloriecam-go/db"
	"github.com/user/caloriecam-go/meals"
	"github.com/user/caloriecam-go/metrics"
	"github.com/user/caloriecam-go/storage"
	"github.com/user/caloriecam-go/users"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Warn(".env file not found or could not be loaded", "error", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pool, err := db.NewDBPool(cfg.DB)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	fileStore, err := storage.NewStore(cfg.Uploads.Dir)
	if err != nil {
		logger.Error("failed to initialize upload store", "error", err)
		os.Exit(1)
	}

	if cfg.Analyzer.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; meal analysis will be unavailable")
	}
	vision := analyzer.NewGeminiClient(cfg.Analyzer)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	userRepo := users.NewPostgresRepository(pool)
	tokenService := auth.NewTokenService(cfg.Auth)
	authService := auth.NewAuthService(userRepo, tokenService)
	authHandlers := auth.NewHandlers(authService)

	userService := users.NewUserService(userRepo)
	userHandlers := users.NewUserHandlers(userService)

	mealRepo := meals.NewPostgresRepository(pool)
	mealService := meals.NewMealService(mealRepo, fileStore, vision, logger, collector)
	mealHandlers := meals.NewMealHandlers(mealService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(collector.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Welcome to CalorieCam API"}`))
	})

	r.Handle("/metrics", metrics.Handler(registry))

	// Stored meal images are served straight from the uploads tree; the
	// image_path on each meal row is the URL path below this mount.
	uploadsPrefix := "/" + strings.Trim(cfg.Uploads.Dir, "./")
	r.Handle(uploadsPrefix+"/*", http.StripPrefix(uploadsPrefix+"/",
		http.FileServer(http.Dir(fileStore.Root()))))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", authHandlers.HandleSignup())
		r.Post("/login/token", authHandlers.HandleLogin())
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokenService, userRepo))
		r.Get("/me", userHandlers.HandleGetMe())
		r.Put("/me", userHandlers.HandleUpdateMe())
	})

	r.Route("/api/v1/meals", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokenService, userRepo))
		mealHandlers.RegisterRoutes(r)
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
