package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gdz-miniapp-backend/internal/common/config"
	"gdz-miniapp-backend/internal/common/logger"
	"gdz-miniapp-backend/internal/common/middleware"
	authservice "gdz-miniapp-backend/internal/features/auth/service"
	solutionhttp "gdz-miniapp-backend/internal/features/solution/delivery/http"
	solutionrepo "gdz-miniapp-backend/internal/features/solution/repository"
	solutionmemory "gdz-miniapp-backend/internal/features/solution/repository/memory"
	solutionredis "gdz-miniapp-backend/internal/features/solution/repository/redis"
	solutionservice "gdz-miniapp-backend/internal/features/solution/service"
	solvehttp "gdz-miniapp-backend/internal/features/solve/delivery/http"
	solveservice "gdz-miniapp-backend/internal/features/solve/service"
	userhttp "gdz-miniapp-backend/internal/features/user/delivery/http"
	userrepo "gdz-miniapp-backend/internal/features/user/repository"
	"gdz-miniapp-backend/internal/features/user/repository/libsql"
	usersqlite "gdz-miniapp-backend/internal/features/user/repository/sqlite"
	userservice "gdz-miniapp-backend/internal/features/user/service"
	"gdz-miniapp-backend/internal/platform/openai"
	platformredis "gdz-miniapp-backend/internal/platform/redis"
	platformsqlite "gdz-miniapp-backend/internal/platform/sqlite"
)

// @title           GDZ Mini App API
// @version         1.0
// @description     API server for a Telegram Mini App that solves school tasks. Endpoints under /api require init data authentication.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name X-Telegram-Init-Data
// @description Telegram Mini App init data string for authentication

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Init("gdz-miniapp-backend", cfg.Debug)

	logger.Info().
		Bool("debug", cfg.Debug).
		Str("storage", cfg.Storage.Backend).
		Str("solutions", cfg.Solution.Backend).
		Msg("Starting GDZ Mini App Backend")

	ctx := context.Background()

	// Хранилище пользователей
	store, closeStore, err := buildUsageStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize usage store")
	}
	defer closeStore()

	// Хранилище одноразовых страниц решений
	solutions, closeSolutions, err := buildSolutionStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize solution store")
	}
	defer closeSolutions()

	// Сервисы
	authSvc := authservice.NewAuthService(cfg.Telegram.BotToken)
	userSvc := userservice.NewUserService(store, cfg.Quota.FreeLimit, cfg.Cooldown())
	aiClient := openai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model)
	solveSvc := solveservice.NewSolveService(userSvc, aiClient)
	solutionSvc := solutionservice.NewSolutionService(solutions)

	if !aiClient.Configured() {
		logger.Warn().Msg("OPENAI_API_KEY is not set: /api/solve will return errors")
	}

	// Gin
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger())

	corsConfig := cors.DefaultConfig()
	if cfg.Server.Origin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", middleware.InitDataHeader, "X-Admin-Secret"}
	router.Use(cors.New(corsConfig))

	// Роуты
	api := router.Group("/api")
	userhttp.NewUserHandler(userSvc).RegisterRoutes(api, authSvc, cfg.Admin.Secret)
	solvehttp.NewSolveHandler(solveSvc).RegisterRoutes(api, authSvc)
	solutionhttp.NewSolutionHandler(solutionSvc).RegisterRoutes(router, api, authSvc)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "gdz-miniapp-backend",
		})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

func buildUsageStore(ctx context.Context, cfg *config.Config) (userrepo.UsageStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		db, err := platformsqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info().Str("path", cfg.Storage.SQLitePath).Msg("SQLite storage ready")
		return usersqlite.NewSQLiteRepository(db), func() { db.Close() }, nil

	case config.StorageLibSQL:
		logger.Info().Str("url", cfg.Storage.LibSQLURL).Msg("Using remote libSQL storage")
		return libsql.NewLibSQLRepository(cfg.Storage.LibSQLURL, cfg.Storage.LibSQLToken), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildSolutionStore(ctx context.Context, cfg *config.Config) (solutionrepo.SolutionStore, func(), error) {
	switch cfg.Solution.Backend {
	case config.SolutionMemory:
		repo := solutionmemory.NewRepository(cfg.Solution.TTL, cfg.Solution.MaxEntries)
		return repo, repo.Close, nil

	case config.SolutionRedis:
		client, err := platformredis.Open(ctx, fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info().Str("host", cfg.Redis.Host).Msg("Redis solution storage ready")
		return solutionredis.NewRepository(client, cfg.Solution.TTL), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown solution backend %q", cfg.Solution.Backend)
	}
}
