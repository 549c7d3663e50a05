package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/roxx/auction-server/internal/api"
	"github.com/roxx/auction-server/internal/cache"
	"github.com/roxx/auction-server/internal/config"
	"github.com/roxx/auction-server/internal/provider"
	"github.com/roxx/auction-server/internal/repository"
	"github.com/roxx/auction-server/internal/scheduler"
	"github.com/roxx/auction-server/internal/service"
	"github.com/roxx/auction-server/internal/utils"
)

func main() {
	logger := utils.NewLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Set up the store
	var repo repository.Repository
	switch cfg.Database.Driver {
	case "memory":
		logger.Info("using in-memory store")
		repo = repository.NewMemoryRepository()
	default:
		db, err := config.SetupDatabase(cfg)
		if err != nil {
			logger.Error("failed to set up database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		repo = repository.NewPostgresRepository(db)
	}

	// Optional leaderboard cache
	var leaderboard *cache.LeaderboardCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		leaderboard = cache.NewLeaderboardCache(client, time.Duration(cfg.Redis.LeaderboardTTL)*time.Second)
		logger.Info("leaderboard cache enabled", "addr", cfg.Redis.Addr)
	}

	// Optional daily item provider
	var items provider.ItemProvider
	if cfg.DailyItem.URL != "" {
		items = provider.NewClient(cfg.DailyItem.URL, time.Duration(cfg.DailyItem.TimeoutSeconds)*time.Second)
		logger.Info("daily item provider enabled", "url", cfg.DailyItem.URL)
	}

	// Create service
	svc := service.NewDefaultService(repo, items, leaderboard, logger, cfg.Auth.JWTSecret)

	// Start the settlement scheduler
	sched := scheduler.NewScheduler(svc, logger, cfg.Settlement.Schedule)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Create API handler
	handler := api.NewHandler(svc, cfg.Auth.AdminToken)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal, then stop the scheduler and drain
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received")

	stopCtx := sched.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
