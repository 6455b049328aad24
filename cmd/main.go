package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/dubeyaashish/itradebook-sub000/internal/api/handlers"
	"github.com/dubeyaashish/itradebook-sub000/internal/api/routes"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/alerts"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/pnl"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/report"
	"github.com/dubeyaashish/itradebook-sub000/internal/domain/services/snapshot"
	"github.com/dubeyaashish/itradebook-sub000/internal/infrastructure/config"
	"github.com/dubeyaashish/itradebook-sub000/internal/infrastructure/database"
	"github.com/dubeyaashish/itradebook-sub000/internal/infrastructure/repositories"
	"github.com/dubeyaashish/itradebook-sub000/internal/workers/finalizer"
	"github.com/dubeyaashish/itradebook-sub000/pkg/health"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Repositories
	snapshotRepo := repositories.NewSnapshotRepository(db, log.Zap())
	rawTickRepo := repositories.NewRawTickRepository(db, log.Zap())
	counterpartyRepo := repositories.NewCounterpartyRepository(db, log.Zap())

	// Core services
	calculator := pnl.NewCalculator()
	resolver := pnl.NewResolver(snapshotRepo, rawTickRepo, counterpartyRepo, log)
	liveCache := report.NewLiveWindowCache(
		rawTickRepo, counterpartyRepo, snapshotRepo, resolver, calculator,
		time.Now,
		time.Duration(cfg.Report.LiveCacheTTLSeconds)*time.Second,
		log,
	)
	assembler := report.NewAssembler(
		rawTickRepo, counterpartyRepo, snapshotRepo, liveCache, resolver, calculator,
		time.Now, cfg.Report.DefaultPageSize, log,
	)
	rebuildLock := snapshot.NewRedisRebuildLock(redisClient)
	snapshotService := snapshot.NewService(snapshotRepo, rawTickRepo, assembler, rebuildLock, log)
	evaluator := alerts.NewEvaluator(rawTickRepo)

	// Health checks
	checker := health.NewHealthChecker(10 * time.Second)
	checker.Register(health.NewDatabaseChecker(db.DB, 5*time.Second))
	checker.Register(health.NewRedisChecker(redisClient, 3*time.Second))

	router := routes.SetupRoutes(&routes.Dependencies{
		Config:  cfg,
		Logger:  log,
		Reports: handlers.NewReportHandlers(assembler, evaluator, log),
		Admin:   handlers.NewAdminHandlers(snapshotService, log),
		Health:  handlers.NewHealthHandlers(checker),
	})

	// Nightly finalization worker
	var scheduler *finalizer.Scheduler
	if cfg.Finalizer.Enabled {
		schedulerConfig := finalizer.DefaultConfig()
		schedulerConfig.Schedule = cfg.Finalizer.Schedule
		schedulerConfig.Timezone = cfg.Finalizer.Timezone

		scheduler, err = finalizer.NewScheduler(snapshotService, schedulerConfig, log.Zap())
		if err != nil {
			log.Fatal("Failed to create finalizer scheduler", "error", err)
		}
		if err := scheduler.Start(); err != nil {
			log.Fatal("Failed to start finalizer scheduler", "error", err)
		}
	}

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
