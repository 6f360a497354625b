package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalink-data/internal/config"
	"vitalink-data/internal/database"
	httpapi "vitalink-data/internal/http"
	"vitalink-data/internal/logger"
	"vitalink-data/internal/repository"
	"vitalink-data/internal/service"
	"vitalink-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "vitalink-data")
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer zapLogger.Sync()

	// Summary cache. Redis being down is not fatal; the in-process cache
	// serves a single instance just as well.
	var cache store.KV
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		zapLogger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		cache = store.NewMemoryKV()
	} else {
		cache = store.NewRedisKV(redisClient)
	}
	cancel()

	var (
		samples    repository.SamplesRepository
		aggregates repository.AggregatesRepository
		patients   repository.PatientsRepository
		bp         repository.BPRepository
		roles      repository.RoleLookup
	)
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			zapLogger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		samples = repository.NewPostgresSamplesRepository(db)
		aggregates = repository.NewPostgresAggregatesRepository(db)
		patients = repository.NewPostgresPatientsRepository(db)
		bp = repository.NewPostgresBPRepository(db)
		roles = repository.NewPostgresRoleLookup(db)
		zapLogger.Info("using PostgreSQL repositories",
			zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Database))
	} else {
		memSamples := repository.NewMemorySamplesRepository()
		memAggregates := repository.NewMemoryAggregatesRepository()
		memBP := repository.NewMemoryBPRepository()
		samples = memSamples
		aggregates = memAggregates
		bp = memBP
		patients = repository.NewMemoryPatientsRepository(memSamples, memAggregates, memBP)
		memRoles := repository.NewMemoryRoleLookup(nil)
		if cfg.Agent.PatientID != "" {
			// Local dev loop: let the demo agent upload without a real
			// auth_users table.
			memRoles.SetRole(cfg.Agent.PatientID, "patient")
		}
		roles = memRoles
		zapLogger.Warn("database disabled, using in-memory repositories")
	}

	ingestSvc := service.NewIngestService(samples, aggregates, patients, roles, cache, zapLogger)
	summarySvc := service.NewSummaryService(aggregates, samples, patients, bp, cache, zapLogger)
	exportSvc := service.NewExportService(aggregates, bp, zapLogger)
	eventsSvc := service.NewHealthEventService(bp, cache, zapLogger)
	adminSvc := service.NewAdminService(patients, cache, zapLogger)

	router := httpapi.NewRouter(zapLogger)
	router.RegisterHealthRoute()
	router.RegisterIngestRoutes(httpapi.NewIngestHandler(ingestSvc, zapLogger))
	router.RegisterPatientRoutes(httpapi.NewPatientHandler(summarySvc, exportSvc, eventsSvc, zapLogger))
	router.RegisterAdminRoutes(httpapi.NewAdminHandler(adminSvc, zapLogger))

	server := service.NewServer(cfg.HTTP.Addr, router, zapLogger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		zapLogger.Error("failed to stop HTTP server cleanly", zap.Error(err))
	}
	zapLogger.Info("Shutdown complete")
}
