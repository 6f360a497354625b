package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"vitalink-data/internal/agent"
	"vitalink-data/internal/config"
	"vitalink-data/internal/logger"
	"vitalink-data/internal/mqtt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "vitalink-agent")
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer zapLogger.Sync()

	if cfg.Agent.PatientID == "" {
		zapLogger.Fatal("AGENT_PATIENT_ID is required")
	}

	var store agent.PendingStore
	if cfg.Agent.QueueBackend == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			zapLogger.Fatal("redis queue backend unavailable", zap.Error(err))
		}
		cancel()
		store = agent.NewRedisPendingStore(redisClient, "", cfg.Agent.QueueCap, zapLogger)
		zapLogger.Info("using redis pending queue", zap.String("addr", cfg.Redis.Addr))
	} else {
		store = agent.NewMemoryPendingStore(cfg.Agent.QueueCap, zapLogger)
	}

	uploader := agent.NewUploader(&cfg.Agent, zapLogger)
	syncer := agent.NewSyncer(store, uploader, &cfg.Agent, zapLogger)
	collector := agent.NewCollector(agent.NewDemoSource(&cfg.Agent), store, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	drain := func(trigger string) {
		if err := collector.Collect(ctx); err != nil {
			zapLogger.Warn("collection failed", zap.Error(err))
		}
		stats, err := syncer.Drain(ctx)
		if errors.Is(err, agent.ErrSyncInProgress) {
			zapLogger.Debug("sync already running, skipping trigger", zap.String("trigger", trigger))
			return
		}
		if err != nil {
			zapLogger.Warn("sync failed, records stay queued",
				zap.String("trigger", trigger), zap.Error(err))
			return
		}
		zapLogger.Info("sync complete",
			zap.String("trigger", trigger),
			zap.Int("uploaded", stats.Uploaded),
			zap.Int("inserted", stats.Inserted))
	}

	// Optional push trigger so the backend can request an immediate drain.
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(&cfg.MQTT, zapLogger)
		if err != nil {
			zapLogger.Warn("MQTT unavailable, relying on periodic sync only", zap.Error(err))
		} else {
			defer client.Disconnect()
			err = client.Subscribe(cfg.MQTT.Topic, 1, func(topic string, _ []byte) error {
				go drain("mqtt:" + topic)
				return nil
			})
			if err != nil {
				zapLogger.Warn("failed to subscribe to sync topic", zap.Error(err))
			}
		}
	}

	interval := time.Duration(cfg.Agent.SyncInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	zapLogger.Info("Starting vitalink-agent",
		zap.String("patient_id", cfg.Agent.PatientID),
		zap.Duration("sync_interval", interval))

	drain("startup")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			drain("timer")
		case <-ctx.Done():
			zapLogger.Info("Shutting down...")
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := syncer.Drain(flushCtx); err != nil && !errors.Is(err, agent.ErrSyncInProgress) {
				zapLogger.Warn("final drain incomplete", zap.Error(err))
			}
			cancel()
			zapLogger.Info("Shutdown complete")
			return
		}
	}
}
