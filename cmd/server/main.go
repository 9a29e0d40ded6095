// Package main runs the EventStream HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/liewchinchuan/EventStream/config"
	"github.com/liewchinchuan/EventStream/internal/auth"
	"github.com/liewchinchuan/EventStream/internal/events"
	"github.com/liewchinchuan/EventStream/internal/memstore"
	"github.com/liewchinchuan/EventStream/internal/participants"
	"github.com/liewchinchuan/EventStream/internal/polls"
	"github.com/liewchinchuan/EventStream/internal/questions"
	"github.com/liewchinchuan/EventStream/internal/realtime"
	"github.com/liewchinchuan/EventStream/internal/server"
	"github.com/liewchinchuan/EventStream/internal/session"
	"github.com/liewchinchuan/EventStream/internal/worker"
	"github.com/liewchinchuan/EventStream/pkg/database"
	"github.com/liewchinchuan/EventStream/pkg/queue"
	"github.com/liewchinchuan/EventStream/pkg/redis"
	"github.com/liewchinchuan/EventStream/pkg/telemetry"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	store, writer, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	// Activity: queued through Redis when configured, written directly otherwise.
	var activity session.ActivitySink
	var processor *worker.ActivityProcessor
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()

		jobQueue := queue.NewQueue(rdb.Client, logger)
		activity = jobQueue
		processor = worker.NewActivityProcessor(jobQueue, writer, worker.Options{}, logger)
	}

	registry := realtime.NewRegistry(logger)
	hub := realtime.NewHub(registry, logger)
	coord := session.NewCoordinator(store, hub, activity, logger)

	router := server.NewRouter(server.Deps{
		Coordinator: coord,
		Hub:         hub,
		Tokens:      auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpireHours)*time.Hour),
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		Realtime: realtime.Options{
			SendBuffer:   cfg.Realtime.SendBuffer,
			PingInterval: config.Seconds(cfg.Realtime.PingInterval),
			PongWait:     config.Seconds(cfg.Realtime.PongWait),
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  config.Seconds(cfg.Server.ReadTimeout),
		WriteTimeout: config.Seconds(cfg.Server.WriteTimeout),
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if processor != nil {
		g.Go(func() error {
			logger.Info("activity worker started")
			return processor.Run(workerCtx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.Server.ShutdownTimeout))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
		registry.Shutdown()
		workerCancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// openStore returns the storage selected by STORAGE_DRIVER and the writer the
// activity worker flushes heartbeats into.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, worker.ActivityWriter, func()) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		mem := memstore.New()
		return mem.Stores(), mem, func() {}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnLifetime(),
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	if err := database.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		logger.Fatal("migrate", zap.Error(err))
	}

	participantRepo := participants.NewRepository(pool)
	store := session.Store{
		Events:       events.NewRepository(pool),
		Questions:    questions.NewRepository(pool),
		Polls:        polls.NewRepository(pool),
		Participants: participantRepo,
	}
	return store, participantRepo, pool.Close
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
