package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quizzie/backend/config"
	"github.com/quizzie/backend/internal/auth"
	"github.com/quizzie/backend/internal/realtime"
	"github.com/quizzie/backend/internal/server"
	"github.com/quizzie/backend/internal/uploads"
	"github.com/quizzie/backend/internal/worker"
	"github.com/quizzie/backend/pkg/queue"
	"github.com/quizzie/backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(logger *zap.Logger) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return runServer(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides PORT)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	stores, err := server.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	deps := server.Deps{
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins(),
		JWT:            auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours),
		Stores:         stores,
	}

	var jobQueue *queue.Queue
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		deps.Hub = realtime.NewHub(logger, pubsub, pubsub)
		jobQueue = queue.NewQueue(rdb.Client, logger)
	} else {
		logger.Warn("REDIS_ADDR not set; live updates stay within this instance and image cleanup is off")
		deps.Hub = realtime.NewHub(logger, nil, nil)
	}

	images, err := server.OpenImageStore(ctx, cfg, logger)
	if err != nil {
		logger.Warn("s3 disabled", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if images != nil {
		deps.Images = images
		if jobQueue != nil {
			deps.Cleaner = uploads.NewCleaner(images, jobQueue, stores.Quizzes, stores.Polls, logger)
			go worker.NewImageCleanupProcessor(images, jobQueue, logger).Run(workerCtx)
			logger.Info("image cleanup worker started")
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.NewRouter(deps),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
