package server

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quizzie/backend/config"
	"github.com/quizzie/backend/internal/auth"
	"github.com/quizzie/backend/internal/polls"
	"github.com/quizzie/backend/internal/quizzes"
	"github.com/quizzie/backend/pkg/database"
	"github.com/quizzie/backend/pkg/mongodb"
	"github.com/quizzie/backend/pkg/storage"
)

const storeCloseTimeout = 10 * time.Second

// Stores holds the repositories selected by STORE_DRIVER.
type Stores struct {
	Users   auth.Repository
	Quizzes quizzes.Repository
	Polls   polls.Repository
	close   func()
}

// Close releases the underlying connections.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// MemoryStores returns process-local repositories.
func MemoryStores() *Stores {
	return &Stores{
		Users:   auth.NewMemoryRepository(),
		Quizzes: quizzes.NewMemoryRepository(),
		Polls:   polls.NewMemoryRepository(),
	}
}

// OpenStores connects to the configured document store. For postgres the schema is migrated first.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger,
			database.WithMaxConns(cfg.Database.MaxConns),
			database.WithMinConns(cfg.Database.MinConns),
			database.WithMaxConnLifetime(time.Duration(cfg.Database.MaxConnLifetimeMin)*time.Minute),
		)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &Stores{
			Users:   auth.NewPostgresRepository(pool),
			Quizzes: quizzes.NewPostgresRepository(pool),
			Polls:   polls.NewPostgresRepository(pool),
			close:   pool.Close,
		}, nil

	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.Mongo.URL, cfg.Mongo.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		return &Stores{
			Users:   auth.NewMongoRepository(client.DB),
			Quizzes: quizzes.NewMongoRepository(client.DB),
			Polls:   polls.NewMongoRepository(client.DB),
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), storeCloseTimeout)
				defer cancel()
				if err := client.Close(closeCtx); err != nil {
					logger.Warn("mongo disconnect", zap.Error(err))
				}
			},
		}, nil

	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return MemoryStores(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// OpenImageStore connects to the option images bucket. It returns nil, nil when no bucket is configured.
func OpenImageStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.S3, error) {
	if !cfg.AWS.S3Enabled() {
		return nil, nil
	}
	return storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ImagesBucket:         cfg.AWS.ImagesBucket,
		Endpoint:             cfg.AWS.Endpoint,
		PublicBaseURL:        cfg.AWS.PublicBaseURL,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
}
