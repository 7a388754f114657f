package uploads

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quizzie/backend/internal/models"
	"github.com/quizzie/backend/pkg/queue"
	"github.com/quizzie/backend/pkg/storage"
)

// KeyResolver maps public image URLs back to object keys.
type KeyResolver interface {
	KeyFromURL(raw string) (string, bool)
	Bucket() string
}

// Enqueuer accepts image cleanup jobs. *queue.Queue satisfies it.
type Enqueuer interface {
	EnqueueImageCleanup(ctx context.Context, payload queue.ImageCleanupPayload) error
}

// QuizLister lists an owner's quizzes. quizzes.Repository satisfies it.
type QuizLister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Quiz, error)
}

// PollLister lists an owner's polls. polls.Repository satisfies it.
type PollLister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Poll, error)
}

// Cleaner turns unreferenced option image URLs into a background cleanup job.
type Cleaner struct {
	keys    KeyResolver
	queue   Enqueuer
	quizzes QuizLister
	polls   PollLister
	logger  *zap.Logger
}

// NewCleaner creates a cleaner. quizzes and polls are scanned for images that are still in use.
func NewCleaner(keys KeyResolver, q Enqueuer, quizzes QuizLister, polls PollLister, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		keys:    keys,
		queue:   q,
		quizzes: quizzes,
		polls:   polls,
		logger:  logger,
	}
}

// ScheduleImageCleanup enqueues deletion of the owner's uploaded images among urls.
// Images hosted elsewhere, uploaded by another user, or still used by any of the owner's
// quizzes or polls are left alone. Call it after the aggregate change has been stored.
func (c *Cleaner) ScheduleImageCleanup(ctx context.Context, kind, ownerID, aggregateID string, urls []string) error {
	prefix := path.Join(storage.FolderOptionImages, path.Base(ownerID)) + "/"
	seen := make(map[string]struct{}, len(urls))
	var candidates []string
	for _, u := range urls {
		key, ok := c.keys.KeyFromURL(u)
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, key)
	}
	if len(candidates) == 0 {
		return nil
	}

	inUse, err := c.referencedKeys(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("scan references: %w", err)
	}
	keys := candidates[:0]
	for _, key := range candidates {
		if _, ok := inUse[key]; !ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		c.logger.Debug("images still referenced, nothing to clean", zap.String("kind", kind), zap.String("aggregate_id", aggregateID))
		return nil
	}

	c.logger.Debug("scheduling image cleanup", zap.String("kind", kind), zap.String("aggregate_id", aggregateID), zap.Int("keys", len(keys)))
	return c.queue.EnqueueImageCleanup(ctx, queue.ImageCleanupPayload{
		Kind:        kind,
		AggregateID: aggregateID,
		Bucket:      c.keys.Bucket(),
		Keys:        keys,
	})
}

// referencedKeys collects the object keys of every image the owner's quizzes and polls use.
func (c *Cleaner) referencedKeys(ctx context.Context, ownerID string) (map[string]struct{}, error) {
	var (
		quizzes []models.Quiz
		polls   []models.Poll
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quizzes, err = c.quizzes.ListByOwner(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		polls, err = c.polls.ListByOwner(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var urls []string
	for i := range quizzes {
		urls = append(urls, quizzes[i].ImageURLs()...)
	}
	for i := range polls {
		urls = append(urls, polls[i].ImageURLs()...)
	}
	keys := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if key, ok := c.keys.KeyFromURL(u); ok {
			keys[key] = struct{}{}
		}
	}
	return keys, nil
}
