package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quizzie/backend/internal/metrics"
	"github.com/quizzie/backend/pkg/queue"
)

// ObjectDeleter removes stored objects. *storage.S3 satisfies it.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, bucket, key string) error
}

// JobQueue is the part of *queue.Queue the worker consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) (dead bool, err error)
}

// ImageCleanupProcessor deletes the object keys named by image cleanup jobs. Reference checks
// happen before a job is enqueued; see uploads.Cleaner.
type ImageCleanupProcessor struct {
	deleter ObjectDeleter
	queue   JobQueue
	backoff time.Duration
	logger  *zap.Logger
}

// NewImageCleanupProcessor creates an image cleanup processor.
func NewImageCleanupProcessor(deleter ObjectDeleter, q JobQueue, logger *zap.Logger) *ImageCleanupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageCleanupProcessor{deleter: deleter, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one image cleanup job. Every key is attempted; failures are joined.
func (p *ImageCleanupProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeImageCleanup {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ImageCleanupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.Bucket == "" {
		return errors.New("payload has no bucket")
	}

	var errs []error
	for _, key := range payload.Keys {
		if err := p.deleter.DeleteObject(ctx, payload.Bucket, key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	p.logger.Info("image cleanup completed",
		zap.String("kind", payload.Kind),
		zap.String("aggregate_id", payload.AggregateID),
		zap.Int("keys", len(payload.Keys)),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ImageCleanupProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("image cleanup worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("dequeue error", zap.Error(err))
			}
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			dead, reErr := p.queue.Retry(ctx, job, err)
			switch {
			case reErr != nil:
				p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
			case dead:
				metrics.RecordCleanupJob("dead")
			default:
				metrics.RecordCleanupJob("retried")
			}
			p.sleep(ctx)
			continue
		}
		metrics.RecordCleanupJob("done")
	}
}

func (p *ImageCleanupProcessor) sleep(ctx context.Context) {
	if p.backoff <= 0 {
		return
	}
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
