package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueImageCleanup is the Redis list key for option-image cleanup jobs.
	QueueImageCleanup = "worker:image-cleanup"
	// QueueDLQ is the dead-letter list for jobs that exhausted their retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of failed attempts after which a job is dead-lettered.
	MaxRetries = 3
	// RetryBackoff is the pause a worker takes after a failed attempt.
	RetryBackoff = 10 * time.Second
	// dequeueWait bounds each BLPOP so the worker loop observes cancellation.
	dequeueWait = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeImageCleanup JobType = "image_cleanup"
)

// ImageCleanupPayload lists the object keys left behind by an updated or deleted quiz or poll.
type ImageCleanupPayload struct {
	Kind        string   `json:"kind"`
	AggregateID string   `json:"aggregate_id"`
	Bucket      string   `json:"bucket"`
	Keys        []string `json:"keys"`
}

// Job is the envelope stored in the Redis lists.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue is a Redis list backed job queue with a dead-letter list.
type Queue struct {
	client *redis.Client
	list   string
	logger *zap.Logger
}

// NewQueue creates the image cleanup queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, list: QueueImageCleanup, logger: logger}
}

// EnqueueImageCleanup enqueues removal of uploaded option images.
func (q *Queue) EnqueueImageCleanup(ctx context.Context, payload ImageCleanupPayload) error {
	job, err := q.enqueue(ctx, JobTypeImageCleanup, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued image cleanup job",
		zap.String("job_id", job.ID),
		zap.String("aggregate_id", payload.AggregateID),
		zap.Int("keys", len(payload.Keys)),
	)
	return nil
}

func (q *Queue) enqueue(ctx context.Context, typ JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.push(ctx, q.list, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (q *Queue) push(ctx context.Context, list string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, list, raw).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", list, err)
	}
	return nil
}

// Dequeue waits briefly for a job. It returns a nil job when the wait times out
// or the entry could not be decoded.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, dequeueWait, q.list).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry records a failed attempt. The job goes back on the queue until it has failed
// MaxRetries times; then it moves to the dead-letter list and dead is true.
func (q *Queue) Retry(ctx context.Context, job *Job, cause error) (dead bool, err error) {
	job.Attempt++
	if cause != nil {
		job.LastError = cause.Error()
	}
	if job.Attempt >= MaxRetries {
		if err := q.push(ctx, QueueDLQ, job); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return false, err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return true, nil
	}
	if err := q.push(ctx, q.list, job); err != nil {
		return false, err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return false, nil
}

// Pending reports how many jobs wait in the queue.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.list).Result()
}

// DeadLetters returns up to limit dead-lettered jobs, oldest first, without removing them.
func (q *Queue) DeadLetters(ctx context.Context, limit int64) ([]Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	raws, err := q.client.LRange(ctx, QueueDLQ, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", QueueDLQ, err)
	}
	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
