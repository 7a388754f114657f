package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueAndDequeueImageCleanup(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	payload := ImageCleanupPayload{Kind: "quiz", AggregateID: "q1", Bucket: "images", Keys: []string{"option-images/u/a.png"}}
	require.NoError(t, q.EnqueueImageCleanup(ctx, payload))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeImageCleanup, job.Type)
	assert.Zero(t, job.Attempt)

	var got ImageCleanupPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	assert.Equal(t, payload, got)
}

func TestDequeueSkipsGarbage(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.RPush(QueueImageCleanup, "not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRetryMovesToDLQAfterMaxRetries(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()
	job := &Job{ID: "j1", Type: JobTypeImageCleanup}
	cause := errors.New("access denied")

	for i := 1; i < MaxRetries; i++ {
		dead, err := q.Retry(ctx, job, cause)
		require.NoError(t, err)
		assert.False(t, dead)
	}
	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, MaxRetries-1, pending)
	assert.False(t, mr.Exists(QueueDLQ))

	dead, err := q.Retry(ctx, job, cause)
	require.NoError(t, err)
	assert.True(t, dead)
	assert.Equal(t, MaxRetries, job.Attempt)

	letters, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "j1", letters[0].ID)
	assert.Equal(t, "access denied", letters[0].LastError)
}

func TestDeadLettersEmpty(t *testing.T) {
	q, _ := newTestQueue(t)
	letters, err := q.DeadLetters(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, letters)

	letters, err = q.DeadLetters(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, letters)
}
