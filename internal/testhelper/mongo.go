package testhelper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/quizzie/backend/pkg/mongodb"
)

// NewMongoDatabase starts a throwaway MongoDB container, creates the indexes and returns the database.
// The test is skipped when Docker is unavailable.
func NewMongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}
	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("failed to create MongoDB container: %v", err)
	}
	t.Cleanup(func() {
		_ = mongoC.Terminate(context.Background())
	})

	endpoint, err := mongoC.Endpoint(ctx, "")
	if err != nil {
		t.Skipf("failed to get MongoDB container endpoint: %v", err)
	}

	client, err := mongodb.Connect(ctx, fmt.Sprintf("mongodb://%s", endpoint), "quizzie_test", zap.NewNop())
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close(context.Background())
	})

	if err := client.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return client.DB
}
