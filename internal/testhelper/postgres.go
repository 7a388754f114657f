package testhelper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/quizzie/backend/pkg/database"
)

// NewPostgresPool starts a throwaway Postgres container, applies the migrations and returns a pool.
// The test is skipped when Docker is unavailable.
func NewPostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quizzie", "POSTGRES_PASSWORD": "quizzie", "POSTGRES_DB": "quizzie"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("failed to create Postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = pgC.Terminate(context.Background())
	})

	endpoint, err := pgC.Endpoint(ctx, "")
	if err != nil {
		t.Skipf("failed to get Postgres container endpoint: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quizzie:quizzie@%s/quizzie?sslmode=disable", endpoint)

	logger := zap.NewNop()
	pool, err := database.NewPostgresPool(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}
