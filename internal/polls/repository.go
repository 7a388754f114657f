package polls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizzie/backend/internal/models"
)

// Repository handles poll persistence. Lookups of a missing poll return models.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, p *models.Poll) error
	GetByID(ctx context.Context, id string) (*models.Poll, error)
	// ListByOwner returns the owner's polls, most impressions first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Poll, error)
	// UpdateQuestions overwrites the whole question sequence in one write.
	UpdateQuestions(ctx context.Context, id string, questions []models.PollQuestion, updatedAt time.Time) (*models.Poll, error)
	Delete(ctx context.Context, id string) (*models.Poll, error)
	// IncrementImpressions atomically adds one impression.
	IncrementImpressions(ctx context.Context, id string) (*models.Poll, error)
}

// PostgresRepository stores polls as rows with a JSONB questions document.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Postgres-backed poll repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const pollColumns = `id, title, questions, created_by, impressions, created_at, updated_at`

func scanPoll(row pgx.Row) (*models.Poll, error) {
	var p models.Poll
	var questions []byte
	if err := row.Scan(&p.ID, &p.Title, &questions, &p.CreatedBy, &p.Impressions, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(questions, &p.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &p, nil
}

// queryOne runs a single-row statement and wraps unexpected errors with action.
func (r *PostgresRepository) queryOne(ctx context.Context, action, q string, args ...any) (*models.Poll, error) {
	p, err := scanPoll(r.pool.QueryRow(ctx, q, args...))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return p, err
}

// Create inserts a new poll.
func (r *PostgresRepository) Create(ctx context.Context, p *models.Poll) error {
	questions, err := json.Marshal(p.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	const stmt = `INSERT INTO polls (` + pollColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.pool.Exec(ctx, stmt, p.ID, p.Title, string(questions), p.CreatedBy, p.Impressions, p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}
	return nil
}

// GetByID returns a poll by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Poll, error) {
	return r.queryOne(ctx, "select poll", `SELECT `+pollColumns+` FROM polls WHERE id = $1`, id)
}

// ListByOwner returns polls created by ownerID ordered by impressions, newest first on ties.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Poll, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+pollColumns+` FROM polls
		WHERE created_by = $1 ORDER BY impressions DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	defer rows.Close()
	list := make([]models.Poll, 0)
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// UpdateQuestions replaces the questions document.
func (r *PostgresRepository) UpdateQuestions(ctx context.Context, id string, questions []models.PollQuestion, updatedAt time.Time) (*models.Poll, error) {
	doc, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	return r.queryOne(ctx, "update poll", `UPDATE polls SET questions = $2, updated_at = $3
		WHERE id = $1 RETURNING `+pollColumns, id, string(doc), updatedAt)
}

// Delete removes a poll and returns it.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (*models.Poll, error) {
	return r.queryOne(ctx, "delete poll", `DELETE FROM polls WHERE id = $1 RETURNING `+pollColumns, id)
}

// IncrementImpressions adds one impression in a single UPDATE.
func (r *PostgresRepository) IncrementImpressions(ctx context.Context, id string) (*models.Poll, error) {
	return r.queryOne(ctx, "increment impressions", `UPDATE polls SET impressions = impressions + 1
		WHERE id = $1 RETURNING `+pollColumns, id)
}
