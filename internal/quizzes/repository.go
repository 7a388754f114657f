package quizzes

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

// Repository handles quiz persistence. Lookups of a missing quiz return models.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, q *models.Quiz) error
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	// ListByOwner returns the owner's quizzes, most impressions first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Quiz, error)
	// UpdateQuestions overwrites the whole question sequence in one write.
	UpdateQuestions(ctx context.Context, id string, questions []models.QuizQuestion, updatedAt time.Time) (*models.Quiz, error)
	Delete(ctx context.Context, id string) (*models.Quiz, error)
	// IncrementImpressions atomically adds one impression.
	IncrementImpressions(ctx context.Context, id string) (*models.Quiz, error)
}

// PostgresRepository stores quizzes as rows with a JSONB questions document.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Postgres-backed quiz repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const quizColumns = `id, title, questions, created_by, impressions, created_at, updated_at`

func scanQuiz(row pgx.Row) (*models.Quiz, error) {
	var q models.Quiz
	var questions []byte
	if err := row.Scan(&q.ID, &q.Title, &questions, &q.CreatedBy, &q.Impressions, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &q, nil
}

// Create inserts a new quiz.
func (r *PostgresRepository) Create(ctx context.Context, q *models.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	const stmt = `INSERT INTO quizzes (` + quizColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.pool.Exec(ctx, stmt, q.ID, q.Title, string(questions), q.CreatedBy, q.Impressions, q.CreatedAt, q.UpdatedAt); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

// GetByID returns a quiz by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	q, err := scanQuiz(r.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("select quiz: %w", err)
	}
	return q, err
}

// ListByOwner returns quizzes created by ownerID ordered by impressions, newest first on ties.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Quiz, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes
		WHERE created_by = $1 ORDER BY impressions DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()
	list := make([]models.Quiz, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		list = append(list, *q)
	}
	return list, rows.Err()
}

// UpdateQuestions replaces the questions document.
func (r *PostgresRepository) UpdateQuestions(ctx context.Context, id string, questions []models.QuizQuestion, updatedAt time.Time) (*models.Quiz, error) {
	doc, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	q, err := scanQuiz(r.pool.QueryRow(ctx, `UPDATE quizzes SET questions = $2, updated_at = $3
		WHERE id = $1 RETURNING `+quizColumns, id, string(doc), updatedAt))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	return q, err
}

// Delete removes a quiz and returns it.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (*models.Quiz, error) {
	q, err := scanQuiz(r.pool.QueryRow(ctx, `DELETE FROM quizzes WHERE id = $1 RETURNING `+quizColumns, id))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("delete quiz: %w", err)
	}
	return q, err
}

// IncrementImpressions adds one impression in a single UPDATE.
func (r *PostgresRepository) IncrementImpressions(ctx context.Context, id string) (*models.Quiz, error) {
	q, err := scanQuiz(r.pool.QueryRow(ctx, `UPDATE quizzes SET impressions = impressions + 1
		WHERE id = $1 RETURNING `+quizColumns, id))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("increment impressions: %w", err)
	}
	return q, err
}
