package quizzes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quizzie/backend/internal/models"
)

// MemoryRepository keeps quizzes in process memory. Used for local runs and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	quizzes map[string]models.Quiz
}

// NewMemoryRepository creates an empty in-memory quiz repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{quizzes: make(map[string]models.Quiz)}
}

// clone copies the question and option slices so callers never share memory with the store.
func clone(q models.Quiz) *models.Quiz {
	q.Questions = cloneQuestions(q.Questions)
	return &q
}

func cloneQuestions(in []models.QuizQuestion) []models.QuizQuestion {
	out := make([]models.QuizQuestion, len(in))
	for i, question := range in {
		question.Options = append([]models.QuizOption(nil), question.Options...)
		out[i] = question
	}
	return out
}

func (r *MemoryRepository) Create(_ context.Context, q *models.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes[q.ID] = *clone(*q)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quizzes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(q), nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Quiz, error) {
	r.mu.RLock()
	list := make([]models.Quiz, 0)
	for _, q := range r.quizzes {
		if q.CreatedBy == ownerID {
			list = append(list, *clone(q))
		}
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].Impressions != list[j].Impressions {
			return list[i].Impressions > list[j].Impressions
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (r *MemoryRepository) UpdateQuestions(_ context.Context, id string, questions []models.QuizQuestion, updatedAt time.Time) (*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quizzes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	q.Questions = cloneQuestions(questions)
	q.UpdatedAt = updatedAt
	r.quizzes[id] = q
	return clone(q), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) (*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quizzes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(r.quizzes, id)
	return clone(q), nil
}

func (r *MemoryRepository) IncrementImpressions(_ context.Context, id string) (*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quizzes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	q.Impressions++
	r.quizzes[id] = q
	return clone(q), nil
}
