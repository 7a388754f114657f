package polls

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quizzie/backend/internal/models"
)

// MemoryRepository keeps polls in process memory. Used for local runs and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	polls map[string]models.Poll
}

// NewMemoryRepository creates an empty in-memory poll repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{polls: make(map[string]models.Poll)}
}

func clone(p models.Poll) *models.Poll {
	p.Questions = cloneQuestions(p.Questions)
	return &p
}

func cloneQuestions(in []models.PollQuestion) []models.PollQuestion {
	out := make([]models.PollQuestion, len(in))
	for i, question := range in {
		question.Options = append([]models.PollOption(nil), question.Options...)
		out[i] = question
	}
	return out
}

func (r *MemoryRepository) Create(_ context.Context, p *models.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls[p.ID] = *clone(*p)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(p), nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Poll, error) {
	r.mu.RLock()
	list := make([]models.Poll, 0)
	for _, p := range r.polls {
		if p.CreatedBy == ownerID {
			list = append(list, *clone(p))
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

func (r *MemoryRepository) UpdateQuestions(_ context.Context, id string, questions []models.PollQuestion, updatedAt time.Time) (*models.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p.Questions = cloneQuestions(questions)
	p.UpdatedAt = updatedAt
	r.polls[id] = p
	return clone(p), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) (*models.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(r.polls, id)
	return clone(p), nil
}

func (r *MemoryRepository) IncrementImpressions(_ context.Context, id string) (*models.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p.Impressions++
	r.polls[id] = p
	return clone(p), nil
}
