package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quizzie/backend/internal/middleware"
	"github.com/quizzie/backend/internal/models"
	"github.com/quizzie/backend/pkg/response"
)

// TrendingThreshold is the impression count above which a quiz or poll counts as trending.
const TrendingThreshold = 10

// QuizLister lists an owner's quizzes. quizzes.Repository satisfies it.
type QuizLister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Quiz, error)
}

// PollLister lists an owner's polls. polls.Repository satisfies it.
type PollLister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Poll, error)
}

// Handler handles GET /analytics/dashboard.
type Handler struct {
	quizzes QuizLister
	polls   PollLister
	logger  *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(quizzes QuizLister, polls PollLister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{quizzes: quizzes, polls: polls, logger: logger}
}

// TrendingItem is one quiz or poll in the trending list.
type TrendingItem struct {
	ID          string      `json:"id"`
	Kind        models.Kind `json:"kind"`
	Title       string      `json:"title"`
	Impressions int         `json:"impressions"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// DashboardResponse summarizes everything the caller owns.
type DashboardResponse struct {
	QuizzesCreated   int            `json:"quizzesCreated"`
	PollsCreated     int            `json:"pollsCreated"`
	QuestionsCreated int            `json:"questionsCreated"`
	TotalImpressions int            `json:"totalImpressions"`
	Trending         []TrendingItem `json:"trending"`
}

// Dashboard handles GET /analytics/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	owner := middleware.UserID(c)

	var (
		quizzes []models.Quiz
		polls   []models.Poll
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		quizzes, err = h.quizzes.ListByOwner(ctx, owner)
		return err
	})
	g.Go(func() error {
		var err error
		polls, err = h.polls.ListByOwner(ctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("load dashboard", zap.String("user_id", owner), zap.Error(err))
		response.Internal(c, "failed to load dashboard")
		return
	}

	response.OK(c, "Dashboard fetched successfully", Summarize(quizzes, polls))
}

// Summarize folds an owner's quizzes and polls into dashboard totals. Trending items are
// ordered by impressions, newest first on ties.
func Summarize(quizzes []models.Quiz, polls []models.Poll) DashboardResponse {
	resp := DashboardResponse{
		QuizzesCreated: len(quizzes),
		PollsCreated:   len(polls),
		Trending:       []TrendingItem{},
	}
	for _, q := range quizzes {
		resp.QuestionsCreated += len(q.Questions)
		resp.TotalImpressions += q.Impressions
		if q.Impressions > TrendingThreshold {
			resp.Trending = append(resp.Trending, TrendingItem{q.ID, models.KindQuiz, q.Title, q.Impressions, q.CreatedAt})
		}
	}
	for _, p := range polls {
		resp.QuestionsCreated += len(p.Questions)
		resp.TotalImpressions += p.Impressions
		if p.Impressions > TrendingThreshold {
			resp.Trending = append(resp.Trending, TrendingItem{p.ID, models.KindPoll, p.Title, p.Impressions, p.CreatedAt})
		}
	}
	sort.SliceStable(resp.Trending, func(i, j int) bool {
		a, b := resp.Trending[i], resp.Trending[j]
		if a.Impressions != b.Impressions {
			return a.Impressions > b.Impressions
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return resp
}
