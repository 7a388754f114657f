package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizzie/backend/internal/middleware"
	"github.com/quizzie/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type quizList struct {
	byOwner map[string][]models.Quiz
	err     error
}

func (l quizList) ListByOwner(_ context.Context, owner string) ([]models.Quiz, error) {
	return l.byOwner[owner], l.err
}

type pollList struct {
	byOwner map[string][]models.Poll
}

func (l pollList) ListByOwner(_ context.Context, owner string) ([]models.Poll, error) {
	return l.byOwner[owner], nil
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSummarize(t *testing.T) {
	quizzes := []models.Quiz{
		{ID: "q1", Title: "Hot", Impressions: 30, CreatedAt: t0, Questions: make([]models.QuizQuestion, 3)},
		{ID: "q2", Title: "Cold", Impressions: 10, CreatedAt: t0, Questions: make([]models.QuizQuestion, 1)},
	}
	polls := []models.Poll{
		{ID: "p1", Title: "Warm", Impressions: 11, CreatedAt: t0, Questions: make([]models.PollQuestion, 2)},
		{ID: "p2", Title: "Hot too", Impressions: 30, CreatedAt: t0.Add(time.Hour), Questions: make([]models.PollQuestion, 1)},
	}

	got := Summarize(quizzes, polls)
	assert.Equal(t, 2, got.QuizzesCreated)
	assert.Equal(t, 2, got.PollsCreated)
	assert.Equal(t, 7, got.QuestionsCreated)
	assert.Equal(t, 81, got.TotalImpressions)

	require.Len(t, got.Trending, 3, "exactly 10 impressions is not trending")
	assert.Equal(t, "p2", got.Trending[0].ID, "newer wins the tie")
	assert.Equal(t, models.KindPoll, got.Trending[0].Kind)
	assert.Equal(t, "q1", got.Trending[1].ID)
	assert.Equal(t, "p1", got.Trending[2].ID)
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, nil)
	assert.Zero(t, got.TotalImpressions)
	assert.NotNil(t, got.Trending)
}

func serveDashboard(h *Handler, user string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/analytics/dashboard", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, user)
		c.Next()
	}, h.Dashboard)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analytics/dashboard", nil))
	return w
}

func TestDashboardScopedToCaller(t *testing.T) {
	h := NewHandler(
		quizList{byOwner: map[string][]models.Quiz{
			"alice": {{ID: "q1", Impressions: 12}},
			"bob":   {{ID: "q9", Impressions: 99}},
		}},
		pollList{byOwner: map[string][]models.Poll{"alice": {{ID: "p1", Impressions: 3}}}},
		nil,
	)

	w := serveDashboard(h, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data DashboardResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 1, env.Data.QuizzesCreated)
	assert.Equal(t, 1, env.Data.PollsCreated)
	assert.Equal(t, 15, env.Data.TotalImpressions)
	require.Len(t, env.Data.Trending, 1)
	assert.Equal(t, "q1", env.Data.Trending[0].ID)
}

func TestDashboardStoreError(t *testing.T) {
	h := NewHandler(quizList{err: errors.New("connection refused")}, pollList{}, nil)
	w := serveDashboard(h, "alice")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
