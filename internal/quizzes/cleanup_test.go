package quizzes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizzie/backend/internal/auth"
	"github.com/quizzie/backend/internal/middleware"
	"github.com/quizzie/backend/internal/models"
	"github.com/quizzie/backend/internal/polls"
	"github.com/quizzie/backend/internal/uploads"
	"github.com/quizzie/backend/pkg/queue"
)

const cdn = "https://cdn.test/"

type cdnKeys struct{}

func (cdnKeys) KeyFromURL(raw string) (string, bool) {
	if !strings.HasPrefix(raw, cdn) {
		return "", false
	}
	return strings.TrimPrefix(raw, cdn), true
}

func (cdnKeys) Bucket() string { return "images" }

type recordingQueue struct {
	payloads []queue.ImageCleanupPayload
}

func (r *recordingQueue) EnqueueImageCleanup(_ context.Context, p queue.ImageCleanupPayload) error {
	r.payloads = append(r.payloads, p)
	return nil
}

type cleanupFixture struct {
	router  *gin.Engine
	quizzes *MemoryRepository
	polls   *polls.MemoryRepository
	queue   *recordingQueue
	token   string
}

func newCleanupFixture(t *testing.T) *cleanupFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &cleanupFixture{
		quizzes: NewMemoryRepository(),
		polls:   polls.NewMemoryRepository(),
		queue:   &recordingQueue{},
	}
	jwt := auth.NewJWTService("secret", 1)
	tok, err := jwt.Generate("owner", "owner@example.com")
	require.NoError(t, err)
	f.token = tok

	cleaner := uploads.NewCleaner(cdnKeys{}, f.queue, f.quizzes, f.polls, nil)
	h := NewHandler(f.quizzes, nil, cleaner, nil)
	r := gin.New()
	r.PUT("/quiz/update-quiz/:quizId", middleware.JWT(jwt), h.Update)
	r.DELETE("/quiz/delete-quiz/:quizId", middleware.JWT(jwt), h.Delete)
	f.router = r
	return f
}

func imageQuestion(urls ...string) models.QuizQuestion {
	q := models.QuizQuestion{PollQuestion: "Which one?", OptionType: models.OptionTypeImage}
	for i, u := range urls {
		q.Options = append(q.Options, models.QuizOption{ImageURL: u, Correct: i == 0})
	}
	return q
}

func (f *cleanupFixture) storeQuiz(t *testing.T, urls ...string) *models.Quiz {
	t.Helper()
	q := models.NewQuiz("owner", "Pictures", []models.QuizQuestion{imageQuestion(urls...)}, time.Now())
	require.NoError(t, f.quizzes.Create(context.Background(), q))
	return q
}

func (f *cleanupFixture) send(t *testing.T, method, path, body string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w.Code
}

func TestDeleteKeepsImageSharedWithAnotherQuiz(t *testing.T) {
	f := newCleanupFixture(t)
	shared := cdn + "option-images/owner/shared.png"
	first := f.storeQuiz(t, shared, cdn+"option-images/owner/other.png")
	second := f.storeQuiz(t, shared, cdn+"option-images/owner/other.png")

	require.Equal(t, http.StatusOK, f.send(t, http.MethodDelete, "/quiz/delete-quiz/"+first.ID, ""))
	assert.Empty(t, f.queue.payloads)

	require.Equal(t, http.StatusOK, f.send(t, http.MethodDelete, "/quiz/delete-quiz/"+second.ID, ""))
	require.Len(t, f.queue.payloads, 1)
	assert.ElementsMatch(t, []string{"option-images/owner/shared.png", "option-images/owner/other.png"}, f.queue.payloads[0].Keys)
	assert.Equal(t, second.ID, f.queue.payloads[0].AggregateID)
}

func TestDeleteKeepsImageSharedWithPoll(t *testing.T) {
	f := newCleanupFixture(t)
	shared := cdn + "option-images/owner/shared.png"
	q := f.storeQuiz(t, shared, cdn+"option-images/owner/quiz-only.png")
	p := models.NewPoll("owner", "Vote", []models.PollQuestion{{
		PollQuestion: "Pick",
		OptionType:   models.OptionTypeImage,
		Options:      []models.PollOption{{ImageURL: shared}, {ImageURL: cdn + "option-images/owner/poll-only.png"}},
	}}, time.Now())
	require.NoError(t, f.polls.Create(context.Background(), p))

	require.Equal(t, http.StatusOK, f.send(t, http.MethodDelete, "/quiz/delete-quiz/"+q.ID, ""))
	require.Len(t, f.queue.payloads, 1)
	assert.Equal(t, []string{"option-images/owner/quiz-only.png"}, f.queue.payloads[0].Keys)
}

func TestDeleteLeavesOtherUsersImages(t *testing.T) {
	f := newCleanupFixture(t)
	q := f.storeQuiz(t, cdn+"option-images/someone-else/theirs.png", cdn+"option-images/owner/mine.png")

	require.Equal(t, http.StatusOK, f.send(t, http.MethodDelete, "/quiz/delete-quiz/"+q.ID, ""))
	require.Len(t, f.queue.payloads, 1)
	assert.Equal(t, []string{"option-images/owner/mine.png"}, f.queue.payloads[0].Keys)
}

func TestUpdateKeepsDroppedImageUsedElsewhere(t *testing.T) {
	f := newCleanupFixture(t)
	shared := cdn + "option-images/owner/shared.png"
	q := f.storeQuiz(t, shared, cdn+"option-images/owner/b.png")
	f.storeQuiz(t, shared, cdn+"option-images/owner/c.png")

	body := `{"questions":[{"id":"` + q.Questions[0].ID + `","pollQuestion":"Which one?","optionType":"text",` +
		`"options":[{"text":"yes","correct":true},{"text":"no"}]}]}`
	require.Equal(t, http.StatusOK, f.send(t, http.MethodPut, "/quiz/update-quiz/"+q.ID, body))
	require.Len(t, f.queue.payloads, 1)
	assert.Equal(t, []string{"option-images/owner/b.png"}, f.queue.payloads[0].Keys)
}
