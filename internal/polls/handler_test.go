package polls

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizzie/backend/internal/auth"
	"github.com/quizzie/backend/internal/middleware"
	"github.com/quizzie/backend/internal/models"
	"github.com/quizzie/backend/internal/realtime"
)

type recordingHub struct {
	events []string
}

func (r *recordingHub) Publish(topic, event string, _ interface{}) {
	r.events = append(r.events, topic+"/"+event)
}

func (r *recordingHub) ServeWS(c *gin.Context, topic, _ string) {
	c.String(http.StatusOK, topic)
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func setup(t *testing.T) (*gin.Engine, *MemoryRepository, *recordingHub, *auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepository()
	hub := &recordingHub{}
	jwt := auth.NewJWTService("secret", 1)
	h := NewHandler(repo, hub, nil, nil)

	r := gin.New()
	g := r.Group("/poll")
	authed := middleware.JWT(jwt)
	g.POST("/create-poll", authed, h.Create)
	g.GET("/get-all-polls", authed, h.List)
	g.GET("/get-poll/:pollId", authed, h.Get)
	g.GET("/view-poll/:pollId", h.View)
	g.PUT("/update-poll/:pollId", authed, h.Update)
	g.PUT("/update-poll-stats/:pollId", h.UpdateStats)
	g.PUT("/impression-increment/:pollId", h.Impression)
	g.DELETE("/delete-poll/:pollId", authed, h.Delete)
	return r, repo, hub, jwt
}

func call(t *testing.T, r http.Handler, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func pollPayload() gin.H {
	return gin.H{
		"title": "Lunch",
		"questions": []gin.H{
			{
				"pollQuestion": "Where?",
				"optionType":   "text",
				"options":      []gin.H{{"text": "Pizza", "selectionCount": 40}, {"text": "Sushi"}, {"text": "Tacos"}},
			},
		},
	}
}

func createPoll(t *testing.T, r http.Handler, token string) models.Poll {
	t.Helper()
	code, env := call(t, r, http.MethodPost, "/poll/create-poll", token, pollPayload())
	require.Equal(t, http.StatusCreated, code, env.Message)
	var p models.Poll
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func mustToken(t *testing.T, jwt *auth.JWTService, userID string) string {
	t.Helper()
	tok, err := jwt.Generate(userID, userID+"@example.com")
	require.NoError(t, err)
	return tok
}

func TestCreatePollZeroesCounts(t *testing.T) {
	r, _, _, jwt := setup(t)
	p := createPoll(t, r, mustToken(t, jwt, "owner"))

	assert.Equal(t, "owner", p.CreatedBy)
	require.Len(t, p.Questions, 1)
	for _, o := range p.Questions[0].Options {
		assert.Equal(t, 0, o.SelectionCount)
	}
}

func TestCreatePollValidation(t *testing.T) {
	r, repo, _, jwt := setup(t)
	tok := mustToken(t, jwt, "owner")

	code, _ := call(t, r, http.MethodPost, "/poll/create-poll", "", pollPayload())
	assert.Equal(t, http.StatusUnauthorized, code)

	bad := pollPayload()
	bad["questions"].([]gin.H)[0]["optionType"] = "video"
	code, env := call(t, r, http.MethodPost, "/poll/create-poll", tok, bad)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "optionType")

	code, _ = call(t, r, http.MethodPost, "/poll/create-poll", tok, gin.H{"title": "", "questions": pollPayload()["questions"]})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, repo.polls)
}

func TestUpdatePollStats(t *testing.T) {
	r, repo, hub, jwt := setup(t)
	p := createPoll(t, r, mustToken(t, jwt, "owner"))
	qid := p.Questions[0].ID

	code, env := call(t, r, http.MethodPut, "/poll/update-poll-stats/"+p.ID, "", gin.H{
		"questionResults": []gin.H{
			{"questionId": qid, "optionsSelected": []int{0, 2, 2, 7, -1}},
			{"questionId": "ghost", "optionsSelected": []int{0}},
		},
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	stored, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	opts := stored.Questions[0].Options
	assert.Equal(t, []int{1, 0, 2}, []int{opts[0].SelectionCount, opts[1].SelectionCount, opts[2].SelectionCount})
	assert.Contains(t, hub.events, realtime.Topic("poll", p.ID)+"/"+realtime.EventStatsUpdated)

	code, _ = call(t, r, http.MethodPut, "/poll/update-poll-stats/"+p.ID, "", gin.H{"results": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdatePollKeepsCountsByIndex(t *testing.T) {
	r, _, _, jwt := setup(t)
	tok := mustToken(t, jwt, "owner")
	p := createPoll(t, r, tok)
	qid := p.Questions[0].ID

	call(t, r, http.MethodPut, "/poll/update-poll-stats/"+p.ID, "", gin.H{
		"questionResults": []gin.H{{"questionId": qid, "optionsSelected": []int{1}}},
	})

	code, env := call(t, r, http.MethodPut, "/poll/update-poll/"+p.ID, tok, gin.H{
		"questions": []gin.H{{
			"id":           qid,
			"pollQuestion": "Where to eat?",
			"optionType":   "text",
			"options":      []gin.H{{"text": "Pizza"}, {"text": "Ramen"}},
		}},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var updated models.Poll
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 1, updated.Questions[0].Options[1].SelectionCount)
	assert.Equal(t, "Ramen", updated.Questions[0].Options[1].Text)
}

func TestPollOwnershipAndLifecycle(t *testing.T) {
	r, _, hub, jwt := setup(t)
	owner := mustToken(t, jwt, "owner")
	intruder := mustToken(t, jwt, "intruder")
	p := createPoll(t, r, owner)

	code, _ := call(t, r, http.MethodGet, "/poll/get-poll/"+p.ID, intruder, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = call(t, r, http.MethodDelete, "/poll/delete-poll/"+p.ID, intruder, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = call(t, r, http.MethodGet, "/poll/view-poll/"+p.ID, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := call(t, r, http.MethodPut, "/poll/impression-increment/"+p.ID, "", nil)
	require.Equal(t, http.StatusOK, code)
	var bumped models.Poll
	require.NoError(t, json.Unmarshal(env.Data, &bumped))
	assert.Equal(t, 1, bumped.Impressions)

	code, env = call(t, r, http.MethodGet, "/poll/get-all-polls", owner, nil)
	require.Equal(t, http.StatusOK, code)
	var list []models.Poll
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	code, _ = call(t, r, http.MethodDelete, "/poll/delete-poll/"+p.ID, owner, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, hub.events, realtime.Topic("poll", p.ID)+"/"+realtime.EventDeleted)

	code, _ = call(t, r, http.MethodGet, "/poll/view-poll/"+p.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, r, http.MethodPut, "/poll/impression-increment/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, r, http.MethodGet, "/poll/view-poll/123", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPollHandlerUsesInjectedClock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	edited := created.Add(time.Hour)
	jwt := auth.NewJWTService("secret", 1)
	h := NewHandler(NewMemoryRepository(), nil, nil, nil)
	h.now = func() time.Time { return created }

	r := gin.New()
	r.POST("/poll/create-poll", middleware.JWT(jwt), h.Create)
	r.PUT("/poll/update-poll/:pollId", middleware.JWT(jwt), h.Update)
	tok := mustToken(t, jwt, "owner")

	p := createPoll(t, r, tok)
	assert.True(t, created.Equal(p.CreatedAt))
	assert.True(t, created.Equal(p.UpdatedAt))

	h.now = func() time.Time { return edited }
	code, env := call(t, r, http.MethodPut, "/poll/update-poll/"+p.ID, tok, gin.H{"questions": pollPayload()["questions"]})
	require.Equal(t, http.StatusOK, code, env.Message)
	var updated models.Poll
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.True(t, created.Equal(updated.CreatedAt))
	assert.True(t, edited.Equal(updated.UpdatedAt))
}
