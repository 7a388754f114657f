package quizzes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizzie/backend/internal/metrics"
	"github.com/quizzie/backend/internal/middleware"
	"github.com/quizzie/backend/internal/models"
	"github.com/quizzie/backend/internal/realtime"
	"github.com/quizzie/backend/pkg/response"
)

const kind = string(models.KindQuiz)

// CreateRequest is the body for POST /quiz/create-quiz.
type CreateRequest struct {
	Title     string                `json:"title"`
	Questions []models.QuizQuestion `json:"questions"`
}

// UpdateRequest is the body for PUT /quiz/update-quiz/:quizId.
type UpdateRequest struct {
	Questions []models.QuizQuestion `json:"questions"`
}

// StatsRequest is the body for PUT /quiz/update-quiz-stats/:quizId.
type StatsRequest struct {
	QuestionResults []models.QuizResult `json:"questionResults" binding:"required"`
}

// LiveHub publishes live events and serves live WebSocket subscribers. *realtime.Hub satisfies it.
type LiveHub interface {
	Publish(topic, event string, payload interface{})
	ServeWS(c *gin.Context, topic, userID string)
}

// ImageCleaner schedules removal of uploaded option images that are no longer referenced.
type ImageCleaner interface {
	ScheduleImageCleanup(ctx context.Context, kind, ownerID, aggregateID string, urls []string) error
}

// Handler handles quiz HTTP endpoints.
type Handler struct {
	repo    Repository
	hub     LiveHub
	cleaner ImageCleaner
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a quizzes handler. hub and cleaner may be nil.
func NewHandler(repo Repository, hub LiveHub, cleaner ImageCleaner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:    repo,
		hub:     hub,
		cleaner: cleaner,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create handles POST /quiz/create-quiz.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if err := models.ValidateQuiz(title, req.Questions); err != nil {
		h.fail(c, err, "create quiz")
		return
	}

	q := models.NewQuiz(middleware.UserID(c), title, req.Questions, h.now())
	if err := h.repo.Create(c.Request.Context(), q); err != nil {
		h.fail(c, err, "create quiz")
		return
	}
	metrics.RecordAggregateCreated(kind)
	response.Created(c, "Quiz created successfully", q)
}

// List handles GET /quiz/get-quizzes.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "list quizzes")
		return
	}
	response.OK(c, "Quizzes fetched successfully", list)
}

// Get handles GET /quiz/get-quiz/:quizId (owner only).
func (h *Handler) Get(c *gin.Context) {
	q, ok := h.loadOwned(c)
	if !ok {
		return
	}
	response.OK(c, "Quiz fetched successfully", q)
}

// View handles GET /quiz/view-quiz/:quizId (public).
func (h *Handler) View(c *gin.Context) {
	q, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, "Quiz viewed successfully", q)
}

// Update handles PUT /quiz/update-quiz/:quizId. Counters of questions that keep their id survive.
func (h *Handler) Update(c *gin.Context) {
	existing, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := models.ValidateQuizQuestions(req.Questions); err != nil {
		h.fail(c, err, "update quiz")
		return
	}

	before := existing.ImageURLs()
	existing.ReplaceQuestions(req.Questions, h.now())
	updated, err := h.repo.UpdateQuestions(c.Request.Context(), existing.ID, existing.Questions, existing.UpdatedAt)
	if err != nil {
		h.fail(c, err, "update quiz")
		return
	}
	h.cleanup(c.Request.Context(), updated.CreatedBy, updated.ID, models.DroppedImageURLs(before, updated.ImageURLs()))
	response.OK(c, "Quiz updated successfully", updated)
}

// UpdateStats handles PUT /quiz/update-quiz-stats/:quizId (public). The batch is applied to a
// loaded copy and written back whole, so concurrent batches may overwrite each other.
func (h *Handler) UpdateStats(c *gin.Context) {
	q, ok := h.load(c)
	if !ok {
		return
	}
	var req StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: questionResults must be an array")
		return
	}

	applied := q.ApplyResults(req.QuestionResults)
	updated, err := h.repo.UpdateQuestions(c.Request.Context(), q.ID, q.Questions, h.now())
	if err != nil {
		h.fail(c, err, "update quiz stats")
		return
	}
	metrics.RecordStatsBatch(kind, len(req.QuestionResults)-applied)
	h.publish(updated.ID, realtime.EventStatsUpdated, updated)
	response.OK(c, "Quiz results submitted successfully", updated)
}

// Impression handles PUT /quiz/impression-increment/:quizId (public).
func (h *Handler) Impression(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	q, err := h.repo.IncrementImpressions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "increment impressions")
		return
	}
	metrics.RecordImpression(kind)
	h.publish(q.ID, realtime.EventImpression, gin.H{"id": q.ID, "impressions": q.Impressions})
	response.OK(c, "Quiz impressions incremented successfully", q)
}

// Delete handles DELETE /quiz/delete-quiz/:quizId.
func (h *Handler) Delete(c *gin.Context) {
	existing, ok := h.loadOwned(c)
	if !ok {
		return
	}
	deleted, err := h.repo.Delete(c.Request.Context(), existing.ID)
	if err != nil {
		h.fail(c, err, "delete quiz")
		return
	}
	h.publish(deleted.ID, realtime.EventDeleted, gin.H{"id": deleted.ID})
	h.cleanup(c.Request.Context(), deleted.CreatedBy, deleted.ID, deleted.ImageURLs())
	response.OK(c, "Quiz deleted successfully", deleted)
}

// Live handles GET /quiz/live/:quizId: a WebSocket feed of the owner's quiz counters.
func (h *Handler) Live(c *gin.Context) {
	q, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if h.hub == nil {
		response.ServiceUnavailable(c, "live updates are not available")
		return
	}
	h.hub.ServeWS(c, realtime.Topic(kind, q.ID), middleware.UserID(c))
}

// parseID reads :quizId. Ids that are not UUIDs cannot exist and are reported as not found.
func parseID(c *gin.Context) (string, bool) {
	id := c.Param("quizId")
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(c, "Quiz not found")
		return "", false
	}
	return id, true
}

func (h *Handler) load(c *gin.Context) (*models.Quiz, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	q, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "get quiz")
		return nil, false
	}
	return q, true
}

func (h *Handler) loadOwned(c *gin.Context) (*models.Quiz, bool) {
	q, ok := h.load(c)
	if !ok {
		return nil, false
	}
	if q.CreatedBy != middleware.UserID(c) {
		h.fail(c, models.ErrForbidden, "")
		return nil, false
	}
	return q, true
}

func (h *Handler) fail(c *gin.Context, err error, action string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(c, verr.Error())
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "Quiz not found")
	case errors.Is(err, models.ErrForbidden):
		response.Forbidden(c, "you do not own this quiz")
	default:
		h.logger.Error(action, zap.Error(err))
		response.Internal(c, "failed to "+action)
	}
}

func (h *Handler) publish(id, event string, payload interface{}) {
	if h.hub != nil {
		h.hub.Publish(realtime.Topic(kind, id), event, payload)
	}
}

// cleanup schedules removal of images; failures are logged and never reach the client.
func (h *Handler) cleanup(ctx context.Context, ownerID, id string, urls []string) {
	if h.cleaner == nil || len(urls) == 0 {
		return
	}
	if err := h.cleaner.ScheduleImageCleanup(ctx, kind, ownerID, id, urls); err != nil {
		h.logger.Warn("schedule image cleanup", zap.String("quiz_id", id), zap.Error(err))
	}
}
