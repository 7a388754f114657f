package polls

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

const kind = string(models.KindPoll)

// CreateRequest is the body for POST /poll/create-poll.
type CreateRequest struct {
	Title     string                `json:"title"`
	Questions []models.PollQuestion `json:"questions"`
}

// UpdateRequest is the body for PUT /poll/update-poll/:pollId.
type UpdateRequest struct {
	Questions []models.PollQuestion `json:"questions"`
}

// StatsRequest is the body for PUT /poll/update-poll-stats/:pollId.
type StatsRequest struct {
	QuestionResults []models.PollResult `json:"questionResults" binding:"required"`
}

// LiveHub publishes live events and serves live WebSocket subscribers.
type LiveHub interface {
	Publish(topic, event string, payload interface{})
	ServeWS(c *gin.Context, topic, userID string)
}

// ImageCleaner schedules removal of uploaded option images that are no longer referenced.
type ImageCleaner interface {
	ScheduleImageCleanup(ctx context.Context, kind, ownerID, aggregateID string, urls []string) error
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	repo    Repository
	hub     LiveHub
	cleaner ImageCleaner
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a polls handler. hub and cleaner may be nil.
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

// Create handles POST /poll/create-poll.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if err := models.ValidatePoll(title, req.Questions); err != nil {
		h.fail(c, err, "create poll")
		return
	}

	p := models.NewPoll(middleware.UserID(c), title, req.Questions, h.now())
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		h.fail(c, err, "create poll")
		return
	}
	metrics.RecordAggregateCreated(kind)
	response.Created(c, "Poll created successfully", p)
}

// List handles GET /poll/get-all-polls.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "list polls")
		return
	}
	response.OK(c, "Polls fetched successfully", list)
}

// Get handles GET /poll/get-poll/:pollId (owner only).
func (h *Handler) Get(c *gin.Context) {
	p, ok := h.loadOwned(c)
	if !ok {
		return
	}
	response.OK(c, "Poll fetched successfully", p)
}

// View handles GET /poll/view-poll/:pollId (public).
func (h *Handler) View(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, "Poll viewed successfully", p)
}

// Update handles PUT /poll/update-poll/:pollId.
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
	if err := models.ValidatePollQuestions(req.Questions); err != nil {
		h.fail(c, err, "update poll")
		return
	}

	before := existing.ImageURLs()
	existing.ReplaceQuestions(req.Questions, h.now())
	updated, err := h.repo.UpdateQuestions(c.Request.Context(), existing.ID, existing.Questions, existing.UpdatedAt)
	if err != nil {
		h.fail(c, err, "update poll")
		return
	}
	h.cleanup(c.Request.Context(), updated.CreatedBy, updated.ID, models.DroppedImageURLs(before, updated.ImageURLs()))
	response.OK(c, "Poll updated successfully", updated)
}

// UpdateStats handles PUT /poll/update-poll-stats/:pollId (public). Read-modify-write:
// concurrent batches may overwrite each other.
func (h *Handler) UpdateStats(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	var req StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: questionResults must be an array")
		return
	}

	selections := 0
	for _, r := range req.QuestionResults {
		selections += len(r.OptionsSelected)
	}
	counted := p.ApplyResults(req.QuestionResults)
	updated, err := h.repo.UpdateQuestions(c.Request.Context(), p.ID, p.Questions, h.now())
	if err != nil {
		h.fail(c, err, "update poll stats")
		return
	}
	metrics.RecordStatsBatch(kind, selections-counted)
	h.publish(updated.ID, realtime.EventStatsUpdated, updated)
	response.OK(c, "Poll results submitted successfully", updated)
}

// Impression handles PUT /poll/impression-increment/:pollId (public).
func (h *Handler) Impression(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.repo.IncrementImpressions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "increment impressions")
		return
	}
	metrics.RecordImpression(kind)
	h.publish(p.ID, realtime.EventImpression, gin.H{"id": p.ID, "impressions": p.Impressions})
	response.OK(c, "Poll impressions incremented successfully", p)
}

// Delete handles DELETE /poll/delete-poll/:pollId.
func (h *Handler) Delete(c *gin.Context) {
	existing, ok := h.loadOwned(c)
	if !ok {
		return
	}
	deleted, err := h.repo.Delete(c.Request.Context(), existing.ID)
	if err != nil {
		h.fail(c, err, "delete poll")
		return
	}
	h.publish(deleted.ID, realtime.EventDeleted, gin.H{"id": deleted.ID})
	h.cleanup(c.Request.Context(), deleted.CreatedBy, deleted.ID, deleted.ImageURLs())
	response.OK(c, "Poll deleted successfully", deleted)
}

// Live handles GET /poll/live/:pollId.
func (h *Handler) Live(c *gin.Context) {
	p, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if h.hub == nil {
		response.ServiceUnavailable(c, "live updates are not available")
		return
	}
	h.hub.ServeWS(c, realtime.Topic(kind, p.ID), middleware.UserID(c))
}

func parseID(c *gin.Context) (string, bool) {
	id := c.Param("pollId")
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(c, "Poll not found")
		return "", false
	}
	return id, true
}

func (h *Handler) load(c *gin.Context) (*models.Poll, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "get poll")
		return nil, false
	}
	return p, true
}

func (h *Handler) loadOwned(c *gin.Context) (*models.Poll, bool) {
	p, ok := h.load(c)
	if !ok {
		return nil, false
	}
	if p.CreatedBy != middleware.UserID(c) {
		response.Forbidden(c, "you do not own this poll")
		return nil, false
	}
	return p, true
}

func (h *Handler) fail(c *gin.Context, err error, action string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(c, verr.Error())
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "Poll not found")
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

func (h *Handler) cleanup(ctx context.Context, ownerID, id string, urls []string) {
	if h.cleaner == nil || len(urls) == 0 {
		return
	}
	if err := h.cleaner.ScheduleImageCleanup(ctx, kind, ownerID, id, urls); err != nil {
		h.logger.Warn("schedule image cleanup", zap.String("poll_id", id), zap.Error(err))
	}
}
