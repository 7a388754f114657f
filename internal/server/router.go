// Package server assembles the HTTP routes of the Quizzie API.
package server

import (
	"context"
	"time"

	"github.com/Depado/ginprom"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quizzie/backend/internal/analytics"
	"github.com/quizzie/backend/internal/auth"
	"github.com/quizzie/backend/internal/middleware"
	"github.com/quizzie/backend/internal/polls"
	"github.com/quizzie/backend/internal/quizzes"
	"github.com/quizzie/backend/internal/realtime"
	"github.com/quizzie/backend/internal/uploads"
	"github.com/quizzie/backend/pkg/response"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Quizzie Backend Server"

// ImageCleaner schedules removal of option images no aggregate references any more.
type ImageCleaner interface {
	ScheduleImageCleanup(ctx context.Context, kind, ownerID, aggregateID string, urls []string) error
}

// Deps are the collaborators the router wires into handlers. Images and Cleaner may be nil.
type Deps struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	JWT            *auth.JWTService
	Stores         *Stores
	Hub            *realtime.Hub
	Images         uploads.ObjectStore
	Cleaner        ImageCleaner
}

// NewRouter builds the gin engine with every route mounted under /api.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpMetrics := prometheus.NewRegistry()
	prom := ginprom.New(
		ginprom.Registry(httpMetrics),
		ginprom.Namespace("quizzie"),
		ginprom.Subsystem("http"),
		ginprom.Ignore("/metrics", "/api/health"),
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.AllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(prom.Instrument())

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, httpMetrics},
		promhttp.HandlerOpts{},
	)))
	router.GET("/api/health", func(c *gin.Context) {
		response.OK(c, "Server is healthy", gin.H{
			"service": ServiceName,
			"status":  "ACTIVE",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	authHandler := auth.NewHandler(d.Stores.Users, d.JWT, logger)
	quizHandler := quizzes.NewHandler(d.Stores.Quizzes, liveHub(d.Hub), d.Cleaner, logger)
	pollHandler := polls.NewHandler(d.Stores.Polls, liveHub(d.Hub), d.Cleaner, logger)
	uploadHandler := uploads.NewHandler(d.Images, logger)
	analyticsHandler := analytics.NewHandler(d.Stores.Quizzes, d.Stores.Polls, logger)

	requireAuth := middleware.JWT(d.JWT)
	requireQueryAuth := middleware.JWTFromQuery(d.JWT)

	v1 := router.Group("/api/v1")

	user := v1.Group("/user")
	{
		user.POST("/register", authHandler.Register)
		user.POST("/login", authHandler.Login)
		user.GET("/profile", requireAuth, authHandler.Profile)
	}

	quiz := v1.Group("/quiz")
	{
		quiz.GET("/view-quiz/:quizId", quizHandler.View)
		quiz.PUT("/update-quiz-stats/:quizId", quizHandler.UpdateStats)
		quiz.PUT("/impression-increment/:quizId", quizHandler.Impression)
		quiz.GET("/live/:quizId", requireQueryAuth, quizHandler.Live)

		quiz.POST("/create-quiz", requireAuth, quizHandler.Create)
		quiz.GET("/get-quizzes", requireAuth, quizHandler.List)
		quiz.GET("/get-quiz/:quizId", requireAuth, quizHandler.Get)
		quiz.PUT("/update-quiz/:quizId", requireAuth, quizHandler.Update)
		quiz.DELETE("/delete-quiz/:quizId", requireAuth, quizHandler.Delete)
	}

	poll := v1.Group("/poll")
	{
		poll.GET("/view-poll/:pollId", pollHandler.View)
		poll.PUT("/update-poll-stats/:pollId", pollHandler.UpdateStats)
		poll.PUT("/impression-increment/:pollId", pollHandler.Impression)
		poll.GET("/live/:pollId", requireQueryAuth, pollHandler.Live)

		poll.POST("/create-poll", requireAuth, pollHandler.Create)
		poll.GET("/get-all-polls", requireAuth, pollHandler.List)
		poll.GET("/get-polls", requireAuth, pollHandler.List)
		poll.GET("/get-poll/:pollId", requireAuth, pollHandler.Get)
		poll.PUT("/update-poll/:pollId", requireAuth, pollHandler.Update)
		poll.DELETE("/delete-poll/:pollId", requireAuth, pollHandler.Delete)
	}

	upload := v1.Group("/upload", requireAuth)
	{
		upload.POST("/option-image", uploadHandler.UploadOptionImage)
		upload.POST("/option-image-url", uploadHandler.GenerateUploadURL)
	}

	v1.GET("/analytics/dashboard", requireAuth, analyticsHandler.Dashboard)

	return router
}

// liveHub keeps a nil *realtime.Hub from becoming a non-nil interface.
func liveHub(h *realtime.Hub) quizzes.LiveHub {
	if h == nil {
		return nil
	}
	return h
}
