// Package server assembles the HTTP and WebSocket surface.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liewchinchuan/EventStream/internal/analytics"
	"github.com/liewchinchuan/EventStream/internal/events"
	"github.com/liewchinchuan/EventStream/internal/middleware"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/participants"
	"github.com/liewchinchuan/EventStream/internal/polls"
	"github.com/liewchinchuan/EventStream/internal/questions"
	"github.com/liewchinchuan/EventStream/internal/realtime"
	"github.com/liewchinchuan/EventStream/internal/session"
	"github.com/liewchinchuan/EventStream/pkg/response"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Coordinator *session.Coordinator
	Hub         *realtime.Hub
	Tokens      middleware.TokenValidator
	CORSOrigins string
	Realtime    realtime.Options
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	response.UseJSONFieldNames()

	eventHandler := events.NewHandler(d.Coordinator)
	questionHandler := questions.NewHandler(d.Coordinator)
	pollHandler := polls.NewHandler(d.Coordinator)
	participantHandler := participants.NewHandler(d.Coordinator)
	analyticsHandler := analytics.NewHandler(d.Coordinator)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.CORSOrigins, logger))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// WebSocket (anonymous audience; identity travels in join_event)
	router.GET("/ws", realtime.ServeWs(d.Hub, d.Coordinator, d.Realtime, logger))

	api := router.Group("/api")

	// Public: audience
	api.GET("/events", eventHandler.ListActive)
	api.GET("/events/:id", eventHandler.Get)
	api.GET("/events/:id/presenter", eventHandler.Presenter)
	api.GET("/events/:id/stats", analyticsHandler.Stats)

	api.GET("/events/:id/questions", questionHandler.ListByEvent)
	api.POST("/events/:id/questions", questionHandler.Create)
	api.POST("/questions/:id/vote", questionHandler.Vote)
	api.DELETE("/questions/:id/vote", questionHandler.Retract)

	api.GET("/events/:id/polls", pollHandler.ListByEvent)
	api.GET("/events/:id/polls/active", pollHandler.Active)
	api.POST("/polls/:id/responses", pollHandler.Respond)
	api.GET("/polls/:id/results", pollHandler.Results)

	api.GET("/events/:id/participants", participantHandler.ListByEvent)
	api.POST("/events/:id/participants", participantHandler.Join)
	api.POST("/participants/:id/heartbeat", participantHandler.Heartbeat)

	// Organizer (JWT required)
	org := api.Group("")
	org.Use(middleware.JWT(d.Tokens), middleware.RequireRole(models.OrganizerRoles...))
	{
		org.POST("/events", eventHandler.Create)
		org.GET("/organizer/events", eventHandler.ListMine)
		org.PATCH("/events/:id", eventHandler.Update)

		org.PATCH("/questions/:id", questionHandler.Update)

		org.POST("/events/:id/polls", pollHandler.Create)
		org.PATCH("/polls/:id", pollHandler.Update)
	}

	return router
}
