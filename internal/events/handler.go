// Package events serves the event endpoints and persists events in PostgreSQL.
package events

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liewchinchuan/EventStream/internal/middleware"
	"github.com/liewchinchuan/EventStream/internal/moderation"
	"github.com/liewchinchuan/EventStream/internal/session"
	"github.com/liewchinchuan/EventStream/pkg/response"
)

// Handler handles event HTTP endpoints.
type Handler struct {
	coord *session.Coordinator
}

// NewHandler creates an event handler.
func NewHandler(coord *session.Coordinator) *Handler {
	return &Handler{coord: coord}
}

// ListActive handles GET /api/events.
func (h *Handler) ListActive(c *gin.Context) {
	list, err := h.coord.ListActiveEvents(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /api/events/:id, where :id is a numeric id or a slug.
func (h *Handler) Get(c *gin.Context) {
	ident := c.Param("id")
	ctx := c.Request.Context()

	var err error
	var out any
	if id, convErr := strconv.ParseInt(ident, 10, 64); convErr == nil {
		out, err = h.coord.GetEvent(ctx, id)
	} else {
		out, err = h.coord.GetEventBySlug(ctx, ident)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, out)
}

// Create handles POST /api/events (organizers only).
func (h *Handler) Create(c *gin.Context) {
	var req session.NewEvent
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	organizerID, _ := middleware.UserID(c)

	e, err := h.coord.CreateEvent(c.Request.Context(), organizerID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, e)
}

// ListMine handles GET /api/organizer/events.
func (h *Handler) ListMine(c *gin.Context) {
	organizerID, _ := middleware.UserID(c)
	list, err := h.coord.ListOrganizerEvents(c.Request.Context(), organizerID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /api/events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	var req moderation.EventChanges
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	e, err := h.coord.UpdateEvent(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, e)
}

// Presenter handles GET /api/events/:id/presenter.
func (h *Handler) Presenter(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	view, err := h.coord.PresenterView(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, view)
}
