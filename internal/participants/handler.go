// Package participants serves the audience join and heartbeat endpoints and
// persists participants in PostgreSQL.
package participants

import (
	"github.com/gin-gonic/gin"

	"github.com/liewchinchuan/EventStream/internal/session"
	"github.com/liewchinchuan/EventStream/pkg/response"
)

// Handler handles participant HTTP endpoints.
type Handler struct {
	coord *session.Coordinator
}

// NewHandler creates a participants handler.
func NewHandler(coord *session.Coordinator) *Handler {
	return &Handler{coord: coord}
}

// ListByEvent handles GET /api/events/:id/participants.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	list, err := h.coord.ListParticipants(c.Request.Context(), eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// Join handles POST /api/events/:id/participants.
func (h *Handler) Join(c *gin.Context) {
	eventID, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	var req session.NewParticipant
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}
	}
	p, err := h.coord.JoinEvent(c.Request.Context(), eventID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, p)
}

// Heartbeat handles POST /api/participants/:id/heartbeat.
func (h *Handler) Heartbeat(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "participant")
	if !ok {
		return
	}
	if err := h.coord.RecordActivity(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"id": id})
}
