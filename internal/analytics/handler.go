// Package analytics serves per-event engagement summaries.
package analytics

import (
	"github.com/gin-gonic/gin"

	"github.com/liewchinchuan/EventStream/internal/session"
	"github.com/liewchinchuan/EventStream/pkg/response"
)

// Handler handles GET /api/events/:id/stats.
type Handler struct {
	coord *session.Coordinator
}

// NewHandler creates an analytics handler.
func NewHandler(coord *session.Coordinator) *Handler {
	return &Handler{coord: coord}
}

// Stats returns participant, question and poll counts plus the live audience.
func (h *Handler) Stats(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	stats, err := h.coord.EventStats(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, stats)
}
