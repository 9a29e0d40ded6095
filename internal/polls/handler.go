// Package polls serves the poll endpoints and persists polls and responses in PostgreSQL.
package polls

import (
	"github.com/gin-gonic/gin"

	"github.com/liewchinchuan/EventStream/internal/moderation"
	"github.com/liewchinchuan/EventStream/internal/session"
	"github.com/liewchinchuan/EventStream/pkg/response"
)

// Handler handles poll HTTP endpoints.
type Handler struct {
	coord *session.Coordinator
}

// NewHandler creates a polls handler.
func NewHandler(coord *session.Coordinator) *Handler {
	return &Handler{coord: coord}
}

// ListByEvent handles GET /api/events/:id/polls.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	list, err := h.coord.ListPolls(c.Request.Context(), eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// Active handles GET /api/events/:id/polls/active. Data is null when no poll is running.
func (h *Handler) Active(c *gin.Context) {
	eventID, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	p, err := h.coord.ActivePoll(c.Request.Context(), eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, p)
}

// Create handles POST /api/events/:id/polls (organizers launch a poll).
func (h *Handler) Create(c *gin.Context) {
	eventID, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	var req session.NewPoll
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	p, err := h.coord.CreatePoll(c.Request.Context(), eventID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, p)
}

// Update handles PATCH /api/polls/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "poll")
	if !ok {
		return
	}
	var req moderation.PollChanges
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	p, err := h.coord.UpdatePoll(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, p)
}

// Respond handles POST /api/polls/:id/responses.
func (h *Handler) Respond(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "poll")
	if !ok {
		return
	}
	var req session.NewPollResponse
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	r, err := h.coord.SubmitPollResponse(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, r)
}

// Results handles GET /api/polls/:id/results.
func (h *Handler) Results(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "poll")
	if !ok {
		return
	}
	results, err := h.coord.PollResults(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, results)
}
