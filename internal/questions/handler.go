// Package questions serves the audience Q&A endpoints and persists questions
// and votes in PostgreSQL.
package questions

import (
	"github.com/gin-gonic/gin"

	"github.com/liewchinchuan/EventStream/internal/moderation"
	"github.com/liewchinchuan/EventStream/internal/session"
	"github.com/liewchinchuan/EventStream/pkg/response"
)

// RetractRequest is the body for DELETE /api/questions/:id/vote.
type RetractRequest struct {
	ParticipantID int64 `json:"participantId" form:"participantId" binding:"required,gt=0"`
}

// Handler handles question HTTP endpoints.
type Handler struct {
	coord *session.Coordinator
}

// NewHandler creates a questions handler.
func NewHandler(coord *session.Coordinator) *Handler {
	return &Handler{coord: coord}
}

// ListByEvent handles GET /api/events/:id/questions.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	list, err := h.coord.ListQuestions(c.Request.Context(), eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /api/events/:id/questions (audience asks a question).
func (h *Handler) Create(c *gin.Context) {
	eventID, ok := response.ParamID(c, "id", "event")
	if !ok {
		return
	}
	var req session.NewQuestion
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	q, err := h.coord.SubmitQuestion(c.Request.Context(), eventID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, q)
}

// Update handles PATCH /api/questions/:id (moderators approve, pin, hide, answer, present).
func (h *Handler) Update(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "question")
	if !ok {
		return
	}
	var req moderation.QuestionChanges
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	q, err := h.coord.UpdateQuestion(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, q)
}

// Vote handles POST /api/questions/:id/vote. A second vote by the same
// participant replaces the first.
func (h *Handler) Vote(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "question")
	if !ok {
		return
	}
	var req session.Vote
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	q, err := h.coord.VoteQuestion(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, q)
}

// Retract handles DELETE /api/questions/:id/vote?participantId=N.
func (h *Handler) Retract(c *gin.Context) {
	id, ok := response.ParamID(c, "id", "question")
	if !ok {
		return
	}
	var req RetractRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	q, err := h.coord.RetractVote(c.Request.Context(), id, req.ParticipantID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, q)
}
