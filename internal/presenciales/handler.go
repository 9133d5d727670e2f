package presenciales

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estetica-academy/presenciales/internal/middleware"
	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/internal/timerules"
	"github.com/estetica-academy/presenciales/pkg/response"
)

// CreateRequest is the body for POST /presenciales/polls.
type CreateRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	DeadlineAt  string              `json:"deadline_at"`
	Options     []OptionInput       `json:"options"`
	Eligibility *models.Eligibility `json:"eligibility"`
}

// VoteRequest is the body for POST /presenciales/polls/:id/vote.
type VoteRequest struct {
	OptionID string `json:"optionId" binding:"required"`
}

// Handler handles presenciales HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a presenciales handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

// Register mounts the routes on an authenticated group. adminOnly guards the back office routes.
func (h *Handler) Register(g *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	g.GET("/presenciales/polls", h.List)
	g.POST("/presenciales/polls", adminOnly, h.Create)
	g.POST("/presenciales/polls/:id/close", adminOnly, h.Close)
	g.GET("/presenciales/polls/:id/votes", h.Votes)
	g.POST("/presenciales/polls/:id/vote", h.Vote)
	g.GET("/presenciales/polls/:id/export", adminOnly, h.Export)
	g.GET("/presenciales/access", h.Access)
	g.GET("/presenciales/slots", h.Slots)
}

// writeError maps service errors onto the response envelope.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.UnprocessableEntity(c, verr.Error(), verr.FieldErrors)
	case errors.Is(err, ErrNoValidOptions):
		response.UnprocessableEntity(c, ErrNoValidOptions.Error(), map[string]string{"options": "at least one option on Tuesday-Saturday between 10:00 and 17:00 is required"})
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOptionNotFound), errors.Is(err, ErrExportNotReady):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrOptionInvalid):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrPollClosed), errors.Is(err, ErrAlreadyClosed), errors.Is(err, ErrVoteInFlight):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNotEligible):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrExportsDisabled):
		response.ServiceUnavailable(c, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, fallback)
	}
}

func pollID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return uuid.Nil, false
	}
	return id, true
}

func identity(c *gin.Context) (middleware.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
	}
	return id, ok
}

// List handles GET /presenciales/polls.
func (h *Handler) List(c *gin.Context) {
	polls, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to list polls")
		return
	}
	response.OK(c, polls)
}

// Create handles POST /presenciales/polls (admin).
func (h *Handler) Create(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	createdBy := user.UserID
	p, err := h.svc.Create(c.Request.Context(), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		DeadlineAt:  req.DeadlineAt,
		Options:     req.Options,
		Eligibility: req.Eligibility,
		CreatedBy:   &createdBy,
	})
	if err != nil {
		h.writeError(c, err, "failed to create poll")
		return
	}
	response.Created(c, p)
}

// Close handles POST /presenciales/polls/:id/close (admin).
func (h *Handler) Close(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	p, err := h.svc.Close(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to close poll")
		return
	}
	response.OK(c, gin.H{"id": p.ID, "status": p.Status, "closed_at": p.ClosedAt})
}

// Votes handles GET /presenciales/polls/:id/votes.
func (h *Handler) Votes(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	votes, err := h.svc.Votes(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to list votes")
		return
	}
	response.OK(c, votes)
}

// Vote handles POST /presenciales/polls/:id/vote.
func (h *Handler) Vote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	user, ok := identity(c)
	if !ok {
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: optionId is required")
		return
	}
	optionID, err := uuid.Parse(req.OptionID)
	if err != nil {
		response.BadRequest(c, "invalid option id")
		return
	}
	vote, err := h.svc.Vote(c.Request.Context(), VoteInput{
		PollID:   id,
		OptionID: optionID,
		UserID:   user.UserID,
		Email:    user.Email,
		UserName: user.FullName,
	})
	if err != nil {
		h.writeError(c, err, "failed to record vote")
		return
	}
	response.OK(c, vote)
}

// Access handles GET /presenciales/access.
func (h *Handler) Access(c *gin.Context) {
	user, ok := identity(c)
	if !ok {
		return
	}
	has, err := h.svc.Access(c.Request.Context(), user.UserID, user.Email)
	if err != nil {
		h.writeError(c, err, "failed to resolve access")
		return
	}
	response.OK(c, gin.H{"has_access": has})
}

// Slots handles GET /presenciales/slots. The list is informational only.
func (h *Handler) Slots(c *gin.Context) {
	days := make([]string, 0, 5)
	for _, d := range timerules.AllowedWeekdays() {
		days = append(days, d.String())
	}
	now := h.now()
	c.JSON(http.StatusOK, response.Body{Success: true, Data: gin.H{
		"slots":         timerules.GenerateTimeSlots(),
		"window":        gin.H{"start": timerules.WindowStart, "end": timerules.WindowEnd},
		"days":          days,
		"timezone":      timerules.BusinessTimezone,
		"duration":      timerules.DefaultDurationMinutes,
		"now":           timerules.FormatDeadline(now),
		"today_allowed": timerules.AllowedDayTime(now),
	}})
}

// Export handles GET /presenciales/polls/:id/export (admin).
func (h *Handler) Export(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	url, err := h.svc.ExportURL(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to sign export url")
		return
	}
	response.OK(c, gin.H{"url": url})
}
