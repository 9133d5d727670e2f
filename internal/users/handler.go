package users

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/pkg/response"
)

// Searcher finds users for the override typeahead.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.UserPublic, error)
}

// Handler handles user HTTP endpoints.
type Handler struct {
	repo   Searcher
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(repo Searcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Search handles GET /users?search=...&limit=... (admin only).
func (h *Handler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.repo.Search(c.Request.Context(), c.Query("search"), ClampLimit(limit))
	if err != nil {
		h.logger.Error("user search failed", zap.Error(err))
		response.Internal(c, "failed to search users")
		return
	}
	response.OK(c, list)
}
