package courses

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estetica-academy/presenciales/internal/middleware"
	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/pkg/response"
)

// Catalog is the read side the handler needs.
type Catalog interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ActiveCourseIDs(ctx context.Context, userID uuid.UUID, now time.Time) ([]string, error)
}

// Handler serves the catalog and the caller's owned courses.
type Handler struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewHandler creates a courses handler.
func NewHandler(catalog Catalog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{catalog: catalog, logger: logger}
}

// Categories handles GET /categories.
func (h *Handler) Categories(c *gin.Context) {
	list, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.logger.Error("list categories failed", zap.Error(err))
		response.Internal(c, "failed to list categories")
		return
	}
	if list == nil {
		list = []models.Category{}
	}
	response.OK(c, list)
}

// MyCourses handles GET /me/courses.
func (h *Handler) MyCourses(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	ids, err := h.catalog.ActiveCourseIDs(c.Request.Context(), id.UserID, time.Now())
	if err != nil {
		h.logger.Error("active courses failed", zap.Error(err), zap.String("user_id", id.UserID.String()))
		response.Internal(c, "failed to load courses")
		return
	}
	response.OK(c, gin.H{"course_ids": ids})
}
