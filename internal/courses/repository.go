package courses

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estetica-academy/presenciales/internal/models"
)

// Repository reads the course catalog and subscription ownership.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a courses repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListCategories returns categories with their courses, in catalog order.
// Courses without a category are not listed.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	const q = `SELECT c.id, c.name, co.id, co.title
		FROM categories c
		LEFT JOIN courses co ON co.category_id = c.id
		ORDER BY c.position, c.name, co.title`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Category
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			catID       uuid.UUID
			name        string
			courseID    *uuid.UUID
			courseTitle *string
		)
		if err := rows.Scan(&catID, &name, &courseID, &courseTitle); err != nil {
			return nil, err
		}
		i, ok := index[catID]
		if !ok {
			list = append(list, models.Category{ID: catID, Name: name, Courses: []models.Course{}})
			i = len(list) - 1
			index[catID] = i
		}
		if courseID != nil {
			cid := catID
			list[i].Courses = append(list[i].Courses, models.Course{ID: *courseID, CategoryID: &cid, Title: deref(courseTitle)})
		}
	}
	return list, rows.Err()
}

// ActiveCourseIDs returns the courses userID owns through an active subscription that
// has not expired at now.
func (r *Repository) ActiveCourseIDs(ctx context.Context, userID uuid.UUID, now time.Time) ([]string, error) {
	const q = `SELECT DISTINCT course_id::text FROM subscriptions
		WHERE user_id = $1 AND status = 'active' AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY 1`
	rows, err := r.pool.Query(ctx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
