package users

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estetica-academy/presenciales/internal/models"
)

const (
	// DefaultSearchLimit is used when the caller does not ask for a size.
	DefaultSearchLimit = 20
	// MaxSearchLimit caps typeahead pages.
	MaxSearchLimit = 50
)

// Repository handles user lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ClampLimit maps a requested page size onto 1..MaxSearchLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Search matches email or full name case-insensitively. An empty query returns the first page.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]models.UserPublic, error) {
	const q = `SELECT id, email, full_name, role, created_at FROM users
		WHERE $1 = '' OR email ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%'
		ORDER BY full_name, email
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, escapeLike(strings.TrimSpace(query)), ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.UserPublic{}
	for rows.Next() {
		var u models.UserPublic
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		list = append(list, u)
	}
	return list, rows.Err()
}
