package console

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/pkg/apiclient"
)

// AdminAPI is the part of the REST client the admin console uses.
type AdminAPI interface {
	Categories(ctx context.Context) ([]models.Category, error)
	SearchUsers(ctx context.Context, query string) ([]models.UserPublic, error)
	ClosePoll(ctx context.Context, pollID uuid.UUID) (*apiclient.CloseResult, error)
	CreatePoll(ctx context.Context, req apiclient.CreatePollRequest) (*models.Poll, error)
}

const submitKey = "submit"

// Admin is the back office poll console.
type Admin struct {
	api        AdminAPI
	categories Latest[[]models.Category]
	users      Latest[[]models.UserPublic]
	inflight   InFlight
	logger     *zap.Logger
}

// NewAdmin creates an admin console.
func NewAdmin(api AdminAPI, logger *zap.Logger) *Admin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Admin{api: api, logger: logger}
}

// LoadCategories fetches the catalog. Only the latest call delivers a result;
// older ones return ErrSuperseded.
func (a *Admin) LoadCategories(ctx context.Context) ([]models.Category, error) {
	return a.categories.Load(ctx, a.api.Categories)
}

// SearchUsers runs the override typeahead. A blank query returns no users
// without calling the API.
func (a *Admin) SearchUsers(ctx context.Context, query string) ([]models.UserPublic, error) {
	query = strings.TrimSpace(query)
	return a.users.Load(ctx, func(ctx context.Context) ([]models.UserPublic, error) {
		if query == "" {
			return []models.UserPublic{}, nil
		}
		return a.api.SearchUsers(ctx, query)
	})
}

// ClosePoll closes a poll. Concurrent closes of the same poll are rejected locally.
func (a *Admin) ClosePoll(ctx context.Context, pollID uuid.UUID) (*apiclient.CloseResult, error) {
	release, ok := a.inflight.Acquire(pollID.String())
	if !ok {
		return nil, ErrInFlight
	}
	defer release()
	res, err := a.api.ClosePoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	a.logger.Info("poll closed", zap.String("poll_id", pollID.String()))
	return res, nil
}

// Submit builds the draft and creates the poll.
func (a *Admin) Submit(ctx context.Context, d *Draft) (*models.Poll, error) {
	req, err := d.Build()
	if err != nil {
		return nil, err
	}
	release, ok := a.inflight.Acquire(submitKey)
	if !ok {
		return nil, ErrInFlight
	}
	defer release()
	p, err := a.api.CreatePoll(ctx, req)
	if err != nil {
		return nil, err
	}
	a.logger.Info("poll created", zap.String("poll_id", p.ID.String()), zap.Int("options", len(p.Options)))
	return p, nil
}
