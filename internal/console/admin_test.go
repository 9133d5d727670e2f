package console

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/pkg/apiclient"
)

type adminAPIStub struct {
	mu      sync.Mutex
	created []apiclient.CreatePollRequest
	queries []string
	gate    chan struct{}
	entered chan struct{}
}

func (s *adminAPIStub) Categories(ctx context.Context) ([]models.Category, error) {
	return []models.Category{{ID: uuid.New(), Name: "Faciales"}}, nil
}

func (s *adminAPIStub) SearchUsers(ctx context.Context, query string) ([]models.UserPublic, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.gate != nil && query == "an" {
		close(s.entered)
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []models.UserPublic{{ID: uuid.New(), Email: query + "@example.com"}}, nil
}

func (s *adminAPIStub) ClosePoll(ctx context.Context, pollID uuid.UUID) (*apiclient.CloseResult, error) {
	return &apiclient.CloseResult{ID: pollID, Status: models.PollStatusClosed}, nil
}

func (s *adminAPIStub) CreatePoll(ctx context.Context, req apiclient.CreatePollRequest) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, req)
	return &models.Poll{ID: uuid.New(), Title: req.Title, Status: models.PollStatusOpen}, nil
}

func TestOptionWarning(t *testing.T) {
	assert.Empty(t, OptionDraft{Date: "2025-01-07", StartTime: "17:00"}.Warning())
	assert.Contains(t, OptionDraft{Date: "2025-01-06", StartTime: "10:00"}.Warning(), "Tuesday to Saturday")
	assert.Contains(t, OptionDraft{Date: "2025-01-07", StartTime: "17:30"}.Warning(), "10:00 to 17:00")
	assert.Equal(t, "invalid date", OptionDraft{Date: "07/01/2025", StartTime: "10:00"}.Warning())
}

func TestDraftSteps(t *testing.T) {
	var d Draft
	assert.ErrorIs(t, d.Next(), ErrTitleRequired)
	d.Details = Details{Title: "Taller", Deadline: "mañana"}
	assert.ErrorIs(t, d.Next(), ErrBadDeadline)
	d.Details.Deadline = "2025-01-05"
	require.NoError(t, d.Next())
	assert.Equal(t, StepOptions, d.Step())

	d.Options = []OptionDraft{{Date: "2025-01-06", StartTime: "10:00"}}
	assert.ErrorIs(t, d.Next(), ErrNoValidOptions)
	d.Options = append(d.Options, OptionDraft{Date: "2025-01-07", StartTime: "10:00"})
	require.NoError(t, d.Next())

	d.Eligibility.Overrides = []models.UserOverride{{Allowed: true}}
	assert.ErrorIs(t, d.Next(), ErrOverrideMissing)
	d.Eligibility.Overrides = nil
	require.NoError(t, d.Next())
	assert.Equal(t, StepReview, d.Step())
	d.Back()
	assert.Equal(t, StepEligibility, d.Step())
}

func TestDraftBuildSanitizes(t *testing.T) {
	d := Draft{
		Details: Details{Title: "  Taller  "},
		Options: []OptionDraft{
			{Date: "2025-01-06", StartTime: "10:00"},
			{Date: "2025-01-07", StartTime: "10:00"},
			{Date: "2025-01-07", StartTime: "10:00"},
			{Date: "2025-01-11", StartTime: "16:30", DurationMinutes: 90},
		},
	}
	user := models.UserPublic{ID: uuid.New(), Email: "ana@example.com"}
	d.Eligibility.ToggleCourse("c1")
	d.Eligibility.ToggleCourse("c2")
	d.Eligibility.ToggleCourse("c1")
	d.Eligibility.SetOverride(user, true)
	d.Eligibility.SetOverride(user, false)

	req, err := d.Build()
	require.NoError(t, err)
	assert.Equal(t, "Taller", req.Title)
	require.Len(t, req.Options, 2)
	assert.Equal(t, 120, req.Options[0].DurationMinutes)
	assert.Equal(t, 90, req.Options[1].DurationMinutes)
	assert.Equal(t, []string{"c2"}, req.Eligibility.CourseIDs)
	require.Len(t, req.Eligibility.UserOverrides, 1)
	assert.False(t, req.Eligibility.UserOverrides[0].Allowed)

	d.Options = d.Options[:1]
	_, err = d.Build()
	assert.ErrorIs(t, err, ErrNoValidOptions)
}

func TestAdminSubmitAndClose(t *testing.T) {
	api := &adminAPIStub{}
	a := NewAdmin(api, nil)
	d := &Draft{Details: Details{Title: "Taller"}, Options: []OptionDraft{{Date: "2025-01-07", StartTime: "10:00"}}}
	p, err := a.Submit(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "Taller", p.Title)
	require.Len(t, api.created, 1)

	_, err = a.Submit(context.Background(), &Draft{Details: Details{Title: "x"}})
	assert.ErrorIs(t, err, ErrNoValidOptions)
	assert.Len(t, api.created, 1)

	id := uuid.New()
	res, err := a.ClosePoll(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.PollStatusClosed, res.Status)
}

func TestSearchUsersLastRequestWins(t *testing.T) {
	api := &adminAPIStub{gate: make(chan struct{}), entered: make(chan struct{})}
	a := NewAdmin(api, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := a.SearchUsers(context.Background(), "an")
		errc <- err
	}()
	<-api.entered
	users, err := a.SearchUsers(context.Background(), "ana")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ana@example.com", users[0].Email)
	assert.ErrorIs(t, <-errc, ErrSuperseded)

	users, err = a.SearchUsers(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, []string{"an", "ana"}, api.queries)
}

func TestLoadCategories(t *testing.T) {
	cats, err := NewAdmin(&adminAPIStub{}, nil).LoadCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Faciales", cats[0].Name)
}

func TestDraftBuildSendsDeadlineWithOffset(t *testing.T) {
	d := Draft{
		Details: Details{Title: "Taller", Deadline: "2025-03-04"},
		Options: []OptionDraft{{Date: "2025-01-07", StartTime: "10:00"}},
	}
	req, err := d.Build()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04T23:59:59-03:00", req.DeadlineAt)

	d.Details.Deadline = "2025-03-04T12:00:00Z"
	req, err = d.Build()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04T09:00:00-03:00", req.DeadlineAt)

	d.Details.Deadline = ""
	req, err = d.Build()
	require.NoError(t, err)
	assert.Empty(t, req.DeadlineAt)
}
