package console

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/estetica-academy/presenciales/internal/eligibility"
	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/internal/presenciales"
	"github.com/estetica-academy/presenciales/internal/timerules"
)

var (
	// ErrUnknownPoll is returned when the poll is not in the last snapshot.
	ErrUnknownPoll = errors.New("poll not found")
	// ErrPollNotOpen is returned when voting on a closed poll.
	ErrPollNotOpen = errors.New("poll is not open")
	// ErrInvalidOption is returned when the option is missing or breaks the day/time rules.
	ErrInvalidOption = errors.New("option is not selectable")
	// ErrNotEligible is returned when the user fails the poll's eligibility rules.
	ErrNotEligible = errors.New("not eligible to vote in this poll")
	// ErrInFlight is returned while a request for the same poll is still pending.
	ErrInFlight = errors.New("a request for this item is already in progress")
)

// VoterAPI is the part of the REST client the voter console uses.
type VoterAPI interface {
	ListPolls(ctx context.Context) ([]models.Poll, error)
	MyCourses(ctx context.Context) ([]string, error)
	Vote(ctx context.Context, pollID, optionID uuid.UUID) (*models.Vote, error)
	ListVotes(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error)
}

// Snapshot is the voter console state after a refresh. A failed refresh leaves
// Polls empty and sets Err.
type Snapshot struct {
	Polls          []models.Poll
	OwnedCourseIDs []string
	Err            error
	FetchedAt      time.Time
}

// Poll returns the poll with the given id.
func (s Snapshot) Poll(id uuid.UUID) (*models.Poll, bool) {
	for i := range s.Polls {
		if s.Polls[i].ID == id {
			return &s.Polls[i], true
		}
	}
	return nil, false
}

// PollStatus is what the voter sees on a poll card.
type PollStatus struct {
	Open           bool
	Eligible       bool
	DeadlinePassed bool
	Submitting     bool
}

// Voter is the student-facing console.
type Voter struct {
	api      VoterAPI
	userID   uuid.UUID
	email    string
	state    *Store[Snapshot]
	poller   *Poller
	inflight InFlight
	logger   *zap.Logger
	now      func() time.Time
}

// NewVoter creates a voter console for the signed-in user.
func NewVoter(api VoterAPI, userID uuid.UUID, email string, refresh time.Duration, logger *zap.Logger) *Voter {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Voter{
		api:    api,
		userID: userID,
		email:  email,
		state:  NewStore(Snapshot{}),
		logger: logger,
		now:    time.Now,
	}
	v.poller = NewPoller(refresh, func(ctx context.Context) {
		if err := v.Refresh(ctx); err != nil && ctx.Err() == nil {
			v.logger.Warn("refresh failed", zap.Error(err))
		}
	})
	return v
}

// State exposes the snapshot store for rendering.
func (v *Voter) State() *Store[Snapshot] { return v.state }

// Refresh fetches polls and owned courses concurrently and publishes a new snapshot.
func (v *Voter) Refresh(ctx context.Context) error {
	var polls []models.Poll
	var owned []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		polls, err = v.api.ListPolls(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		owned, err = v.api.MyCourses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return err
		}
		v.state.Set(Snapshot{Err: err, FetchedAt: v.now()})
		return err
	}
	v.state.Set(Snapshot{Polls: polls, OwnedCourseIDs: owned, FetchedAt: v.now()})
	return nil
}

// Watch starts periodic refreshes.
func (v *Voter) Watch(ctx context.Context) { v.poller.Start(ctx) }

// Close stops periodic refreshes.
func (v *Voter) Close() { v.poller.Stop() }

func (v *Voter) identity(owned []string) eligibility.Voter {
	return eligibility.Voter{UserID: v.userID.String(), Email: v.email, OwnedCourseIDs: owned}
}

// Status reports the card state of a poll from the last snapshot.
func (v *Voter) Status(pollID uuid.UUID) (PollStatus, bool) {
	snap := v.state.Get()
	p, ok := snap.Poll(pollID)
	if !ok {
		return PollStatus{}, false
	}
	return PollStatus{
		Open:           p.IsOpen(),
		Eligible:       eligibility.Resolve(v.identity(snap.OwnedCourseIDs), p.Eligibility),
		DeadlinePassed: p.DeadlineAt != nil && v.now().After(*p.DeadlineAt),
		Submitting:     v.inflight.Busy(pollID.String()),
	}, true
}

// CanVote reports whether the vote buttons of a poll are enabled.
func (v *Voter) CanVote(pollID uuid.UUID) bool {
	st, ok := v.Status(pollID)
	return ok && st.Open && st.Eligible && !st.Submitting
}

// HasAccess reports whether the voter can vote in at least one open poll.
func (v *Voter) HasAccess() bool {
	snap := v.state.Get()
	return eligibility.AnyVotable(v.identity(snap.OwnedCourseIDs), snap.Polls)
}

// Vote submits a vote after local checks. The snapshot is not touched until the
// server confirms, then it is refetched.
func (v *Voter) Vote(ctx context.Context, pollID, optionID uuid.UUID) (*models.Vote, error) {
	snap := v.state.Get()
	p, ok := snap.Poll(pollID)
	if !ok {
		return nil, ErrUnknownPoll
	}
	if !p.IsOpen() {
		return nil, ErrPollNotOpen
	}
	if opt := p.Option(optionID); opt == nil || !timerules.ValidOption(opt.Date, opt.StartTime) {
		return nil, ErrInvalidOption
	}
	if !eligibility.Resolve(v.identity(snap.OwnedCourseIDs), p.Eligibility) {
		return nil, ErrNotEligible
	}
	release, ok := v.inflight.Acquire(pollID.String())
	if !ok {
		return nil, ErrInFlight
	}
	defer release()

	vote, err := v.api.Vote(ctx, pollID, optionID)
	if err != nil {
		return nil, err
	}
	if err := v.Refresh(ctx); err != nil {
		v.logger.Warn("refresh after vote failed", zap.Error(err))
	}
	return vote, nil
}

// Tallies fetches the votes of a poll and counts them per option.
func (v *Voter) Tallies(ctx context.Context, pollID uuid.UUID) ([]presenciales.OptionResult, error) {
	p, ok := v.state.Get().Poll(pollID)
	if !ok {
		return nil, ErrUnknownPoll
	}
	votes, err := v.api.ListVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return presenciales.Tally(p, votes), nil
}

// WatchVotes polls the tallies of a poll and calls fn with each result.
// The returned function stops the watch.
func (v *Voter) WatchVotes(ctx context.Context, pollID uuid.UUID, interval time.Duration, fn func([]presenciales.OptionResult, error)) (stop func()) {
	p := NewPoller(interval, func(ctx context.Context) {
		res, err := v.Tallies(ctx, pollID)
		if ctx.Err() != nil {
			return
		}
		fn(res, err)
	})
	p.Start(ctx)
	return p.Stop
}
