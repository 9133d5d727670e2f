package presenciales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estetica-academy/presenciales/internal/eligibility"
	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/internal/timerules"
)

// Store persists polls, options, votes and export records.
type Store interface {
	CreatePoll(ctx context.Context, p *models.Poll) error
	ListPolls(ctx context.Context) ([]models.Poll, error)
	GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	// ClosePoll moves an open poll to closed. It reports false when the poll was not open.
	ClosePoll(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// UpsertVote records or replaces the user's vote. It returns ErrPollClosed when the
	// poll is no longer open at write time.
	UpsertVote(ctx context.Context, v *models.Vote) error
	ListVotes(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error)
	// GetExport returns nil, nil when the poll has no export yet.
	GetExport(ctx context.Context, pollID uuid.UUID) (*models.PollExport, error)
	SaveExport(ctx context.Context, e models.PollExport) error
}

// CourseOwnership lists the courses a user owns through an active, non-expired subscription.
type CourseOwnership interface {
	ActiveCourseIDs(ctx context.Context, userID uuid.UUID, now time.Time) ([]string, error)
}

// VoteLocker guards concurrent submissions of the same (poll, user).
type VoteLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// ExportQueue schedules a results export once a poll is closed.
type ExportQueue interface {
	EnqueuePollExport(ctx context.Context, pollID uuid.UUID) error
}

// ExportSigner signs download URLs for uploaded exports.
type ExportSigner interface {
	PresignExportURL(ctx context.Context, key string) (string, error)
}

// OptionInput is a candidate slot as submitted by an administrator.
type OptionInput struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// CreateInput is the data needed to create a poll.
type CreateInput struct {
	Title       string
	Description string
	DeadlineAt  string // plain date (end of day) or RFC 3339
	Options     []OptionInput
	Eligibility *models.Eligibility
	CreatedBy   *uuid.UUID
}

// VoteInput identifies the voter and the chosen option.
type VoteInput struct {
	PollID   uuid.UUID
	OptionID uuid.UUID
	UserID   uuid.UUID
	Email    string
	UserName string
}

// Service implements the poll lifecycle and vote recording.
type Service struct {
	store   Store
	courses CourseOwnership
	locker  VoteLocker
	exports ExportQueue
	signer  ExportSigner
	lockTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a presenciales service. locker, exports and signer may be nil.
func NewService(store Store, courses CourseOwnership, locker VoteLocker, exports ExportQueue, signer ExportSigner, lockTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &Service{
		store:   store,
		courses: courses,
		locker:  locker,
		exports: exports,
		signer:  signer,
		lockTTL: lockTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// SanitizeOptions drops options that fail the day/time rules and collapses duplicates.
// Missing durations default to the standard slot length.
func SanitizeOptions(in []OptionInput) []models.PollOption {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.PollOption, 0, len(in))
	for _, o := range in {
		date, start := strings.TrimSpace(o.Date), strings.TrimSpace(o.StartTime)
		if !timerules.ValidOption(date, start) {
			continue
		}
		key := date + " " + start
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		d := o.DurationMinutes
		if d <= 0 {
			d = timerules.DefaultDurationMinutes
		}
		out = append(out, models.PollOption{Date: date, StartTime: start, DurationMinutes: d, Valid: true})
	}
	return out
}

func normalizeEligibility(e *models.Eligibility) (*models.Eligibility, *ValidationError) {
	out := &models.Eligibility{CourseIDs: []string{}, UserOverrides: []models.UserOverride{}}
	if e == nil {
		return out, nil
	}
	verr := &ValidationError{}
	seen := make(map[string]struct{})
	for _, id := range e.CourseIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out.CourseIDs = append(out.CourseIDs, id)
	}
	for i, o := range e.UserOverrides {
		o.UserID = strings.TrimSpace(o.UserID)
		o.Email = strings.ToLower(strings.TrimSpace(o.Email))
		if o.UserID == "" && o.Email == "" {
			verr.add(fmt.Sprintf("eligibility.userOverrides[%d]", i), "userId or email is required")
			continue
		}
		out.UserOverrides = append(out.UserOverrides, o)
	}
	if verr.HasErrors() {
		return nil, verr
	}
	return out, nil
}

// Create validates and persists a new open poll. Invalid options are dropped silently.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Poll, error) {
	verr := &ValidationError{}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		verr.add("title", "title is required")
	}
	deadline, err := timerules.ParseDeadline(in.DeadlineAt)
	if err != nil {
		verr.add("deadline_at", "deadline must be a YYYY-MM-DD date or an RFC 3339 timestamp")
	}
	elig, eligErr := normalizeEligibility(in.Eligibility)
	if eligErr != nil {
		for f, m := range eligErr.FieldErrors {
			verr.add(f, m)
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	options := SanitizeOptions(in.Options)
	if len(options) == 0 {
		return nil, ErrNoValidOptions
	}
	if dropped := len(in.Options) - len(options); dropped > 0 {
		s.logger.Debug("dropped invalid or duplicate options", zap.Int("dropped", dropped))
	}

	p := &models.Poll{
		Title:       title,
		DeadlineAt:  deadline,
		Status:      models.PollStatusOpen,
		Options:     options,
		Eligibility: elig,
		CreatedBy:   in.CreatedBy,
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		p.Description = &d
	}
	if err := s.store.CreatePoll(ctx, p); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	s.logger.Info("presencial poll created", zap.String("poll_id", p.ID.String()), zap.Int("options", len(p.Options)))
	return p, nil
}

// List returns every poll with options and eligibility.
func (s *Service) List(ctx context.Context) ([]models.Poll, error) {
	polls, err := s.store.ListPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	for i := range polls {
		markValidity(&polls[i])
	}
	return polls, nil
}

// Get returns a single poll.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, err := s.store.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	markValidity(p)
	return p, nil
}

func markValidity(p *models.Poll) {
	for i := range p.Options {
		p.Options[i].Valid = timerules.ValidOption(p.Options[i].Date, p.Options[i].StartTime)
	}
}

// Close moves an open poll to closed and schedules its results export.
// There is no way back to open.
func (s *Service) Close(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, err := s.store.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsOpen() {
		return nil, ErrAlreadyClosed
	}
	now := s.now()
	closed, err := s.store.ClosePoll(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("close poll: %w", err)
	}
	if !closed {
		return nil, ErrAlreadyClosed
	}
	p.Status = models.PollStatusClosed
	at := timerules.InBusinessZone(now)
	p.ClosedAt = &at

	if s.exports != nil {
		if err := s.exports.EnqueuePollExport(ctx, id); err != nil {
			s.logger.Warn("enqueue poll export failed", zap.Error(err), zap.String("poll_id", id.String()))
		}
	}
	s.logger.Info("presencial poll closed", zap.String("poll_id", id.String()))
	return p, nil
}

// Votes lists the votes of a poll.
func (s *Service) Votes(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error) {
	if _, err := s.store.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}
	votes, err := s.store.ListVotes(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}

func (s *Service) voter(ctx context.Context, userID uuid.UUID, email string) (eligibility.Voter, error) {
	owned, err := s.courses.ActiveCourseIDs(ctx, userID, s.now())
	if err != nil {
		return eligibility.Voter{}, fmt.Errorf("active courses: %w", err)
	}
	return eligibility.Voter{UserID: userID.String(), Email: email, OwnedCourseIDs: owned}, nil
}

// Vote records the user's single choice in a poll, replacing any earlier choice.
func (s *Service) Vote(ctx context.Context, in VoteInput) (*models.Vote, error) {
	p, err := s.store.GetPoll(ctx, in.PollID)
	if err != nil {
		return nil, err
	}
	if !p.IsOpen() {
		return nil, ErrPollClosed
	}
	opt := p.Option(in.OptionID)
	if opt == nil {
		return nil, ErrOptionNotFound
	}
	if !timerules.ValidOption(opt.Date, opt.StartTime) {
		return nil, ErrOptionInvalid
	}
	v, err := s.voter(ctx, in.UserID, in.Email)
	if err != nil {
		return nil, err
	}
	decision := eligibility.Explain(v, p.Eligibility)
	if !decision.Eligible {
		s.logger.Info("vote rejected: not eligible",
			zap.String("poll_id", p.ID.String()),
			zap.String("user_id", in.UserID.String()),
			zap.Bool("override_block", decision.OverrideBlock),
		)
		return nil, ErrNotEligible
	}

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, p.ID.String()+":"+in.UserID.String(), s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("vote lock: %w", err)
		}
		if !ok {
			return nil, ErrVoteInFlight
		}
		defer release()
	}

	name := strings.TrimSpace(in.UserName)
	if name == "" {
		name = in.Email
	}
	vote := &models.Vote{PollID: p.ID, OptionID: opt.ID, UserID: in.UserID, UserName: name}
	if err := s.store.UpsertVote(ctx, vote); err != nil {
		return nil, err
	}
	s.logger.Info("presencial vote recorded", zap.String("poll_id", p.ID.String()), zap.String("option_id", opt.ID.String()))
	return vote, nil
}

// Access reports whether the user can vote in at least one open poll.
func (s *Service) Access(ctx context.Context, userID uuid.UUID, email string) (bool, error) {
	polls, err := s.store.ListPolls(ctx)
	if err != nil {
		return false, fmt.Errorf("list polls: %w", err)
	}
	v, err := s.voter(ctx, userID, email)
	if err != nil {
		return false, err
	}
	return eligibility.AnyVotable(v, polls), nil
}

// ExportURL returns a signed download URL for the poll's last results export.
func (s *Service) ExportURL(ctx context.Context, pollID uuid.UUID) (string, error) {
	if s.signer == nil {
		return "", ErrExportsDisabled
	}
	exp, err := s.store.GetExport(ctx, pollID)
	if err != nil {
		return "", err
	}
	if exp == nil {
		return "", ErrExportNotReady
	}
	return s.signer.PresignExportURL(ctx, exp.S3Key)
}
