package models

import (
	"time"

	"github.com/google/uuid"
)

// PollStatus is the lifecycle state of a presencial poll. It only moves open -> closed.
type PollStatus string

const (
	PollStatusOpen   PollStatus = "open"
	PollStatusClosed PollStatus = "closed"
)

// Poll is a named set of candidate in-person time slots open for voting.
type Poll struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	DeadlineAt  *time.Time   `json:"deadline_at,omitempty"`
	Status      PollStatus   `json:"status"`
	Options     []PollOption `json:"options"`
	Eligibility *Eligibility `json:"eligibility"`
	CreatedBy   *uuid.UUID   `json:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ClosedAt    *time.Time   `json:"closed_at,omitempty"`
}

// IsOpen reports whether the poll accepts votes.
func (p *Poll) IsOpen() bool { return p != nil && p.Status == PollStatusOpen }

// Option returns the option with the given id, or nil.
func (p *Poll) Option(id uuid.UUID) *PollOption {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}

// PollOption is one candidate date/time slot. Date is YYYY-MM-DD, StartTime is HH:MM.
type PollOption struct {
	ID              uuid.UUID `json:"id"`
	PollID          uuid.UUID `json:"poll_id"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Valid           bool      `json:"valid"`
}

// Eligibility decides who may vote: owners of any listed course, or users with an allow override.
type Eligibility struct {
	CourseIDs     []string       `json:"courseIds"`
	UserOverrides []UserOverride `json:"userOverrides"`
}

// UserOverride is an explicit allow/block entry identified by user id and/or email.
type UserOverride struct {
	UserID  string `json:"userId,omitempty"`
	Email   string `json:"email,omitempty"`
	Allowed bool   `json:"allowed"`
}

// Vote is a user's single choice within a poll.
type Vote struct {
	PollID    uuid.UUID `json:"poll_id"`
	OptionID  uuid.UUID `json:"option_id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

// PollExport records the last uploaded results export of a poll.
type PollExport struct {
	PollID     uuid.UUID `json:"poll_id"`
	S3Key      string    `json:"s3_key"`
	ExportedAt time.Time `json:"exported_at"`
}
