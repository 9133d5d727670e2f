package console

import (
	"errors"
	"strings"
	"time"

	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/internal/presenciales"
	"github.com/estetica-academy/presenciales/internal/timerules"
	"github.com/estetica-academy/presenciales/pkg/apiclient"
)

// Step is a page of the poll creation form.
type Step int

const (
	StepDetails Step = iota
	StepOptions
	StepEligibility
	StepReview
)

var (
	// ErrTitleRequired is returned by the details step when the title is blank.
	ErrTitleRequired = errors.New("title is required")
	// ErrBadDeadline is returned when the deadline is neither a date nor an RFC 3339 timestamp.
	ErrBadDeadline = errors.New("deadline must be a YYYY-MM-DD date or an RFC 3339 timestamp")
	// ErrNoValidOptions is returned when no option survives the day and time rules.
	ErrNoValidOptions = errors.New("add at least one option on Tuesday-Saturday between 10:00 and 17:00")
	// ErrOverrideMissing is returned when an override identifies no user.
	ErrOverrideMissing = errors.New("each override needs a user id or an email")
)

// Details is the first step: title, description and optional deadline.
type Details struct {
	Title       string
	Description string
	Deadline    string
}

// Validate checks the details step.
func (d Details) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if _, err := timerules.ParseDeadline(d.Deadline); err != nil {
		return ErrBadDeadline
	}
	return nil
}

// deadline renders the deadline as RFC 3339 in the business timezone. A plain
// date is sent as 23:59:59 of that day. Validate must have passed.
func (d Details) deadline() string {
	t, err := timerules.ParseDeadline(d.Deadline)
	if err != nil || t == nil {
		return ""
	}
	return timerules.FormatDeadline(*t)
}

// OptionDraft is a candidate slot as typed in the form.
type OptionDraft struct {
	Date            string
	StartTime       string
	DurationMinutes int
}

// Warning returns the badge shown next to an option that will be dropped on submit.
// It is empty for a selectable option.
func (o OptionDraft) Warning() string {
	date, start := strings.TrimSpace(o.Date), strings.TrimSpace(o.StartTime)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "invalid date"
	}
	if !timerules.AllowedDay(date, nil) {
		return "day not allowed: Tuesday to Saturday only"
	}
	if !timerules.AllowedTime(start) {
		return "time not allowed: " + timerules.WindowStart + " to " + timerules.WindowEnd
	}
	return ""
}

// EligibilityDraft is the eligibility step.
type EligibilityDraft struct {
	CourseIDs []string
	Overrides []models.UserOverride
}

// ToggleCourse adds the course when absent and removes it otherwise.
func (e *EligibilityDraft) ToggleCourse(id string) {
	for i, c := range e.CourseIDs {
		if c == id {
			e.CourseIDs = append(e.CourseIDs[:i], e.CourseIDs[i+1:]...)
			return
		}
	}
	e.CourseIDs = append(e.CourseIDs, id)
}

// SetOverride allows or blocks a user picked from the search. A user already in
// the list is updated in place.
func (e *EligibilityDraft) SetOverride(u models.UserPublic, allowed bool) {
	o := models.UserOverride{UserID: u.ID.String(), Email: u.Email, Allowed: allowed}
	for i := range e.Overrides {
		if e.Overrides[i].UserID == o.UserID {
			e.Overrides[i] = o
			return
		}
	}
	e.Overrides = append(e.Overrides, o)
}

// RemoveOverride drops the override for userID.
func (e *EligibilityDraft) RemoveOverride(userID string) {
	for i := range e.Overrides {
		if e.Overrides[i].UserID == userID {
			e.Overrides = append(e.Overrides[:i], e.Overrides[i+1:]...)
			return
		}
	}
}

// Validate checks the eligibility step.
func (e EligibilityDraft) Validate() error {
	for _, o := range e.Overrides {
		if strings.TrimSpace(o.UserID) == "" && strings.TrimSpace(o.Email) == "" {
			return ErrOverrideMissing
		}
	}
	return nil
}

// Draft is the multi-step poll creation form.
type Draft struct {
	Details     Details
	Options     []OptionDraft
	Eligibility EligibilityDraft
	step        Step
}

// Step returns the current step.
func (d *Draft) Step() Step { return d.step }

// Next validates the current step and moves forward.
func (d *Draft) Next() error {
	switch d.step {
	case StepDetails:
		if err := d.Details.Validate(); err != nil {
			return err
		}
	case StepOptions:
		if len(d.validOptions()) == 0 {
			return ErrNoValidOptions
		}
	case StepEligibility:
		if err := d.Eligibility.Validate(); err != nil {
			return err
		}
	case StepReview:
		return nil
	}
	d.step++
	return nil
}

// Back moves to the previous step.
func (d *Draft) Back() {
	if d.step > StepDetails {
		d.step--
	}
}

func (d *Draft) validOptions() []models.PollOption {
	in := make([]presenciales.OptionInput, 0, len(d.Options))
	for _, o := range d.Options {
		in = append(in, presenciales.OptionInput{Date: o.Date, StartTime: o.StartTime, DurationMinutes: o.DurationMinutes})
	}
	return presenciales.SanitizeOptions(in)
}

// Build validates every step and returns the create request with invalid and
// duplicate options removed.
func (d *Draft) Build() (apiclient.CreatePollRequest, error) {
	if err := d.Details.Validate(); err != nil {
		return apiclient.CreatePollRequest{}, err
	}
	if err := d.Eligibility.Validate(); err != nil {
		return apiclient.CreatePollRequest{}, err
	}
	opts := d.validOptions()
	if len(opts) == 0 {
		return apiclient.CreatePollRequest{}, ErrNoValidOptions
	}
	req := apiclient.CreatePollRequest{
		Title:       strings.TrimSpace(d.Details.Title),
		Description: strings.TrimSpace(d.Details.Description),
		DeadlineAt:  d.Details.deadline(),
		Options:     make([]apiclient.OptionRequest, 0, len(opts)),
		Eligibility: &models.Eligibility{
			CourseIDs:     append([]string{}, d.Eligibility.CourseIDs...),
			UserOverrides: append([]models.UserOverride{}, d.Eligibility.Overrides...),
		},
	}
	for _, o := range opts {
		req.Options = append(req.Options, apiclient.OptionRequest{Date: o.Date, StartTime: o.StartTime, DurationMinutes: o.DurationMinutes})
	}
	return req, nil
}
