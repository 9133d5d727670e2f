package eligibility

import (
	"strings"

	"github.com/estetica-academy/presenciales/internal/models"
)

// Voter is the identity the resolver works on. OwnedCourseIDs must only hold
// courses with an active, non-expired subscription.
type Voter struct {
	UserID         string
	Email          string
	OwnedCourseIDs []string
}

// Decision is the breakdown behind a Resolve result.
type Decision struct {
	Eligible      bool `json:"eligible"`
	CourseAccess  bool `json:"course_access"`
	OverrideAllow bool `json:"override_allow"`
	// OverrideBlock is informational: a block never removes course access.
	OverrideBlock bool `json:"override_block"`
}

// Resolve reports whether v may vote under e. A nil eligibility grants nobody.
func Resolve(v Voter, e *models.Eligibility) bool {
	return Explain(v, e).Eligible
}

// Explain computes the same result as Resolve and keeps the partial flags.
func Explain(v Voter, e *models.Eligibility) Decision {
	if e == nil {
		return Decision{}
	}
	var d Decision
	d.CourseAccess = hasCourseAccess(v.OwnedCourseIDs, e.CourseIDs)
	for _, o := range e.UserOverrides {
		if !matches(o, v) {
			continue
		}
		if o.Allowed {
			d.OverrideAllow = true
		} else {
			d.OverrideBlock = true
		}
	}
	d.Eligible = d.CourseAccess || d.OverrideAllow
	return d
}

func hasCourseAccess(owned, required []string) bool {
	if len(owned) == 0 || len(required) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(owned))
	for _, id := range owned {
		set[strings.TrimSpace(id)] = struct{}{}
	}
	for _, id := range required {
		if _, ok := set[strings.TrimSpace(id)]; ok {
			return true
		}
	}
	return false
}

func matches(o models.UserOverride, v Voter) bool {
	if o.UserID != "" && v.UserID != "" && strings.TrimSpace(o.UserID) == strings.TrimSpace(v.UserID) {
		return true
	}
	email := normalizeEmail(o.Email)
	return email != "" && email == normalizeEmail(v.Email)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AnyVotable reports whether some open poll admits v. It gates the whole feature.
func AnyVotable(v Voter, polls []models.Poll) bool {
	for i := range polls {
		if polls[i].IsOpen() && Resolve(v, polls[i].Eligibility) {
			return true
		}
	}
	return false
}
