package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/estetica-academy/presenciales/internal/models"
)

func TestResolveCourseOwnership(t *testing.T) {
	e := &models.Eligibility{CourseIDs: []string{"A"}}

	assert.True(t, Resolve(Voter{UserID: "u1", OwnedCourseIDs: []string{"A"}}, e))
	assert.False(t, Resolve(Voter{UserID: "u2", OwnedCourseIDs: []string{"B"}}, e))
	assert.False(t, Resolve(Voter{UserID: "u3"}, e))
}

func TestResolveOverrideByEmail(t *testing.T) {
	e := &models.Eligibility{
		UserOverrides: []models.UserOverride{{Email: "x@y.com", Allowed: true}},
	}
	assert.True(t, Resolve(Voter{UserID: "u1", Email: "x@y.com"}, e))
	assert.True(t, Resolve(Voter{UserID: "u1", Email: "  X@Y.COM "}, e))
	assert.False(t, Resolve(Voter{UserID: "u1", Email: "other@y.com"}, e))
}

func TestResolveOverrideByUserID(t *testing.T) {
	e := &models.Eligibility{
		UserOverrides: []models.UserOverride{{UserID: "u9", Allowed: true}},
	}
	assert.True(t, Resolve(Voter{UserID: "u9"}, e))
	assert.False(t, Resolve(Voter{UserID: "u8"}, e))
	// empty ids never match each other
	assert.False(t, Resolve(Voter{}, &models.Eligibility{
		UserOverrides: []models.UserOverride{{Allowed: true}},
	}))
}

func TestResolveNilEligibilityFailsClosed(t *testing.T) {
	assert.False(t, Resolve(Voter{UserID: "u1", Email: "a@b.c", OwnedCourseIDs: []string{"A"}}, nil))
	assert.Equal(t, Decision{}, Explain(Voter{UserID: "u1"}, nil))
}

func TestBlockOverrideDoesNotRemoveCourseAccess(t *testing.T) {
	e := &models.Eligibility{
		CourseIDs:     []string{"A"},
		UserOverrides: []models.UserOverride{{Email: "x@y.com", Allowed: false}},
	}
	v := Voter{Email: "x@y.com", OwnedCourseIDs: []string{"A"}}
	d := Explain(v, e)
	assert.True(t, d.Eligible)
	assert.True(t, d.CourseAccess)
	assert.True(t, d.OverrideBlock)
	assert.False(t, d.OverrideAllow)

	// without courses the block leaves the user out
	assert.False(t, Resolve(Voter{Email: "x@y.com"}, e))
}

func TestAnyVotable(t *testing.T) {
	v := Voter{UserID: "u1", OwnedCourseIDs: []string{"A"}}
	closed := models.Poll{Status: models.PollStatusClosed, Eligibility: &models.Eligibility{CourseIDs: []string{"A"}}}
	other := models.Poll{Status: models.PollStatusOpen, Eligibility: &models.Eligibility{CourseIDs: []string{"B"}}}
	missing := models.Poll{Status: models.PollStatusOpen}
	open := models.Poll{Status: models.PollStatusOpen, Eligibility: &models.Eligibility{CourseIDs: []string{"A"}}}

	assert.False(t, AnyVotable(v, nil))
	assert.False(t, AnyVotable(v, []models.Poll{closed, other, missing}))
	assert.True(t, AnyVotable(v, []models.Poll{closed, other, open}))
}
