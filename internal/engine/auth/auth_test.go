package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"jobline/internal/domain"
)

func strp(s string) *string { return &s }

func job(status domain.Status, owner, pro string) domain.Job {
	j := domain.Job{ID: "j1", Status: status, UserID: strp(owner)}
	if pro != "" {
		j.ProfessionalID = strp(pro)
	}
	return j
}

var (
	owner = Actor{ID: "u1", Role: RoleOwner}
	other = Actor{ID: "u2", Role: RoleOwner}
	pro   = Actor{ID: "p1", Role: RoleProfessional}
	pro2  = Actor{ID: "p2", Role: RoleProfessional}
	admin = Actor{ID: "a1", Role: RoleAdmin}
	none  = Actor{ID: "x", Role: RoleNone}
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleOwner, ParseRole("Owner"))
	assert.Equal(t, RoleProfessional, ParseRole(" professional "))
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleNone, ParseRole("superuser"))
	assert.Equal(t, RoleNone, ParseRole(""))
}

func TestCanViewRecommendedHiddenFromProfessional(t *testing.T) {
	j := job(domain.StatusRecommended, "u1", "")
	assert.True(t, CanView(owner, j))
	assert.False(t, CanView(pro, j))
	assert.False(t, CanView(other, j))
	assert.True(t, CanView(admin, j))
	assert.False(t, CanView(none, j))
}

func TestHiddenOnlyRecommendedForProfessionals(t *testing.T) {
	assert.True(t, Hidden(pro, job(domain.StatusRecommended, "u1", "")))
	assert.False(t, Hidden(owner, job(domain.StatusRecommended, "u1", "")))
	assert.False(t, Hidden(admin, job(domain.StatusRecommended, "u1", "")))
	assert.False(t, Hidden(pro, job(domain.StatusSent, "u1", "")))
	// out of scope but known: still Forbidden territory
	assert.False(t, Hidden(pro2, job(domain.StatusAccepted, "u1", "p1")))
}

func TestCanViewProfessionalScope(t *testing.T) {
	assert.True(t, CanView(pro, job(domain.StatusSent, "u1", "")))
	assert.True(t, CanView(pro2, job(domain.StatusSent, "u1", "")))
	assert.False(t, CanView(pro, job(domain.StatusQuoted, "u1", "p1")))
	assert.True(t, CanView(pro, job(domain.StatusAccepted, "u1", "p1")))
	assert.False(t, CanView(pro2, job(domain.StatusAccepted, "u1", "p1")))
	assert.True(t, CanView(pro, job(domain.StatusInProgress, "u1", "p1")))
	assert.False(t, CanView(pro, job(domain.StatusCompleted, "u1", "p1")))
}

func TestOwnerSeesAllStatuses(t *testing.T) {
	for _, s := range domain.Statuses {
		assert.True(t, CanView(owner, job(s, "u1", "p1")), s)
	}
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name   string
		actor  Actor
		action Action
		job    domain.Job
		ok     bool
	}{
		{"owner sends own job", owner, ActionSend, job(domain.StatusRecommended, "u1", ""), true},
		{"other owner cannot send", other, ActionSend, job(domain.StatusRecommended, "u1", ""), false},
		{"pro cannot send", pro, ActionSend, job(domain.StatusRecommended, "u1", ""), false},
		{"pro quotes", pro, ActionQuote, job(domain.StatusSent, "u1", ""), true},
		{"owner cannot quote", owner, ActionQuote, job(domain.StatusSent, "u1", ""), false},
		{"pro accepts lead", pro, ActionAccept, job(domain.StatusSent, "u1", ""), true},
		{"owner cannot accept lead", owner, ActionAccept, job(domain.StatusSent, "u1", ""), false},
		{"owner accepts quote", owner, ActionAccept, job(domain.StatusQuoted, "u1", "p1"), true},
		{"pro cannot accept quote", pro, ActionAccept, job(domain.StatusQuoted, "u1", "p1"), false},
		{"assigned pro begins", pro, ActionBegin, job(domain.StatusAccepted, "u1", "p1"), true},
		{"other pro cannot begin", pro2, ActionBegin, job(domain.StatusAccepted, "u1", "p1"), false},
		{"owner cannot complete", owner, ActionComplete, job(domain.StatusInProgress, "u1", "p1"), false},
		{"assigned pro toggles", pro, ActionToggle, job(domain.StatusCompleted, "u1", "p1"), true},
		{"admin is read only", admin, ActionSend, job(domain.StatusRecommended, "u1", ""), false},
		{"none is denied", none, ActionQuote, job(domain.StatusSent, "u1", ""), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.actor, tc.action, tc.job)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var fe ForbiddenError
			assert.True(t, errors.As(err, &fe), "want ForbiddenError, got %v", err)
		})
	}
}

func TestAuthorizeProperty(t *testing.T) {
	p := domain.Property{ID: "prop", OwnerID: "u1"}
	assert.NoError(t, AuthorizeProperty(owner, ActionRecommend, p))
	assert.NoError(t, AuthorizeProperty(owner, ActionIssueLink, p))
	assert.Error(t, AuthorizeProperty(other, ActionRecommend, p))
	assert.Error(t, AuthorizeProperty(pro, ActionIssueLink, p))
	assert.Error(t, AuthorizeProperty(admin, ActionExport, p))
	assert.True(t, CanViewProperty(admin, p))
	assert.False(t, CanViewProperty(pro, p))
	assert.NoError(t, CanCreateProperty(owner, "u1"))
	assert.Error(t, CanCreateProperty(owner, "u2"))
}
