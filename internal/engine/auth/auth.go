package auth

import (
	"fmt"
	"strings"

	"jobline/internal/domain"
)

// Role is the closed set of actor roles.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
	RoleNone         Role = "none"
)

// ParseRole maps a string to a Role; unknown values become RoleNone.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner
	case RoleProfessional:
		return RoleProfessional
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleNone
	}
}

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

type Action string

const (
	ActionView        Action = "job.view"
	ActionRecommend   Action = "job.recommend"
	ActionSend        Action = "job.send"
	ActionQuote       Action = "job.quote"
	ActionRejectQuote Action = "job.reject_quote"
	ActionAccept      Action = "job.accept"
	ActionBegin       Action = "job.begin"
	ActionComplete    Action = "job.complete"
	ActionToggle      Action = "checklist.toggle"
	ActionIssueLink   Action = "access_token.issue"
	ActionExport      Action = "report.export"
	ActionProperty    Action = "property.create"
	ActionPropertyGet Action = "property.view"
)

// ForbiddenError indicates the actor's role does not allow the action.
type ForbiddenError struct {
	Action Action
	Role   Role
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role %s may not perform %s", e.Role, e.Action)
}

func forbid(a Actor, action Action) error {
	return ForbiddenError{Action: action, Role: a.Role}
}

// CanView reports whether a may read job j.
func CanView(a Actor, j domain.Job) bool {
	switch a.Role {
	case RoleOwner:
		return j.OwnedBy(a.ID)
	case RoleProfessional:
		switch j.Status {
		case domain.StatusSent:
			return true
		case domain.StatusAccepted, domain.StatusInProgress:
			return j.AssignedTo(a.ID)
		default:
			return false
		}
	case RoleAdmin:
		return true
	case RoleNone:
		return false
	default:
		return false
	}
}

// Hidden reports whether j does not exist yet as far as a can tell. A
// recommended job is the owner's draft and unknown to professionals.
func Hidden(a Actor, j domain.Job) bool {
	return a.Role == RoleProfessional && j.Status == domain.StatusRecommended
}

// Authorize checks a job-scoped action. It only looks at roles and
// ownership; status preconditions are the caller's concern and are
// checked afterwards.
func Authorize(a Actor, action Action, j domain.Job) error {
	switch a.Role {
	case RoleOwner:
		if !j.OwnedBy(a.ID) {
			return forbid(a, action)
		}
		switch action {
		case ActionSend, ActionRejectQuote, ActionIssueLink, ActionExport:
			return nil
		case ActionAccept:
			// a lead in sent is accepted by a professional
			if j.Status == domain.StatusSent {
				return forbid(a, action)
			}
			return nil
		default:
			return forbid(a, action)
		}
	case RoleProfessional:
		switch action {
		case ActionQuote:
			return nil
		case ActionAccept:
			// a quote is accepted by the owner
			if j.Status == domain.StatusQuoted {
				return forbid(a, action)
			}
			return nil
		case ActionBegin, ActionComplete, ActionToggle:
			if j.ProfessionalID != nil && !j.AssignedTo(a.ID) {
				return forbid(a, action)
			}
			return nil
		default:
			return forbid(a, action)
		}
	case RoleAdmin, RoleNone:
		return forbid(a, action)
	default:
		return forbid(a, action)
	}
}

// AuthorizeProperty checks a property-scoped action.
func AuthorizeProperty(a Actor, action Action, p domain.Property) error {
	switch a.Role {
	case RoleOwner:
		if p.OwnerID != a.ID {
			return forbid(a, action)
		}
		switch action {
		case ActionRecommend, ActionIssueLink, ActionExport:
			return nil
		default:
			return forbid(a, action)
		}
	case RoleProfessional, RoleAdmin, RoleNone:
		return forbid(a, action)
	default:
		return forbid(a, action)
	}
}

// CanViewProperty reports whether a may read property p.
func CanViewProperty(a Actor, p domain.Property) bool {
	switch a.Role {
	case RoleOwner:
		return p.OwnerID == a.ID
	case RoleAdmin:
		return true
	case RoleProfessional, RoleNone:
		return false
	default:
		return false
	}
}

// CanCreateProperty reports whether a may register a property for ownerID.
func CanCreateProperty(a Actor, ownerID string) error {
	if a.Role == RoleOwner && a.ID == ownerID {
		return nil
	}
	return forbid(a, ActionProperty)
}
