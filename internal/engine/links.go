package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"jobline/internal/domain"
	"jobline/internal/engine/auth"
	"jobline/internal/events"
	"jobline/internal/magiclink"
	"jobline/internal/metrics"
	"jobline/internal/report"
)

var errLinksDisabled = errors.New("magic links not configured")

// IssueAccessLink creates a read-only magic link for a job or property the
// actor owns. Earlier links for the same context stay valid.
func (e Engine) IssueAccessLink(ctx context.Context, actor auth.Actor, kind magiclink.Kind, contextID string) (tok magiclink.Token, err error) {
	defer func() {
		metrics.AccessTokensTotal.WithLabelValues("issue", resultLabel(err)).Inc()
	}()
	if e.Links == nil {
		return magiclink.Token{}, errLinksDisabled
	}
	switch kind {
	case magiclink.KindJob:
		j, err := e.Repo.GetJob(ctx, contextID)
		if err != nil {
			return magiclink.Token{}, fmt.Errorf("job %s: %w", contextID, err)
		}
		if auth.Hidden(actor, j) {
			return magiclink.Token{}, fmt.Errorf("job %s: %w", contextID, ErrNotFound)
		}
		if err := auth.Authorize(actor, auth.ActionIssueLink, j); err != nil {
			return magiclink.Token{}, err
		}
	case magiclink.KindProperty:
		p, err := e.Repo.GetProperty(ctx, contextID)
		if err != nil {
			return magiclink.Token{}, fmt.Errorf("property %s: %w", contextID, err)
		}
		if err := auth.AuthorizeProperty(actor, auth.ActionIssueLink, p); err != nil {
			return magiclink.Token{}, err
		}
	default:
		return magiclink.Token{}, fmt.Errorf("%w: %q", magiclink.ErrInvalidKind, kind)
	}
	tok, err = e.Links.Issue(kind, contextID, e.now())
	if err != nil {
		return magiclink.Token{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return magiclink.Token{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, events.AccessTokenIssued, string(kind), contextID, actor.ID, events.EventPayload{
		"token_id":   tok.ID,
		"expires_at": tok.ExpiresAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return magiclink.Token{}, err
	}
	if err := tx.Commit(); err != nil {
		return magiclink.Token{}, err
	}
	return tok, nil
}

// AccessView is the read-only content behind a magic link. The holder is
// anonymous, so it carries shared records without actor ids or quotes.
type AccessView struct {
	Kind      magiclink.Kind  `json:"kind"`
	ExpiresAt time.Time       `json:"expires_at"`
	Job       *SharedJob      `json:"job,omitempty"`
	Checklist *ChecklistView  `json:"checklist,omitempty"`
	Property  *SharedProperty `json:"property,omitempty"`
	Jobs      []SharedJob     `json:"jobs,omitempty"`
	Report    *report.Report  `json:"report,omitempty"`
}

// SharedJob is a job as a link holder sees it.
type SharedJob struct {
	ID             string             `json:"id"`
	PropertyID     string             `json:"property_id"`
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	Address        string             `json:"address,omitempty"`
	BeforeImages   []string           `json:"before_images,omitempty"`
	AfterImages    []string           `json:"after_images,omitempty"`
	RiskLevel      domain.RiskLevel   `json:"risk_level"`
	TechnicalGrade int                `json:"technical_grade"`
	ValueEffect    domain.ValueEffect `json:"value_effect"`
	CostEstimate   float64            `json:"cost_estimate"`
	Status         domain.Status      `json:"status"`
	CreatedAt      string             `json:"created_at" format:"date-time"`
	CompletedAt    *string            `json:"completed_at,omitempty" format:"date-time"`
}

func shareJob(j domain.Job) SharedJob {
	return SharedJob{
		ID:             j.ID,
		PropertyID:     j.PropertyID,
		Title:          j.Title,
		Description:    j.Description,
		Address:        j.Address,
		BeforeImages:   j.BeforeImages,
		AfterImages:    j.AfterImages,
		RiskLevel:      j.RiskLevel,
		TechnicalGrade: j.TechnicalGrade,
		ValueEffect:    j.ValueEffect,
		CostEstimate:   j.CostEstimate,
		Status:         j.Status,
		CreatedAt:      j.CreatedAt,
		CompletedAt:    j.CompletedAt,
	}
}

// SharedProperty is a property as a link holder sees it.
type SharedProperty struct {
	ID             string   `json:"id"`
	Address        string   `json:"address"`
	YearBuilt      *int     `json:"year_built,omitempty"`
	FloorArea      *float64 `json:"floor_area,omitempty"`
	Type           string   `json:"type,omitempty"`
	EnergyGrade    string   `json:"energy_grade,omitempty"`
	EstimatedValue *float64 `json:"estimated_value,omitempty"`
}

func shareProperty(p domain.Property) SharedProperty {
	return SharedProperty{
		ID:             p.ID,
		Address:        p.Address,
		YearBuilt:      p.YearBuilt,
		FloorArea:      p.FloorArea,
		Type:           p.Type,
		EnergyGrade:    p.EnergyGrade,
		EstimatedValue: p.EstimatedValue,
	}
}

// ValidateAccessToken checks a token without loading its context.
func (e Engine) ValidateAccessToken(value string) magiclink.Result {
	if e.Links == nil {
		return magiclink.Result{}
	}
	res := e.Links.Validate(value, e.now())
	label := "ok"
	if !res.Valid {
		label = "invalid"
	}
	metrics.AccessTokensTotal.WithLabelValues("validate", label).Inc()
	return res
}

// ResolveAccessLink validates a token and loads the read-only view it grants.
func (e Engine) ResolveAccessLink(ctx context.Context, value string) (AccessView, error) {
	res := e.ValidateAccessToken(value)
	if !res.Valid {
		return AccessView{}, ErrTokenInvalid
	}
	view := AccessView{Kind: res.Kind, ExpiresAt: res.ExpiresAt}
	switch res.Kind {
	case magiclink.KindJob:
		j, err := e.Repo.GetJob(ctx, res.ContextID)
		if err != nil {
			return AccessView{}, fmt.Errorf("job %s: %w", res.ContextID, err)
		}
		items, err := e.Repo.ListChecklist(ctx, j.ID)
		if err != nil {
			return AccessView{}, err
		}
		cl := newChecklistView(j.ID, items)
		shared := shareJob(j)
		view.Job = &shared
		view.Checklist = &cl
	case magiclink.KindProperty:
		p, err := e.Repo.GetProperty(ctx, res.ContextID)
		if err != nil {
			return AccessView{}, fmt.Errorf("property %s: %w", res.ContextID, err)
		}
		jobs, err := e.Repo.ListJobs(ctx, repoCompletedFilter(p.ID))
		if err != nil {
			return AccessView{}, err
		}
		rep := report.Assemble(p.ID, jobs)
		prop := shareProperty(p)
		view.Property = &prop
		view.Jobs = make([]SharedJob, 0, len(jobs))
		for _, j := range jobs {
			view.Jobs = append(view.Jobs, shareJob(j))
		}
		view.Report = &rep
	default:
		return AccessView{}, ErrTokenInvalid
	}
	e.log().Debug("access link resolved", zap.String("kind", string(res.Kind)), zap.String("context_id", res.ContextID))
	return view, nil
}
