package engine

import (
	"context"
	"fmt"

	"jobline/internal/domain"
	"jobline/internal/engine/auth"
	"jobline/internal/quote"
	"jobline/internal/repo"
)

// JobQuery narrows VisibleJobs.
type JobQuery struct {
	PropertyID string
	Status     domain.Status
	Limit      int
}

// VisibleJobs is the single read path for job lists: every surface that
// lists jobs goes through it so visibility is decided by auth.CanView only.
func (e Engine) VisibleJobs(ctx context.Context, actor auth.Actor, q JobQuery) ([]domain.Job, error) {
	f := repo.JobFilter{PropertyID: q.PropertyID}
	if q.Status != "" {
		if !q.Status.Valid() {
			return nil, fmt.Errorf("invalid status %q", q.Status)
		}
		f.Statuses = []domain.Status{q.Status}
	}
	// narrow the scan per role; CanView below stays authoritative
	switch actor.Role {
	case auth.RoleOwner:
		f.OwnerID = actor.ID
	case auth.RoleProfessional:
		if len(f.Statuses) == 0 {
			f.Statuses = []domain.Status{domain.StatusSent, domain.StatusAccepted, domain.StatusInProgress}
		}
	case auth.RoleAdmin:
	case auth.RoleNone:
		return []domain.Job{}, nil
	default:
		return []domain.Job{}, nil
	}
	jobs, err := e.Repo.ListJobs(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if auth.CanView(actor, j) {
			out = append(out, j)
		}
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// GetJob returns a job if actor may see it.
func (e Engine) GetJob(ctx context.Context, actor auth.Actor, jobID string) (domain.Job, error) {
	j, err := e.Repo.GetJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, fmt.Errorf("job %s: %w", jobID, err)
	}
	if auth.Hidden(actor, j) {
		return domain.Job{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if !auth.CanView(actor, j) {
		return domain.Job{}, auth.ForbiddenError{Action: auth.ActionView, Role: actor.Role}
	}
	return j, nil
}

// QuoteComparison compares a visible job's quoted price with its estimate.
func (e Engine) QuoteComparison(ctx context.Context, actor auth.Actor, jobID string) (quote.Comparison, error) {
	j, err := e.GetJob(ctx, actor, jobID)
	if err != nil {
		return quote.Comparison{}, err
	}
	if j.QuotedPrice == nil {
		return quote.Comparison{}, fmt.Errorf("%w: %s", ErrNoQuote, jobID)
	}
	return quote.Compare(j.CostEstimate, *j.QuotedPrice), nil
}
