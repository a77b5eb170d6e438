package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobline/internal/checklist"
	"jobline/internal/domain"
	"jobline/internal/engine/auth"
	"jobline/internal/events"
	"jobline/internal/metrics"
	"jobline/internal/quote"
	"jobline/internal/repo"
)

// RecommendOptions are parameters for creating a recommended job.
type RecommendOptions struct {
	PropertyID       string
	Title            string
	Description      string
	Address          string
	BeforeImages     []string
	RiskLevel        domain.RiskLevel
	TechnicalGrade   int
	ValueEffect      domain.ValueEffect
	Driver           domain.Driver
	CostEstimate     float64
	CostMin          *float64
	CostMax          *float64
	ROIFactor        *float64
	SubsidyAmount    *float64
	PriorityScore    *int
	PredictedFailure string
	Horizon          string
	Initiator        domain.Initiator
}

func (o *RecommendOptions) normalize() error {
	o.Title = strings.TrimSpace(o.Title)
	if o.Title == "" {
		return errors.New("title is required")
	}
	if o.PropertyID == "" {
		return errors.New("property is required")
	}
	if o.RiskLevel == "" {
		o.RiskLevel = domain.RiskLow
	}
	if !o.RiskLevel.Valid() {
		return fmt.Errorf("invalid risk level %q", o.RiskLevel)
	}
	if o.TechnicalGrade < 0 || o.TechnicalGrade > domain.MaxTechnicalGrade {
		return fmt.Errorf("invalid technical grade %d", o.TechnicalGrade)
	}
	switch o.ValueEffect {
	case "":
		o.ValueEffect = domain.EffectProtect
	case domain.EffectProtect, domain.EffectIncrease:
	default:
		return fmt.Errorf("invalid value effect %q", o.ValueEffect)
	}
	switch o.Driver {
	case "":
		o.Driver = domain.DriverMaintenance
	case domain.DriverMaintenance, domain.DriverValue:
	default:
		return fmt.Errorf("invalid driver %q", o.Driver)
	}
	switch o.Initiator {
	case "":
		o.Initiator = domain.InitiatorCustomer
	case domain.InitiatorCustomer, domain.InitiatorProfessional, domain.InitiatorSystem:
	default:
		return fmt.Errorf("invalid initiator %q", o.Initiator)
	}
	if o.CostEstimate < 0 || math.IsNaN(o.CostEstimate) || math.IsInf(o.CostEstimate, 0) {
		return errors.New("cost estimate must be >= 0")
	}
	if o.CostMin != nil && o.CostMax != nil && *o.CostMin > *o.CostMax {
		return errors.New("cost min must not exceed cost max")
	}
	if (o.CostMin != nil && *o.CostMin < 0) || (o.CostMax != nil && *o.CostMax < 0) {
		return errors.New("cost range must be >= 0")
	}
	if o.PriorityScore != nil && (*o.PriorityScore < 0 || *o.PriorityScore > 100) {
		return fmt.Errorf("invalid priority score %d", *o.PriorityScore)
	}
	return nil
}

// Recommend creates a job in recommended for one of the actor's properties.
func (e Engine) Recommend(ctx context.Context, actor auth.Actor, opts RecommendOptions) (domain.Job, error) {
	if err := opts.normalize(); err != nil {
		return domain.Job{}, err
	}
	p, err := e.Repo.GetProperty(ctx, opts.PropertyID)
	if err != nil {
		return domain.Job{}, fmt.Errorf("property %s: %w", opts.PropertyID, err)
	}
	if err := auth.AuthorizeProperty(actor, auth.ActionRecommend, p); err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(domain.StatusRecommended), resultLabel(err)).Inc()
		return domain.Job{}, err
	}
	now := e.timestamp()
	owner := p.OwnerID
	j := domain.Job{
		ID:             uuid.NewString(),
		PropertyID:     p.ID,
		UserID:         &owner,
		Title:          opts.Title,
		Description:    opts.Description,
		Address:        opts.Address,
		BeforeImages:   opts.BeforeImages,
		RiskLevel:      opts.RiskLevel,
		TechnicalGrade: opts.TechnicalGrade,
		ValueEffect:    opts.ValueEffect,
		Driver:         opts.Driver,
		CostEstimate:   opts.CostEstimate,
		CostMin:        opts.CostMin,
		CostMax:        opts.CostMax,
		ROIFactor:      opts.ROIFactor,
		SubsidyAmount:  opts.SubsidyAmount,
		PriorityScore:  opts.PriorityScore,
		Horizon:        opts.Horizon,
		Status:         domain.StatusRecommended,
		Initiator:      opts.Initiator,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if j.Address == "" {
		j.Address = p.Address
	}
	if opts.PredictedFailure != "" {
		j.PredictedFailure = &opts.PredictedFailure
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Job{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertJob(ctx, tx, j); err != nil {
		return domain.Job{}, fmt.Errorf("insert job: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.JobRecommended, "job", j.ID, actor.ID, events.EventPayload{
		"property_id": j.PropertyID,
		"risk_level":  j.RiskLevel,
		"initiator":   j.Initiator,
	}); err != nil {
		return domain.Job{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Job{}, err
	}
	metrics.TransitionsTotal.WithLabelValues(string(domain.StatusRecommended), "ok").Inc()
	e.log().Info("job recommended", zap.String("job_id", j.ID), zap.String("property_id", j.PropertyID), zap.String("actor_id", actor.ID))
	return j, nil
}

// Send publishes a recommended job to professionals.
func (e Engine) Send(ctx context.Context, actor auth.Actor, jobID string) (domain.Job, error) {
	return e.transition(ctx, actor, jobID, transition{
		action: auth.ActionSend,
		to:     domain.StatusSent,
		from:   domain.StatusRecommended,
		event:  events.JobSent,
	})
}

// Quote records a professional's price on a sent job.
func (e Engine) Quote(ctx context.Context, actor auth.Actor, jobID string, price float64) (domain.Job, error) {
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return domain.Job{}, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	return e.transition(ctx, actor, jobID, transition{
		action: auth.ActionQuote,
		to:     domain.StatusQuoted,
		event:  events.JobQuoted,
		prepare: func(_ context.Context, _ *sql.Tx, j domain.Job) (repo.JobPatch, events.EventPayload, error) {
			cmp := quote.Compare(j.CostEstimate, price)
			pro := actor.ID
			return repo.JobPatch{QuotedPrice: &price, ProfessionalID: &pro}, events.EventPayload{
				"price":        price,
				"estimate":     j.CostEstimate,
				"is_expensive": cmp.IsExpensive,
			}, nil
		},
	})
}

// RejectQuote returns a quoted job to sent, dropping the quote.
func (e Engine) RejectQuote(ctx context.Context, actor auth.Actor, jobID string) (domain.Job, error) {
	return e.transition(ctx, actor, jobID, transition{
		action: auth.ActionRejectQuote,
		to:     domain.StatusSent,
		from:   domain.StatusQuoted,
		event:  events.JobQuoteRejected,
		prepare: func(_ context.Context, _ *sql.Tx, j domain.Job) (repo.JobPatch, events.EventPayload, error) {
			payload := events.EventPayload{}
			if j.ProfessionalID != nil {
				payload["professional_id"] = *j.ProfessionalID
			}
			if j.QuotedPrice != nil {
				payload["price"] = *j.QuotedPrice
			}
			return repo.JobPatch{ClearQuotedPrice: true, ClearProfessional: true}, payload, nil
		},
	})
}

// Accept moves a job to accepted. A professional accepts a sent job as a
// lead and is assigned; the owner accepts a quoted job and the quoting
// professional stays assigned.
func (e Engine) Accept(ctx context.Context, actor auth.Actor, jobID string) (domain.Job, error) {
	return e.transition(ctx, actor, jobID, transition{
		action: auth.ActionAccept,
		to:     domain.StatusAccepted,
		event:  events.JobAccepted,
		prepare: func(_ context.Context, _ *sql.Tx, j domain.Job) (repo.JobPatch, events.EventPayload, error) {
			switch j.Status {
			case domain.StatusSent:
				path := domain.AcceptViaLead
				pro := actor.ID
				return repo.JobPatch{AcceptPath: &path, ProfessionalID: &pro}, events.EventPayload{"accept_path": path, "professional_id": pro}, nil
			case domain.StatusQuoted:
				if j.ProfessionalID == nil {
					return repo.JobPatch{}, nil, fmt.Errorf("%w: quoted job has no professional", ErrInvalidTransition)
				}
				path := domain.AcceptViaQuote
				return repo.JobPatch{AcceptPath: &path}, events.EventPayload{"accept_path": path, "professional_id": *j.ProfessionalID}, nil
			default:
				return repo.JobPatch{}, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, domain.StatusAccepted)
			}
		},
	})
}

// Begin starts work on an accepted job and instantiates its checklist.
func (e Engine) Begin(ctx context.Context, actor auth.Actor, jobID string) (domain.Job, error) {
	return e.transition(ctx, actor, jobID, transition{
		action: auth.ActionBegin,
		to:     domain.StatusInProgress,
		event:  events.JobStarted,
		prepare: func(ctx context.Context, tx *sql.Tx, j domain.Job) (repo.JobPatch, events.EventPayload, error) {
			existing, err := e.Repo.ListChecklistTx(ctx, tx, j.ID)
			if err != nil {
				return repo.JobPatch{}, nil, err
			}
			if len(existing) == 0 {
				if e.Config == nil {
					return repo.JobPatch{}, nil, errors.New("config not loaded")
				}
				items := checklist.Instantiate(j.ID, e.Config.Checklist.Template)
				if err := e.Repo.InsertChecklistItems(ctx, tx, items); err != nil {
					return repo.JobPatch{}, nil, fmt.Errorf("instantiate checklist: %w", err)
				}
				existing = items
			}
			return repo.JobPatch{}, events.EventPayload{"checklist_items": len(existing)}, nil
		},
	})
}

// Complete finishes an in-progress job once every required checklist item
// is checked.
func (e Engine) Complete(ctx context.Context, actor auth.Actor, jobID string, afterImages ...string) (domain.Job, error) {
	return e.transition(ctx, actor, jobID, transition{
		action: auth.ActionComplete,
		to:     domain.StatusCompleted,
		event:  events.JobCompleted,
		prepare: func(ctx context.Context, tx *sql.Tx, j domain.Job) (repo.JobPatch, events.EventPayload, error) {
			items, err := e.Repo.ListChecklistTx(ctx, tx, j.ID)
			if err != nil {
				return repo.JobPatch{}, nil, err
			}
			if !checklist.AllRequiredChecked(items) {
				return repo.JobPatch{}, nil, fmt.Errorf("%w: missing %s", ErrChecklistIncomplete, strings.Join(checklist.Missing(items), ", "))
			}
			now := e.timestamp()
			patch := repo.JobPatch{CompletedAt: &now}
			if len(afterImages) > 0 {
				patch.AfterImages = afterImages
			}
			return patch, events.EventPayload{"progress": checklist.Progress(items)}, nil
		},
	})
}

type transition struct {
	action auth.Action
	to     domain.Status
	// from pins the source status when the target alone is ambiguous.
	from    domain.Status
	event   string
	prepare func(ctx context.Context, tx *sql.Tx, j domain.Job) (repo.JobPatch, events.EventPayload, error)
}

// transition runs one status change: authorize, check the state machine,
// write with compare-and-set on the observed status, append the event.
// Any failure rolls back and leaves the job untouched.
func (e Engine) transition(ctx context.Context, actor auth.Actor, jobID string, t transition) (job domain.Job, err error) {
	defer func() {
		metrics.TransitionsTotal.WithLabelValues(string(t.to), resultLabel(err)).Inc()
	}()
	unlock := e.lockJob(jobID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Job{}, err
	}
	defer tx.Rollback()

	j, err := e.Repo.GetJobTx(ctx, tx, jobID)
	if err != nil {
		return domain.Job{}, fmt.Errorf("job %s: %w", jobID, err)
	}
	if auth.Hidden(actor, j) {
		return domain.Job{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err := auth.Authorize(actor, t.action, j); err != nil {
		return j, err
	}
	if t.from != "" && j.Status != t.from {
		return j, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, t.to)
	}
	if err := ensureJobTransition(j.Status, t.to); err != nil {
		return j, err
	}
	var (
		patch   repo.JobPatch
		payload events.EventPayload
	)
	if t.prepare != nil {
		if patch, payload, err = t.prepare(ctx, tx, j); err != nil {
			return j, err
		}
	}
	if payload == nil {
		payload = events.EventPayload{}
	}
	to := t.to
	patch.Status = &to
	patch.UpdatedAt = e.timestamp()
	updated, err := e.Repo.UpdateJob(ctx, tx, jobID, j.Status, patch)
	if errors.Is(err, repo.ErrStatusConflict) {
		return j, fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, jobID)
	}
	if err != nil {
		return j, err
	}
	payload["from_status"] = j.Status
	payload["to_status"] = updated.Status
	if err := e.Events.Append(ctx, tx, t.event, "job", jobID, actor.ID, payload); err != nil {
		return j, err
	}
	if err := tx.Commit(); err != nil {
		return j, err
	}
	e.log().Info("job transitioned",
		zap.String("job_id", jobID),
		zap.String("from", string(j.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.ID),
	)
	return updated, nil
}

func ensureJobTransition(oldStatus, newStatus domain.Status) error {
	switch oldStatus {
	case domain.StatusRecommended:
		if newStatus == domain.StatusSent {
			return nil
		}
	case domain.StatusSent:
		if newStatus == domain.StatusQuoted || newStatus == domain.StatusAccepted {
			return nil
		}
	case domain.StatusQuoted:
		if newStatus == domain.StatusAccepted || newStatus == domain.StatusSent {
			return nil
		}
	case domain.StatusAccepted:
		if newStatus == domain.StatusInProgress {
			return nil
		}
	case domain.StatusInProgress:
		if newStatus == domain.StatusCompleted {
			return nil
		}
	case domain.StatusCompleted:
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldStatus, newStatus)
}
