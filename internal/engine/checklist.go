package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"jobline/internal/checklist"
	"jobline/internal/domain"
	"jobline/internal/engine/auth"
	"jobline/internal/events"
	"jobline/internal/metrics"
)

// ChecklistView is a job's checklist with derived progress.
type ChecklistView struct {
	JobID              string                 `json:"job_id"`
	Items              []domain.ChecklistItem `json:"items"`
	Progress           int                    `json:"progress"`
	AllRequiredChecked bool                   `json:"all_required_checked"`
	Phases             []checklist.Summary    `json:"phases"`
}

func newChecklistView(jobID string, items []domain.ChecklistItem) ChecklistView {
	if items == nil {
		items = []domain.ChecklistItem{}
	}
	return ChecklistView{
		JobID:              jobID,
		Items:              items,
		Progress:           checklist.Progress(items),
		AllRequiredChecked: checklist.AllRequiredChecked(items),
		Phases:             checklist.ByPhase(items),
	}
}

// Checklist returns the checklist of a job visible to actor.
func (e Engine) Checklist(ctx context.Context, actor auth.Actor, jobID string) (ChecklistView, error) {
	if _, err := e.GetJob(ctx, actor, jobID); err != nil {
		return ChecklistView{}, err
	}
	items, err := e.Repo.ListChecklist(ctx, jobID)
	if err != nil {
		return ChecklistView{}, err
	}
	return newChecklistView(jobID, items), nil
}

// ToggleChecklistItem flips one item's checked flag. Items may be toggled in
// any order while the job is in progress, and after completion without
// affecting the job status.
func (e Engine) ToggleChecklistItem(ctx context.Context, actor auth.Actor, jobID, itemID string) (ChecklistView, error) {
	unlock := e.lockJob(jobID)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ChecklistView{}, err
	}
	defer tx.Rollback()

	j, err := e.Repo.GetJobTx(ctx, tx, jobID)
	if err != nil {
		return ChecklistView{}, fmt.Errorf("job %s: %w", jobID, err)
	}
	if auth.Hidden(actor, j) {
		return ChecklistView{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err := auth.Authorize(actor, auth.ActionToggle, j); err != nil {
		return ChecklistView{}, err
	}
	if j.Status != domain.StatusInProgress && j.Status != domain.StatusCompleted {
		return ChecklistView{}, fmt.Errorf("%w: checklist is not active while %s", ErrInvalidTransition, j.Status)
	}
	item, err := e.Repo.GetChecklistItemTx(ctx, tx, jobID, itemID)
	if err != nil {
		return ChecklistView{}, fmt.Errorf("checklist item %s: %w", itemID, err)
	}
	checked := !item.Checked
	if err := e.Repo.SetChecklistChecked(ctx, tx, jobID, itemID, checked); err != nil {
		return ChecklistView{}, err
	}
	items, err := e.Repo.ListChecklistTx(ctx, tx, jobID)
	if err != nil {
		return ChecklistView{}, err
	}
	view := newChecklistView(jobID, items)
	if err := e.Events.Append(ctx, tx, events.ChecklistToggled, "job", jobID, actor.ID, events.EventPayload{
		"item_id":  itemID,
		"checked":  checked,
		"progress": view.Progress,
	}); err != nil {
		return ChecklistView{}, err
	}
	if err := tx.Commit(); err != nil {
		return ChecklistView{}, err
	}
	metrics.ChecklistTogglesTotal.Inc()
	e.log().Debug("checklist toggled", zap.String("job_id", jobID), zap.String("item_id", itemID), zap.Bool("checked", checked))
	return view, nil
}
