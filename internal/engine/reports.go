package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"jobline/internal/domain"
	"jobline/internal/engine/auth"
	"jobline/internal/events"
	"jobline/internal/metrics"
	"jobline/internal/repo"
	"jobline/internal/report"
)

func repoCompletedFilter(propertyID string) repo.JobFilter {
	return repo.JobFilter{PropertyID: propertyID, Statuses: []domain.Status{domain.StatusCompleted}}
}

// PropertyReport summarizes the completed jobs of a property visible to actor.
func (e Engine) PropertyReport(ctx context.Context, actor auth.Actor, propertyID string) (report.Report, error) {
	p, err := e.GetProperty(ctx, actor, propertyID)
	if err != nil {
		return report.Report{}, err
	}
	jobs, err := e.VisibleJobs(ctx, actor, JobQuery{PropertyID: p.ID, Status: domain.StatusCompleted})
	if err != nil {
		return report.Report{}, err
	}
	return report.Assemble(p.ID, jobs), nil
}

// ExportReport builds a bank or insurance payload for a property. When a
// sink is configured the payload is uploaded too; an upload failure is
// logged and the payload is still returned inline.
func (e Engine) ExportReport(ctx context.Context, actor auth.Actor, propertyID string, kind report.ExportKind) (out report.ExportPayload, err error) {
	result := "inline"
	defer func() {
		if err != nil {
			result = "error"
		}
		metrics.ExportsTotal.WithLabelValues(string(kind), result).Inc()
	}()
	if !kind.Valid() {
		return report.ExportPayload{}, fmt.Errorf("invalid export kind %q", kind)
	}
	p, err := e.Repo.GetProperty(ctx, propertyID)
	if err != nil {
		return report.ExportPayload{}, fmt.Errorf("property %s: %w", propertyID, err)
	}
	if err := auth.AuthorizeProperty(actor, auth.ActionExport, p); err != nil {
		return report.ExportPayload{}, err
	}
	jobs, err := e.Repo.ListJobs(ctx, repo.JobFilter{PropertyID: p.ID})
	if err != nil {
		return report.ExportPayload{}, err
	}
	out, err = report.BuildExport(kind, p, jobs, e.now())
	if err != nil {
		return report.ExportPayload{}, err
	}
	if e.Sink != nil {
		art, putErr := e.Sink.Put(ctx, out)
		if putErr != nil {
			e.log().Warn("export upload failed", zap.String("property_id", p.ID), zap.String("kind", string(kind)), zap.Error(putErr))
		} else {
			out.Artifact = &art
			result = "uploaded"
		}
	}
	payload := events.EventPayload{
		"kind":         kind,
		"health_score": out.Stats.HealthScore,
	}
	if out.Artifact != nil {
		payload["object_key"] = out.Artifact.Key
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return report.ExportPayload{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, events.ReportExported, "property", p.ID, actor.ID, payload); err != nil {
		return report.ExportPayload{}, err
	}
	if err := tx.Commit(); err != nil {
		return report.ExportPayload{}, err
	}
	return out, nil
}

// SuggestMaterials returns suggested materials for a job visible to actor.
// Suggestion failures degrade to an empty list.
func (e Engine) SuggestMaterials(ctx context.Context, actor auth.Actor, jobID string) ([]domain.Material, error) {
	j, err := e.GetJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if e.Materials == nil {
		return []domain.Material{}, nil
	}
	out := e.Materials.Suggest(ctx, j)
	if out == nil {
		out = []domain.Material{}
	}
	return out, nil
}

// ListEvents lists recent events for entities actor may see. Admins see all;
// others are limited to a single job or property they can view.
func (e Engine) ListEvents(ctx context.Context, actor auth.Actor, f repo.EventFilter) ([]domain.Event, error) {
	if actor.Role != auth.RoleAdmin {
		switch f.EntityKind {
		case "job":
			if _, err := e.GetJob(ctx, actor, f.EntityID); err != nil {
				return nil, err
			}
		case "property":
			if _, err := e.GetProperty(ctx, actor, f.EntityID); err != nil {
				return nil, err
			}
		default:
			return nil, errors.New("entity_kind job or property with entity_id is required")
		}
	}
	out, err := e.Repo.LatestEvents(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Event{}
	}
	return out, nil
}
