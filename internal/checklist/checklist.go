// Package checklist holds the pure predicates over a job's completion checklist.
package checklist

import (
	"math"

	"jobline/internal/config"
	"jobline/internal/domain"
)

// AllRequiredChecked reports whether every required item is checked.
// A checklist with no required items is satisfied.
func AllRequiredChecked(items []domain.ChecklistItem) bool {
	for _, it := range items {
		if it.Required && !it.Checked {
			return false
		}
	}
	return true
}

// Progress returns round(100*checked/total), or 0 for an empty checklist.
func Progress(items []domain.ChecklistItem) int {
	if len(items) == 0 {
		return 0
	}
	checked := 0
	for _, it := range items {
		if it.Checked {
			checked++
		}
	}
	return int(math.Round(100 * float64(checked) / float64(len(items))))
}

// Missing returns the labels of unchecked required items.
func Missing(items []domain.ChecklistItem) []string {
	var out []string
	for _, it := range items {
		if it.Required && !it.Checked {
			out = append(out, it.Label)
		}
	}
	return out
}

// Instantiate builds unchecked items for jobID from the template, in order.
func Instantiate(jobID string, template []config.ChecklistTemplateItem) []domain.ChecklistItem {
	items := make([]domain.ChecklistItem, 0, len(template))
	for i, t := range template {
		items = append(items, domain.ChecklistItem{
			JobID:    jobID,
			ID:       t.ID,
			Phase:    t.Phase,
			Label:    t.Label,
			Required: t.Required,
			Position: i,
		})
	}
	return items
}

// Summary is a per-phase count used by reports and the CLI.
type Summary struct {
	Phase    domain.Phase `json:"phase"`
	Checked  int          `json:"checked"`
	Total    int          `json:"total"`
	Required int          `json:"required"`
}

// ByPhase summarizes items per phase in Start, Execution, Closeout order.
func ByPhase(items []domain.ChecklistItem) []Summary {
	phases := []domain.Phase{domain.PhaseStart, domain.PhaseExecution, domain.PhaseCloseout}
	out := make([]Summary, 0, len(phases))
	for _, p := range phases {
		s := Summary{Phase: p}
		for _, it := range items {
			if it.Phase != p {
				continue
			}
			s.Total++
			if it.Checked {
				s.Checked++
			}
			if it.Required {
				s.Required++
			}
		}
		out = append(out, s)
	}
	return out
}
