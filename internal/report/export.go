package report

import (
	"fmt"
	"time"

	"jobline/internal/domain"
)

type ExportKind string

const (
	ExportBank      ExportKind = "bank"
	ExportInsurance ExportKind = "insurance"
)

func (k ExportKind) Valid() bool {
	switch k {
	case ExportBank, ExportInsurance:
		return true
	}
	return false
}

// MaxHistory bounds the maintenance history carried in an export.
const MaxHistory = 10

// Penalties subtracted from the health score per open job, by technical grade.
var gradePenalty = map[int]int{1: 3, 2: 8, 3: 15}

type PropertyRef struct {
	ID          string   `json:"id"`
	Address     string   `json:"address"`
	RegistryID  string   `json:"registry_id,omitempty"`
	YearBuilt   *int     `json:"year_built,omitempty"`
	FloorArea   *float64 `json:"floor_area,omitempty"`
	Type        string   `json:"type,omitempty"`
	EnergyGrade string   `json:"energy_grade,omitempty"`
}

type ExportStats struct {
	CurrentValue         float64 `json:"current_value"`
	VerifiedAppreciation float64 `json:"verified_appreciation"`
	HealthScore          int     `json:"health_score"`
	Index                float64 `json:"index"`
}

type HistoryEvent struct {
	JobID          string           `json:"job_id"`
	Title          string           `json:"title"`
	CompletedAt    string           `json:"completed_at"`
	RiskLevel      domain.RiskLevel `json:"risk_level"`
	TechnicalGrade int              `json:"technical_grade"`
	Value          float64          `json:"value"`
}

type ExportPayload struct {
	Kind        ExportKind     `json:"kind"`
	Property    PropertyRef    `json:"property"`
	Stats       ExportStats    `json:"stats"`
	History     []HistoryEvent `json:"history"`
	Narrative   Narrative      `json:"narrative"`
	GeneratedAt string         `json:"generated_at"`
	// Artifact is set when the payload was handed to a sink.
	Artifact *Artifact `json:"artifact,omitempty"`
}

// HealthScore starts at 100 and subtracts a penalty per open job by grade.
func HealthScore(jobs []domain.Job) int {
	score := 100
	for _, j := range jobs {
		if j.Status == domain.StatusCompleted {
			continue
		}
		score -= gradePenalty[j.TechnicalGrade]
	}
	if score < 0 {
		return 0
	}
	return score
}

// BuildExport assembles the export payload for a property.
func BuildExport(kind ExportKind, p domain.Property, jobs []domain.Job, now time.Time) (ExportPayload, error) {
	if !kind.Valid() {
		return ExportPayload{}, fmt.Errorf("invalid export kind %q", kind)
	}
	stats := ComputeStats(jobs)
	health := HealthScore(jobs)
	out := ExportPayload{
		Kind: kind,
		Property: PropertyRef{
			ID:          p.ID,
			Address:     p.Address,
			RegistryID:  p.RegistryID,
			YearBuilt:   p.YearBuilt,
			FloorArea:   p.FloorArea,
			Type:        p.Type,
			EnergyGrade: p.EnergyGrade,
		},
		Stats: ExportStats{
			VerifiedAppreciation: stats.ValueCreated,
			HealthScore:          health,
			Index:                float64(health) / 10,
		},
		History:     []HistoryEvent{},
		Narrative:   SelectNarrative(stats.CompletedCount, stats.CriticalFixedCount),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
	if p.EstimatedValue != nil {
		out.Stats.CurrentValue = *p.EstimatedValue
	}
	for _, j := range completedNewestFirst(jobs) {
		if len(out.History) == MaxHistory {
			break
		}
		out.History = append(out.History, HistoryEvent{
			JobID:          j.ID,
			Title:          j.Title,
			CompletedAt:    completedAt(j),
			RiskLevel:      j.RiskLevel,
			TechnicalGrade: j.TechnicalGrade,
			Value:          MidCost(j) * ROIFactor(j),
		})
	}
	return out, nil
}
