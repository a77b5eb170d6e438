// Package report reduces a property's completed jobs into stats, a narrative
// and an export payload.
package report

import (
	"math"
	"sort"

	"jobline/internal/domain"
)

const (
	// CriticalROIFactor applies to critical jobs without an explicit factor.
	CriticalROIFactor = 1.5
	// DefaultROIFactor applies to every other job without an explicit factor.
	DefaultROIFactor = 1.0
)

type Stats struct {
	CompletedCount     int     `json:"completed_count"`
	CriticalFixedCount int     `json:"critical_fixed_count"`
	ValueCreated       float64 `json:"value_created"`
}

// NarrativeKind identifies one of the fixed report narratives.
type NarrativeKind string

const (
	NarrativeNoHistory     NarrativeKind = "no_history"
	NarrativeCriticalFixed NarrativeKind = "critical_fixed"
	NarrativeMaintained    NarrativeKind = "maintained"
)

var narratives = map[NarrativeKind]string{
	NarrativeNoHistory:     "No completed work is registered for this property yet. Completed jobs will appear here with their documented value.",
	NarrativeCriticalFixed: "Critical conditions on this property have been remedied by professionals, reducing risk and protecting its value.",
	NarrativeMaintained:    "This property has a documented history of regular maintenance carried out by professionals.",
}

type Narrative struct {
	Kind NarrativeKind `json:"kind"`
	Text string        `json:"text"`
}

type Report struct {
	PropertyID string    `json:"property_id"`
	Stats      Stats     `json:"stats"`
	Narrative  Narrative `json:"narrative"`
}

// ROIFactor returns the job's explicit factor, or the critical/default factor.
func ROIFactor(j domain.Job) float64 {
	if j.ROIFactor != nil {
		return *j.ROIFactor
	}
	if j.Critical() {
		return CriticalROIFactor
	}
	return DefaultROIFactor
}

// MidCost returns the midpoint of the cost range, or the estimate when the
// range is incomplete.
func MidCost(j domain.Job) float64 {
	if j.CostMin != nil && j.CostMax != nil {
		return (*j.CostMin + *j.CostMax) / 2
	}
	return j.CostEstimate
}

// ComputeStats counts completed jobs and their value. Non-completed jobs
// are ignored.
func ComputeStats(jobs []domain.Job) Stats {
	var s Stats
	for _, j := range jobs {
		if j.Status != domain.StatusCompleted {
			continue
		}
		s.CompletedCount++
		if j.Critical() {
			s.CriticalFixedCount++
		}
		s.ValueCreated += MidCost(j) * ROIFactor(j)
	}
	s.ValueCreated = math.Round(s.ValueCreated*100) / 100
	return s
}

// SelectNarrative picks the narrative for the given counts.
func SelectNarrative(completed, criticalFixed int) Narrative {
	kind := NarrativeMaintained
	switch {
	case completed <= 0:
		kind = NarrativeNoHistory
	case criticalFixed > 0:
		kind = NarrativeCriticalFixed
	}
	return Narrative{Kind: kind, Text: narratives[kind]}
}

// Assemble builds the report for a property from its jobs.
func Assemble(propertyID string, jobs []domain.Job) Report {
	stats := ComputeStats(jobs)
	return Report{
		PropertyID: propertyID,
		Stats:      stats,
		Narrative:  SelectNarrative(stats.CompletedCount, stats.CriticalFixedCount),
	}
}

// completedNewestFirst returns completed jobs ordered by completion time, newest first.
func completedNewestFirst(jobs []domain.Job) []domain.Job {
	var out []domain.Job
	for _, j := range jobs {
		if j.Status == domain.StatusCompleted {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return completedAt(out[a]) > completedAt(out[b])
	})
	return out
}

func completedAt(j domain.Job) string {
	if j.CompletedAt != nil {
		return *j.CompletedAt
	}
	return j.UpdatedAt
}
