package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobline/internal/domain"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func completed(id string, risk domain.RiskLevel, grade int, at string) domain.Job {
	return domain.Job{ID: id, Title: "job " + id, Status: domain.StatusCompleted, RiskLevel: risk, TechnicalGrade: grade, CostEstimate: 1000, CompletedAt: s(at)}
}

func TestComputeStats(t *testing.T) {
	critical := completed("c", domain.RiskCritical, 2, "2024-01-02T00:00:00Z")
	critical.CostMin, critical.CostMax = f(10000), f(20000)
	tg3 := completed("g", domain.RiskLow, 3, "2024-01-03T00:00:00Z")
	plain := completed("p", domain.RiskLow, 1, "2024-01-04T00:00:00Z")
	explicit := completed("e", domain.RiskCritical, 3, "2024-01-05T00:00:00Z")
	explicit.ROIFactor = f(2)
	open := domain.Job{ID: "o", Status: domain.StatusInProgress, RiskLevel: domain.RiskCritical, CostEstimate: 99999}

	st := ComputeStats([]domain.Job{critical, tg3, plain, explicit, open})
	assert.Equal(t, 4, st.CompletedCount)
	assert.Equal(t, 3, st.CriticalFixedCount)
	// 15000*1.5 + 1000*1.5 + 1000*1.0 + 1000*2
	assert.InDelta(t, 27000, st.ValueCreated, 0.001)
}

func TestSelectNarrativeIsTotal(t *testing.T) {
	assert.Equal(t, NarrativeNoHistory, SelectNarrative(0, 0).Kind)
	assert.Equal(t, NarrativeNoHistory, SelectNarrative(0, 3).Kind)
	assert.Equal(t, NarrativeCriticalFixed, SelectNarrative(2, 1).Kind)
	assert.Equal(t, NarrativeMaintained, SelectNarrative(5, 0).Kind)
	for c := 0; c < 4; c++ {
		for k := 0; k < 4; k++ {
			n := SelectNarrative(c, k)
			assert.NotEmpty(t, n.Text)
			assert.Equal(t, n, SelectNarrative(c, k))
		}
	}
}

func TestAssemble(t *testing.T) {
	r := Assemble("prop-1", nil)
	assert.Equal(t, "prop-1", r.PropertyID)
	assert.Equal(t, NarrativeNoHistory, r.Narrative.Kind)
}

func TestBuildExport(t *testing.T) {
	var jobs []domain.Job
	for i := 0; i < 12; i++ {
		jobs = append(jobs, completed(fmt.Sprintf("j%02d", i), domain.RiskLow, 0, fmt.Sprintf("2024-02-%02dT00:00:00Z", i+1)))
	}
	jobs = append(jobs,
		domain.Job{ID: "open3", Status: domain.StatusSent, TechnicalGrade: 3},
		domain.Job{ID: "open2", Status: domain.StatusRecommended, TechnicalGrade: 2},
	)
	p := domain.Property{ID: "prop-1", Address: "Storgata 1", EstimatedValue: f(4500000)}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	out, err := BuildExport(ExportBank, p, jobs, now)
	require.NoError(t, err)
	assert.Equal(t, ExportBank, out.Kind)
	assert.Equal(t, 4500000.0, out.Stats.CurrentValue)
	assert.InDelta(t, 12000, out.Stats.VerifiedAppreciation, 0.001)
	assert.Equal(t, 77, out.Stats.HealthScore)
	assert.InDelta(t, 7.7, out.Stats.Index, 0.0001)
	require.Len(t, out.History, MaxHistory)
	assert.Equal(t, "j11", out.History[0].JobID)
	assert.Equal(t, "j02", out.History[9].JobID)
	assert.Equal(t, "2024-03-01T00:00:00Z", out.GeneratedAt)

	_, err = BuildExport(ExportKind("tax"), p, jobs, now)
	assert.Error(t, err)
}

func TestHealthScoreFloorsAtZero(t *testing.T) {
	var jobs []domain.Job
	for i := 0; i < 10; i++ {
		jobs = append(jobs, domain.Job{Status: domain.StatusSent, TechnicalGrade: 3})
	}
	assert.Equal(t, 0, HealthScore(jobs))
	assert.Equal(t, 100, HealthScore(nil))
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey(ExportPayload{Kind: ExportInsurance, Property: PropertyRef{ID: "prop-1"}, GeneratedAt: "2024-03-01T10:20:30Z"})
	assert.Equal(t, "prop-1/insurance-20240301T102030Z.json", key)
}
