package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobline/internal/config"
	"jobline/internal/domain"
)

func items(n, checked int, required ...int) []domain.ChecklistItem {
	req := map[int]bool{}
	for _, r := range required {
		req[r] = true
	}
	out := make([]domain.ChecklistItem, n)
	for i := range out {
		out[i] = domain.ChecklistItem{ID: string(rune('a' + i)), Phase: domain.PhaseStart, Label: "item", Required: req[i], Checked: i < checked}
	}
	return out
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 25, Progress(items(8, 2)))
	assert.Equal(t, 0, Progress(nil))
	assert.Equal(t, 0, Progress(items(3, 0)))
	assert.Equal(t, 33, Progress(items(3, 1)))
	assert.Equal(t, 67, Progress(items(3, 2)))
	assert.Equal(t, 100, Progress(items(4, 4)))
}

func TestAllRequiredChecked(t *testing.T) {
	assert.True(t, AllRequiredChecked(nil))
	assert.True(t, AllRequiredChecked(items(3, 0)))
	assert.False(t, AllRequiredChecked(items(3, 1, 0, 2)))
	assert.True(t, AllRequiredChecked(items(3, 3, 0, 2)))
	assert.Equal(t, []string{"item"}, Missing(items(3, 1, 0, 2)))
}

func TestInstantiateFollowsTemplate(t *testing.T) {
	cfg := config.Default("jobs.example.com")
	got := Instantiate("job-1", cfg.Checklist.Template)
	require.Len(t, got, 8)
	for i, it := range got {
		assert.Equal(t, "job-1", it.JobID)
		assert.Equal(t, i, it.Position)
		assert.False(t, it.Checked)
	}
	assert.Equal(t, domain.PhaseStart, got[0].Phase)
	assert.Equal(t, domain.PhaseCloseout, got[7].Phase)

	sum := ByPhase(got)
	require.Len(t, sum, 3)
	assert.Equal(t, Summary{Phase: domain.PhaseStart, Total: 3, Required: 2}, sum[0])
	assert.Equal(t, Summary{Phase: domain.PhaseExecution, Total: 3, Required: 1}, sum[1])
	assert.Equal(t, Summary{Phase: domain.PhaseCloseout, Total: 2, Required: 2}, sum[2])
}
