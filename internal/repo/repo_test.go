package repo_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobline/internal/db"
	"jobline/internal/domain"
	"jobline/internal/migrate"
	"jobline/internal/repo"
)

const ts = "2024-03-01T10:00:00Z"

func openRepo(t *testing.T) (repo.Repo, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn))
	return repo.Repo{DB: conn}, conn
}

func seedJob(t *testing.T, r repo.Repo, status domain.Status) domain.Job {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.InsertProperty(ctx, nil, domain.Property{ID: "p1", OwnerID: "u1", Address: "Storgata 1", CreatedAt: ts}))
	owner := "u1"
	j := domain.Job{
		ID:           "j1",
		PropertyID:   "p1",
		UserID:       &owner,
		Title:        "Drain inspection",
		BeforeImages: []string{"a.jpg", "b.jpg"},
		RiskLevel:    domain.RiskModerate,
		ValueEffect:  domain.EffectProtect,
		Driver:       domain.DriverMaintenance,
		CostEstimate: 2500,
		Status:       status,
		Initiator:    domain.InitiatorCustomer,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	require.NoError(t, r.InsertJob(ctx, nil, j))
	return j
}

func TestJobRoundTrip(t *testing.T) {
	r, _ := openRepo(t)
	seedJob(t, r, domain.StatusRecommended)

	got, err := r.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRecommended, got.Status)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, got.BeforeImages)
	assert.Nil(t, got.ProfessionalID)
	assert.Nil(t, got.AcceptPath)
	assert.True(t, got.OwnedBy("u1"))

	_, err = r.GetJob(context.Background(), "nope")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestUpdateJobCompareAndSet(t *testing.T) {
	r, conn := openRepo(t)
	ctx := context.Background()
	seedJob(t, r, domain.StatusSent)

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	quoted := domain.StatusQuoted
	price := 3000.0
	pro := "p1"
	_, err = r.UpdateJob(ctx, tx, "j1", domain.StatusRecommended, repo.JobPatch{Status: &quoted, QuotedPrice: &price})
	assert.ErrorIs(t, err, repo.ErrStatusConflict)

	_, err = r.UpdateJob(ctx, tx, "missing", domain.StatusSent, repo.JobPatch{Status: &quoted})
	assert.ErrorIs(t, err, repo.ErrNotFound)

	j, err := r.UpdateJob(ctx, tx, "j1", domain.StatusSent, repo.JobPatch{Status: &quoted, QuotedPrice: &price, ProfessionalID: &pro, UpdatedAt: ts})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQuoted, j.Status)
	require.NotNil(t, j.QuotedPrice)
	assert.Equal(t, 3000.0, *j.QuotedPrice)

	sent := domain.StatusSent
	j, err = r.UpdateJob(ctx, tx, "j1", domain.StatusQuoted, repo.JobPatch{Status: &sent, ClearQuotedPrice: true, ClearProfessional: true})
	require.NoError(t, err)
	assert.Nil(t, j.QuotedPrice)
	assert.Nil(t, j.ProfessionalID)
	require.NoError(t, tx.Commit())
}

func TestListJobsFilters(t *testing.T) {
	r, _ := openRepo(t)
	seedJob(t, r, domain.StatusSent)

	jobs, err := r.ListJobs(context.Background(), repo.JobFilter{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	jobs, err = r.ListJobs(context.Background(), repo.JobFilter{Statuses: []domain.Status{domain.StatusCompleted}})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestChecklistItems(t *testing.T) {
	r, conn := openRepo(t)
	ctx := context.Background()
	seedJob(t, r, domain.StatusInProgress)

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	require.NoError(t, r.InsertChecklistItems(ctx, tx, []domain.ChecklistItem{
		{JobID: "j1", ID: "b", Phase: domain.PhaseExecution, Label: "Second", Required: true, Position: 1},
		{JobID: "j1", ID: "a", Phase: domain.PhaseStart, Label: "First", Position: 0},
	}))
	require.NoError(t, r.SetChecklistChecked(ctx, tx, "j1", "b", true))
	require.NoError(t, tx.Commit())

	items, err := r.ListChecklist(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.True(t, items[1].Checked)
}

func TestAPIKeys(t *testing.T) {
	r, _ := openRepo(t)
	ctx := context.Background()
	key := domain.APIKey{ID: "k1", ActorID: "u1", Role: "owner", Name: "laptop", KeyHash: repo.HashAPIKey(" secret ")}
	require.NoError(t, r.InsertAPIKey(ctx, nil, key))

	got, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey("secret"))
	require.NoError(t, err)
	assert.Equal(t, "owner", got.Role)

	require.NoError(t, r.DeleteAPIKey(ctx, "k1"))
	assert.ErrorIs(t, r.DeleteAPIKey(ctx, "k1"), repo.ErrNotFound)
}
