package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobline/internal/config"
	"jobline/internal/db"
	"jobline/internal/domain"
	"jobline/internal/engine"
	"jobline/internal/engine/auth"
	"jobline/internal/magiclink"
	"jobline/internal/migrate"
	"jobline/internal/repo"
	"jobline/internal/report"
)

var (
	owner = auth.Actor{ID: "owner-1", Role: auth.RoleOwner}
	pro   = auth.Actor{ID: "pro-1", Role: auth.RoleProfessional}
	pro2  = auth.Actor{ID: "pro-2", Role: auth.RoleProfessional}
	admin = auth.Actor{ID: "admin-1", Role: auth.RoleAdmin}
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type testEnv struct {
	Engine engine.Engine
	Clock  *clock
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	require.NoError(t, migrate.Migrate(ctx, conn))
	clk := &clock{t: t0}
	eng := engine.New(conn, config.Default("jobline.test"))
	eng.Now = clk.Now
	eng.Events.Now = clk.Now
	return testEnv{Engine: eng, Clock: clk, Ctx: ctx}
}

func (env testEnv) property(t *testing.T) domain.Property {
	t.Helper()
	value := 4_000_000.0
	p, err := env.Engine.CreateProperty(env.Ctx, owner, engine.PropertyOptions{Address: "Storgata 1, Oslo", EstimatedValue: &value})
	require.NoError(t, err)
	return p
}

func (env testEnv) recommend(t *testing.T, propertyID string) domain.Job {
	t.Helper()
	j, err := env.Engine.Recommend(env.Ctx, owner, engine.RecommendOptions{
		PropertyID:     propertyID,
		Title:          "Replace roof membrane",
		RiskLevel:      domain.RiskCritical,
		TechnicalGrade: 3,
		CostEstimate:   10000,
	})
	require.NoError(t, err)
	return j
}

// inProgress drives a fresh job to in_progress via the quote path.
func (env testEnv) inProgress(t *testing.T, propertyID string) domain.Job {
	t.Helper()
	j := env.recommend(t, propertyID)
	_, err := env.Engine.Send(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	_, err = env.Engine.Quote(env.Ctx, pro, j.ID, 11000)
	require.NoError(t, err)
	_, err = env.Engine.Accept(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	j, err = env.Engine.Begin(env.Ctx, pro, j.ID)
	require.NoError(t, err)
	return j
}

func (env testEnv) checkRequired(t *testing.T, jobID string) {
	t.Helper()
	view, err := env.Engine.Checklist(env.Ctx, pro, jobID)
	require.NoError(t, err)
	for _, it := range view.Items {
		if it.Required && !it.Checked {
			_, err := env.Engine.ToggleChecklistItem(env.Ctx, pro, jobID, it.ID)
			require.NoError(t, err)
		}
	}
}

func isForbidden(err error) bool {
	var fe auth.ForbiddenError
	return errors.As(err, &fe)
}

func TestLifecycleQuotePathToCompleted(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)
	assert.Equal(t, domain.StatusRecommended, j.Status)
	assert.Equal(t, owner.ID, *j.UserID)
	assert.Equal(t, p.Address, j.Address)

	j, err := env.Engine.Send(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, j.Status)

	j, err = env.Engine.Quote(env.Ctx, pro, j.ID, 12500)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQuoted, j.Status)
	require.NotNil(t, j.QuotedPrice)
	assert.Equal(t, 12500.0, *j.QuotedPrice)
	assert.True(t, j.AssignedTo(pro.ID))

	cmp, err := env.Engine.QuoteComparison(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	assert.True(t, cmp.IsExpensive)
	assert.Equal(t, "above average", cmp.Label)

	j, err = env.Engine.Accept(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, j.Status)
	require.NotNil(t, j.AcceptPath)
	assert.Equal(t, domain.AcceptViaQuote, *j.AcceptPath)

	j, err = env.Engine.Begin(env.Ctx, pro, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, j.Status)

	view, err := env.Engine.Checklist(env.Ctx, pro, j.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, len(config.Default("jobline.test").Checklist.Template))
	assert.Equal(t, 0, view.Progress)
	assert.False(t, view.AllRequiredChecked)

	for _, it := range view.Items {
		view, err = env.Engine.ToggleChecklistItem(env.Ctx, pro, j.ID, it.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 100, view.Progress)
	assert.True(t, view.AllRequiredChecked)

	j, err = env.Engine.Complete(env.Ctx, pro, j.ID, "after-1.jpg")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, j.Status)
	require.NotNil(t, j.CompletedAt)
	assert.Equal(t, t0.Format(time.RFC3339), *j.CompletedAt)
	assert.Equal(t, []string{"after-1.jpg"}, j.AfterImages)

	rep, err := env.Engine.PropertyReport(env.Ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Stats.CompletedCount)
	assert.Equal(t, 1, rep.Stats.CriticalFixedCount)
	assert.Equal(t, 15000.0, rep.Stats.ValueCreated)
	assert.Equal(t, report.NarrativeCriticalFixed, rep.Narrative.Kind)
}

func TestLeadPathAssignsAcceptingProfessional(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)
	_, err := env.Engine.Send(env.Ctx, owner, j.ID)
	require.NoError(t, err)

	_, err = env.Engine.Accept(env.Ctx, owner, j.ID)
	assert.True(t, isForbidden(err), "owner cannot accept a lead: %v", err)

	j, err = env.Engine.Accept(env.Ctx, pro, j.ID)
	require.NoError(t, err)
	assert.True(t, j.AssignedTo(pro.ID))
	require.NotNil(t, j.AcceptPath)
	assert.Equal(t, domain.AcceptViaLead, *j.AcceptPath)

	_, err = env.Engine.Begin(env.Ctx, pro2, j.ID)
	assert.True(t, isForbidden(err), "other professional cannot begin: %v", err)
}

func TestCompleteRequiresChecklist(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.inProgress(t, p.ID)

	_, err := env.Engine.Complete(env.Ctx, pro, j.ID)
	require.ErrorIs(t, err, engine.ErrChecklistIncomplete)
	assert.Contains(t, err.Error(), "Verify access and site safety")

	got, err := env.Engine.GetJob(env.Ctx, pro, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)

	env.checkRequired(t, j.ID)
	j, err = env.Engine.Complete(env.Ctx, pro, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, j.Status)
}

func TestCompletionSurvivesUncheck(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.inProgress(t, p.ID)
	env.checkRequired(t, j.ID)
	_, err := env.Engine.Complete(env.Ctx, pro, j.ID)
	require.NoError(t, err)

	view, err := env.Engine.ToggleChecklistItem(env.Ctx, pro, j.ID, "start.access")
	require.NoError(t, err)
	assert.False(t, view.AllRequiredChecked)

	got, err := env.Engine.GetJob(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestToggleRequiresActiveChecklist(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)
	_, err := env.Engine.Send(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	_, err = env.Engine.Accept(env.Ctx, pro, j.ID)
	require.NoError(t, err)

	_, err = env.Engine.ToggleChecklistItem(env.Ctx, pro, j.ID, "start.access")
	require.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestConcurrentSendHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)

	const n = 8
	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Engine.Send(env.Ctx, owner, j.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, engine.ErrInvalidTransition)
	}
	assert.Equal(t, 1, wins)

	sent, err := env.Engine.ListEvents(env.Ctx, owner, repo.EventFilter{EntityKind: "job", EntityID: j.ID, Type: "job.sent"})
	require.NoError(t, err)
	assert.Len(t, sent, 1)
}

func TestConcurrentLeadAcceptHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)
	_, err := env.Engine.Send(env.Ctx, owner, j.ID)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, a := range []auth.Actor{pro, pro2} {
		wg.Add(1)
		go func(i int, a auth.Actor) {
			defer wg.Done()
			_, errs[i] = env.Engine.Accept(env.Ctx, a, j.ID)
		}(i, a)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.ErrorIs(t, err, engine.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestConcurrentWritesAcrossJobs(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	const n = 8
	var (
		fresh  = make([]domain.Job, n)
		active = make([]domain.Job, n)
		items  = make([]string, n)
	)
	for i := 0; i < n; i++ {
		fresh[i] = env.recommend(t, p.ID)
		active[i] = env.inProgress(t, p.ID)
		view, err := env.Engine.Checklist(env.Ctx, pro, active[i].ID)
		require.NoError(t, err)
		require.NotEmpty(t, view.Items)
		items[i] = view.Items[0].ID
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}
	for i := 0; i < n; i++ {
		wg.Add(3)
		go func(j domain.Job) {
			defer wg.Done()
			_, err := env.Engine.Send(env.Ctx, owner, j.ID)
			record(err)
		}(fresh[i])
		go func(j domain.Job, item string) {
			defer wg.Done()
			_, err := env.Engine.ToggleChecklistItem(env.Ctx, pro, j.ID, item)
			record(err)
		}(active[i], items[i])
		go func(i int) {
			defer wg.Done()
			_, err := env.Engine.Recommend(env.Ctx, owner, engine.RecommendOptions{PropertyID: p.ID, Title: fmt.Sprintf("Gutter %d", i)})
			record(err)
		}(i)
	}
	wg.Wait()
	require.Empty(t, errs)

	sent, err := env.Engine.VisibleJobs(env.Ctx, pro, engine.JobQuery{Status: domain.StatusSent})
	require.NoError(t, err)
	assert.Len(t, sent, n)
	for i := 0; i < n; i++ {
		view, err := env.Engine.Checklist(env.Ctx, pro, active[i].ID)
		require.NoError(t, err)
		assert.True(t, view.Items[0].Checked, "job %s", active[i].ID)
	}
}

func TestRecommendedHiddenFromProfessional(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)

	jobs, err := env.Engine.VisibleJobs(env.Ctx, pro, engine.JobQuery{})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	// a recommended job does not exist yet for a professional
	_, err = env.Engine.GetJob(env.Ctx, pro, j.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.Quote(env.Ctx, pro, j.ID, 100)
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.Accept(env.Ctx, pro, j.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.QuoteComparison(env.Ctx, pro, j.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.Checklist(env.Ctx, pro, j.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	_, err = env.Engine.Send(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	jobs, err = env.Engine.VisibleJobs(env.Ctx, pro, engine.JobQuery{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, j.ID, jobs[0].ID)

	all, err := env.Engine.VisibleJobs(env.Ctx, admin, engine.JobQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := env.Engine.VisibleJobs(env.Ctx, auth.Actor{ID: "x", Role: auth.RoleNone}, engine.JobQuery{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestForbiddenBeforeInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)

	// wrong role and wrong status: the role check wins
	_, err := env.Engine.Begin(env.Ctx, owner, j.ID)
	assert.True(t, isForbidden(err), "got %v", err)
	_, err = env.Engine.Send(env.Ctx, admin, j.ID)
	assert.True(t, isForbidden(err), "got %v", err)

	// right role, wrong status
	_, err = env.Engine.Accept(env.Ctx, owner, j.ID)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)

	other := auth.Actor{ID: "owner-2", Role: auth.RoleOwner}
	_, err = env.Engine.Send(env.Ctx, other, j.ID)
	assert.True(t, isForbidden(err), "got %v", err)

	got, err := env.Engine.GetJob(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRecommended, got.Status)
}

func TestQuoteRejectsInvalidPrice(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)
	_, err := env.Engine.Send(env.Ctx, owner, j.ID)
	require.NoError(t, err)

	_, err = env.Engine.Quote(env.Ctx, pro, j.ID, -1)
	require.ErrorIs(t, err, engine.ErrInvalidPrice)

	got, err := env.Engine.GetJob(env.Ctx, pro, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, got.Status)
	assert.Nil(t, got.QuotedPrice)

	j, err = env.Engine.Quote(env.Ctx, pro, j.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQuoted, j.Status)
}

func TestRejectQuoteReturnsToSent(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)
	_, err := env.Engine.Send(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	_, err = env.Engine.Quote(env.Ctx, pro, j.ID, 20000)
	require.NoError(t, err)

	_, err = env.Engine.RejectQuote(env.Ctx, pro, j.ID)
	assert.True(t, isForbidden(err))

	j, err = env.Engine.RejectQuote(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, j.Status)
	assert.Nil(t, j.QuotedPrice)
	assert.Nil(t, j.ProfessionalID)

	// the job is open again for a new quote
	j, err = env.Engine.Quote(env.Ctx, pro2, j.ID, 9000)
	require.NoError(t, err)
	assert.True(t, j.AssignedTo(pro2.ID))

	// Send does not apply to a quoted job
	_, err = env.Engine.Send(env.Ctx, owner, j.ID)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Send(env.Ctx, owner, "missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.GetProperty(env.Ctx, owner, "missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestAccessLinkValidity(t *testing.T) {
	env := newTestEnv(t)
	links, err := magiclink.New("test-secret", "jobline.test")
	require.NoError(t, err)
	env.Engine.Links = links
	p := env.property(t)
	j := env.recommend(t, p.ID)

	_, err = env.Engine.IssueAccessLink(env.Ctx, pro, magiclink.KindJob, j.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.IssueAccessLink(env.Ctx, admin, magiclink.KindJob, j.ID)
	assert.True(t, isForbidden(err))

	tok, err := env.Engine.IssueAccessLink(env.Ctx, owner, magiclink.KindJob, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://jobline.test/access/"+tok.Value, tok.URL)
	assert.Equal(t, t0.Add(magiclink.TTL), tok.ExpiresAt)

	env.Clock.Set(t0.Add(29 * 24 * time.Hour))
	view, err := env.Engine.ResolveAccessLink(env.Ctx, tok.Value)
	require.NoError(t, err)
	require.NotNil(t, view.Job)
	assert.Equal(t, j.ID, view.Job.ID)
	require.NotNil(t, view.Checklist)

	env.Clock.Set(t0.Add(31 * 24 * time.Hour))
	_, err = env.Engine.ResolveAccessLink(env.Ctx, tok.Value)
	assert.ErrorIs(t, err, engine.ErrTokenInvalid)

	_, err = env.Engine.ResolveAccessLink(env.Ctx, "garbage")
	assert.ErrorIs(t, err, engine.ErrTokenInvalid)
}

func TestPropertyAccessLinkShowsReport(t *testing.T) {
	env := newTestEnv(t)
	links, err := magiclink.New("test-secret", "jobline.test")
	require.NoError(t, err)
	env.Engine.Links = links
	p := env.property(t)

	tok, err := env.Engine.IssueAccessLink(env.Ctx, owner, magiclink.KindProperty, p.ID)
	require.NoError(t, err)
	view, err := env.Engine.ResolveAccessLink(env.Ctx, tok.Value)
	require.NoError(t, err)
	require.NotNil(t, view.Property)
	require.NotNil(t, view.Report)
	assert.Equal(t, report.NarrativeNoHistory, view.Report.Narrative.Kind)

	j := env.inProgress(t, p.ID)
	env.checkRequired(t, j.ID)
	_, err = env.Engine.Complete(env.Ctx, pro, j.ID)
	require.NoError(t, err)

	view, err = env.Engine.ResolveAccessLink(env.Ctx, tok.Value)
	require.NoError(t, err)
	require.Len(t, view.Jobs, 1)
	assert.Equal(t, j.ID, view.Jobs[0].ID)
	assert.Equal(t, domain.StatusCompleted, view.Jobs[0].Status)
	assert.Equal(t, 1, view.Report.Stats.CompletedCount)

	// the holder is anonymous: no actor ids or quoted prices
	raw, err := json.Marshal(view)
	require.NoError(t, err)
	for _, leak := range []string{owner.ID, pro.ID, "owner_id", "user_id", "professional_id", "quoted_price"} {
		assert.NotContains(t, string(raw), leak)
	}
}

func TestAccessLinkDisabled(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	_, err := env.Engine.IssueAccessLink(env.Ctx, owner, magiclink.KindProperty, p.ID)
	assert.Error(t, err)
	_, err = env.Engine.ResolveAccessLink(env.Ctx, "anything")
	assert.ErrorIs(t, err, engine.ErrTokenInvalid)
}

type memorySink struct {
	got []report.ExportPayload
	err error
}

func (s *memorySink) Put(_ context.Context, p report.ExportPayload) (report.Artifact, error) {
	if s.err != nil {
		return report.Artifact{}, s.err
	}
	s.got = append(s.got, p)
	return report.Artifact{Bucket: "b", Key: report.ObjectKey(p), URL: "https://minio.test/b/" + report.ObjectKey(p)}, nil
}

func TestExportReport(t *testing.T) {
	env := newTestEnv(t)
	sink := &memorySink{}
	env.Engine.Sink = sink
	p := env.property(t)
	j := env.inProgress(t, p.ID)
	env.checkRequired(t, j.ID)
	_, err := env.Engine.Complete(env.Ctx, pro, j.ID)
	require.NoError(t, err)
	env.recommend(t, p.ID) // open TG3 job

	_, err = env.Engine.ExportReport(env.Ctx, pro, p.ID, report.ExportBank)
	assert.True(t, isForbidden(err))

	out, err := env.Engine.ExportReport(env.Ctx, owner, p.ID, report.ExportBank)
	require.NoError(t, err)
	assert.Equal(t, report.ExportBank, out.Kind)
	assert.Equal(t, 85, out.Stats.HealthScore)
	assert.Equal(t, 8.5, out.Stats.Index)
	assert.Equal(t, 4_000_000.0, out.Stats.CurrentValue)
	require.Len(t, out.History, 1)
	assert.Equal(t, j.ID, out.History[0].JobID)
	require.NotNil(t, out.Artifact)
	assert.Equal(t, p.ID+"/bank-20240301T100000Z.json", out.Artifact.Key)
	require.Len(t, sink.got, 1)

	_, err = env.Engine.ExportReport(env.Ctx, owner, p.ID, report.ExportKind("tax"))
	assert.Error(t, err)

	evts, err := env.Engine.ListEvents(env.Ctx, owner, repo.EventFilter{EntityKind: "property", EntityID: p.ID, Type: "report.exported"})
	require.NoError(t, err)
	assert.Len(t, evts, 1)
}

func TestExportReportFallsBackInline(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Sink = &memorySink{err: errors.New("bucket unreachable")}
	p := env.property(t)

	out, err := env.Engine.ExportReport(env.Ctx, owner, p.ID, report.ExportInsurance)
	require.NoError(t, err)
	assert.Nil(t, out.Artifact)
	assert.Equal(t, 100, out.Stats.HealthScore)
	assert.Empty(t, out.History)
}

type fixedSuggester []domain.Material

func (f fixedSuggester) Suggest(context.Context, domain.Job) []domain.Material { return f }

func TestSuggestMaterials(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)
	j := env.recommend(t, p.ID)

	got, err := env.Engine.SuggestMaterials(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	env.Engine.Materials = fixedSuggester{{Name: "EPDM membrane", Quantity: "40 m2"}}
	got, err = env.Engine.SuggestMaterials(env.Ctx, owner, j.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "EPDM membrane", got[0].Name)

	_, err = env.Engine.SuggestMaterials(env.Ctx, pro, j.ID)
	assert.True(t, isForbidden(err))
}

func TestPropertyVisibility(t *testing.T) {
	env := newTestEnv(t)
	p := env.property(t)

	_, err := env.Engine.CreateProperty(env.Ctx, pro, engine.PropertyOptions{Address: "x"})
	assert.True(t, isForbidden(err))
	_, err = env.Engine.CreateProperty(env.Ctx, owner, engine.PropertyOptions{Address: "  "})
	assert.Error(t, err)

	_, err = env.Engine.GetProperty(env.Ctx, pro, p.ID)
	assert.True(t, isForbidden(err))

	mine, err := env.Engine.ListProperties(env.Ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := env.Engine.ListProperties(env.Ctx, auth.Actor{ID: "owner-2", Role: auth.RoleOwner})
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
