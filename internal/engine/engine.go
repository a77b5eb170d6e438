package engine

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobline/internal/config"
	"jobline/internal/domain"
	"jobline/internal/engine/auth"
	"jobline/internal/events"
	"jobline/internal/logging"
	"jobline/internal/magiclink"
	"jobline/internal/materials"
	"jobline/internal/repo"
	"jobline/internal/report"
)

var (
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrChecklistIncomplete = errors.New("checklist incomplete")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrTokenInvalid        = errors.New("access token invalid")
	ErrNoQuote             = errors.New("job has no quote")
	ErrNotFound            = repo.ErrNotFound
)

// Store is the job persistence contract the engine relies on.
type Store interface {
	ListJobs(ctx context.Context, f repo.JobFilter) ([]domain.Job, error)
	GetJob(ctx context.Context, id string) (domain.Job, error)
	UpdateJob(ctx context.Context, tx *sql.Tx, id string, expect domain.Status, patch repo.JobPatch) (domain.Job, error)
}

var _ Store = repo.Repo{}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	// Links issues and validates magic links; nil disables them.
	Links *magiclink.Issuer
	// Sink receives export payloads; nil keeps exports inline.
	Sink      report.Sink
	Materials materials.Suggester
	Logger    *zap.Logger
	Now       func() time.Time

	locks *jobLocks
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:        db,
		Repo:      repo.Repo{DB: db},
		Events:    events.Writer{DB: db},
		Config:    cfg,
		Materials: materials.Disabled{},
		Logger:    zap.NewNop(),
		Now:       time.Now,
		locks:     newJobLocks(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() *zap.Logger {
	return logging.OrNop(e.Logger)
}

// lockJob serializes mutations of one job within this process.
func (e Engine) lockJob(id string) func() {
	if e.locks == nil {
		return func() {}
	}
	return e.locks.lock(id)
}

type jobLock struct {
	mu   sync.Mutex
	refs int
}

type jobLocks struct {
	mu sync.Mutex
	m  map[string]*jobLock
}

func newJobLocks() *jobLocks {
	return &jobLocks{m: make(map[string]*jobLock)}
}

func (l *jobLocks) lock(id string) func() {
	l.mu.Lock()
	jl, ok := l.m[id]
	if !ok {
		jl = &jobLock{}
		l.m[id] = jl
	}
	jl.refs++
	l.mu.Unlock()

	jl.mu.Lock()
	return func() {
		jl.mu.Unlock()
		l.mu.Lock()
		jl.refs--
		if jl.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

// resultLabel classifies an operation error for metrics.
func resultLabel(err error) string {
	var fe auth.ForbiddenError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &fe):
		return "forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrChecklistIncomplete):
		return "checklist_incomplete"
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
