package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"textilepro/internal/domain"
	applog "textilepro/internal/log"
)

// ErrSyncInProgress is returned by Start while a non-terminal job exists.
var ErrSyncInProgress = errors.New("a catalog sync is already in progress")

const DefaultStatusLimit = 10

type JobStore interface {
	JobWriter
	Create(ctx context.Context, job domain.SyncJob) error
	ExpireActive(ctx context.Context, at string, reason string) ([]string, error)
	Active(ctx context.Context) ([]domain.SyncJob, error)
	ListLatest(ctx context.Context, limit int) ([]domain.SyncJob, error)
}

type ProductCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatusReport pairs recent jobs with the live size of the products table,
// so "completed" can be told apart from "actually populated".
type StatusReport struct {
	Jobs         []domain.SyncJob `json:"jobs"`
	ProductCount int              `json:"product_count"`
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager hands jobs to background goroutines and returns their id at once.
type Manager struct {
	jobs     JobStore
	products ProductCounter
	syncer   *Syncer
	now      func() time.Time

	base     context.Context
	shutdown context.CancelFunc

	mu        sync.Mutex
	running   map[string]*run
	lastStart time.Time
}

func NewManager(jobs JobStore, products ProductCounter, syncer *Syncer) *Manager {
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:     jobs,
		products: products,
		syncer:   syncer,
		now:      syncer.now,
		base:     base,
		shutdown: cancel,
		running:  map[string]*run{},
	}
}

// Start creates a job and runs it detached from ctx.
func (m *Manager) Start(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.jobs.Active(ctx)
	if err != nil {
		return "", fmt.Errorf("list active jobs: %w", err)
	}
	if len(active) > 0 {
		return active[0].ID, ErrSyncInProgress
	}
	return m.launch(ctx)
}

// ForceRestart expires every non-terminal job, cancels the ones running in
// this process, then starts a new job.
func (m *Manager) ForceRestart(ctx context.Context) (string, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired, err := m.jobs.ExpireActive(ctx, domain.FormatTime(m.now()), "superseded by force restart")
	if err != nil {
		return "", nil, fmt.Errorf("expire active jobs: %w", err)
	}
	for _, id := range expired {
		if r, ok := m.running[id]; ok {
			r.cancel()
		}
	}
	if len(expired) > 0 {
		applog.Info(nil, "sync.expired", map[string]any{"job_ids": expired})
	}

	id, err := m.launch(ctx)
	if err != nil {
		return "", expired, err
	}
	return id, expired, nil
}

// Status returns the latest jobs, most recent first, and the product count.
func (m *Manager) Status(ctx context.Context, limit int) (StatusReport, error) {
	if limit <= 0 {
		limit = DefaultStatusLimit
	}
	jobs, err := m.jobs.ListLatest(ctx, limit)
	if err != nil {
		return StatusReport{}, fmt.Errorf("list jobs: %w", err)
	}
	count, err := m.products.Count(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("count products: %w", err)
	}
	if jobs == nil {
		jobs = []domain.SyncJob{}
	}
	return StatusReport{Jobs: jobs, ProductCount: count}, nil
}

// Wait blocks until the in-process run of id finishes. Unknown or finished
// ids return immediately.
func (m *Manager) Wait(id string) {
	m.mu.Lock()
	r, ok := m.running[id]
	m.mu.Unlock()
	if ok {
		<-r.done
	}
}

// Close cancels every run and waits for them to record their outcome.
func (m *Manager) Close() {
	m.shutdown()
	m.mu.Lock()
	runs := make([]*run, 0, len(m.running))
	for _, r := range m.running {
		runs = append(runs, r)
	}
	m.mu.Unlock()
	for _, r := range runs {
		<-r.done
	}
}

// launch must be called with mu held.
func (m *Manager) launch(ctx context.Context) (string, error) {
	started, err := m.nextStart(ctx)
	if err != nil {
		return "", err
	}
	job := domain.SyncJob{
		ID:        uuid.NewString(),
		SyncType:  domain.SyncTypeCatalog,
		Status:    domain.JobStarted,
		StartedAt: domain.FormatTime(started),
	}
	if err := m.jobs.Create(ctx, job); err != nil {
		return "", err
	}
	m.lastStart = started

	runCtx, cancel := context.WithCancel(m.base)
	r := &run{cancel: cancel, done: make(chan struct{})}
	m.running[job.ID] = r
	applog.Info(nil, "sync.started", map[string]any{"job_id": job.ID})

	go func() {
		defer close(r.done)
		defer cancel()
		m.syncer.Run(runCtx, job)
		m.mu.Lock()
		delete(m.running, job.ID)
		m.mu.Unlock()
	}()
	return job.ID, nil
}

// nextStart keeps started_at strictly increasing so the newest job always
// sorts first, even when two jobs start within the same millisecond.
func (m *Manager) nextStart(ctx context.Context) (time.Time, error) {
	t := m.now().UTC().Truncate(time.Millisecond)
	floor := m.lastStart
	latest, err := m.jobs.ListLatest(ctx, 1)
	if err != nil {
		return time.Time{}, fmt.Errorf("list jobs: %w", err)
	}
	if len(latest) > 0 {
		if prev, err := time.Parse(domain.TimeLayout, latest[0].StartedAt); err == nil && prev.After(floor) {
			floor = prev
		}
	}
	if !t.After(floor) {
		t = floor.Add(time.Millisecond)
	}
	return t, nil
}
