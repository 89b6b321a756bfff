package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"textilepro/internal/domain"
	applog "textilepro/internal/log"
	"textilepro/internal/repos"
	"textilepro/internal/toptex"
)

var (
	ErrMaxRetries = errors.New("max retries exceeded")
	// ErrMalformedExport wraps any export payload that cannot be decoded.
	ErrMalformedExport = errors.New("malformed export")
	// ErrJobSuperseded stops a runner whose job was expired underneath it.
	ErrJobSuperseded = errors.New("sync job superseded")
)

// Upstream is the part of the supplier API the job drives.
type Upstream interface {
	Authenticate(ctx context.Context) (string, error)
	RequestExport(ctx context.Context, token string) (string, error)
	FetchExport(ctx context.Context, link string) (toptex.Download, error)
}

type ProductWriter interface {
	UpsertBatch(ctx context.Context, products []domain.Product) (int, error)
}

type JobWriter interface {
	Save(ctx context.Context, job domain.SyncJob) error
}

// Archiver keeps a copy of a downloaded export. Failures never fail the job.
type Archiver interface {
	Archive(ctx context.Context, jobID string, body []byte) error
}

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Syncer runs one job from authentication to the final upsert.
type Syncer struct {
	upstream Upstream
	products ProductWriter
	jobs     JobWriter
	archiver Archiver
	policy   Policy

	sleep SleepFunc
	now   func() time.Time
}

type SyncerOption func(*Syncer)

func WithSleep(f SleepFunc) SyncerOption          { return func(s *Syncer) { s.sleep = f } }
func WithClock(now func() time.Time) SyncerOption { return func(s *Syncer) { s.now = now } }
func WithArchiver(a Archiver) SyncerOption        { return func(s *Syncer) { s.archiver = a } }

func NewSyncer(up Upstream, products ProductWriter, jobs JobWriter, policy Policy, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		upstream: up,
		products: products,
		jobs:     jobs,
		policy:   policy,
		sleep:    sleepCtx,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run drives job to a terminal state and returns the last recorded version.
// Failures end up on the job record; nothing is returned to the caller.
func (s *Syncer) Run(ctx context.Context, job domain.SyncJob) domain.SyncJob {
	start := s.now()
	if t, err := time.Parse(domain.TimeLayout, job.StartedAt); err == nil {
		start = t
	}

	err := s.run(ctx, &job)
	if errors.Is(err, ErrJobSuperseded) {
		applog.Info(nil, "sync.superseded", map[string]any{"job_id": job.ID, "status": job.Status})
		return job
	}

	end := s.now()
	job.CompletedAt = domain.FormatTime(end)
	job.FinishedInMs = end.Sub(start).Milliseconds()
	if err != nil {
		job.Status = domain.JobFailed
		job.ErrorMessage = err.Error()
	} else {
		job.Status = domain.JobCompleted
		job.ErrorMessage = ""
	}

	// the run context may be cancelled by now; the final write must still land
	saveErr := s.save(context.WithoutCancel(ctx), &job)
	switch {
	case errors.Is(saveErr, ErrJobSuperseded):
		applog.Info(nil, "sync.superseded", map[string]any{"job_id": job.ID})
	case saveErr != nil:
		applog.Error(nil, "sync.save_final", saveErr, map[string]any{"job_id": job.ID})
	case err != nil:
		applog.Error(nil, "sync.failed", err, map[string]any{"job_id": job.ID, "products_count": job.ProductsCount})
	default:
		applog.Info(nil, "sync.completed", map[string]any{
			"job_id": job.ID, "products_count": job.ProductsCount, "finished_in_ms": job.FinishedInMs,
		})
	}
	return job
}

func (s *Syncer) run(ctx context.Context, job *domain.SyncJob) error {
	if err := s.transition(ctx, job, domain.JobAuthenticating); err != nil {
		return err
	}
	token, err := s.upstream.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	for cycle := 1; cycle <= s.policy.ExportCycles; cycle++ {
		body, err := s.exportCycle(ctx, job, token, cycle)
		if err != nil {
			return err
		}
		if body == nil {
			continue
		}
		return s.ingest(ctx, job, body)
	}
	return ErrMaxRetries
}

// exportCycle requests one export link and polls it. A nil body with a nil
// error means the cycle was used up and a fresh export should be requested.
func (s *Syncer) exportCycle(ctx context.Context, job *domain.SyncJob, token string, cycle int) ([]byte, error) {
	if err := s.transition(ctx, job, domain.JobRequestingCatalog); err != nil {
		return nil, err
	}
	link, err := s.upstream.RequestExport(ctx, token)
	job.ExportAttempts++
	if err != nil {
		_ = s.save(ctx, job)
		return nil, fmt.Errorf("request export: %w", err)
	}
	job.S3Link = link
	job.Status = domain.JobWaitingForFile
	if err := s.save(ctx, job); err != nil {
		return nil, err
	}
	applog.Info(nil, "sync.export_requested", map[string]any{"job_id": job.ID, "cycle": cycle})

	if err := s.sleep(ctx, s.policy.InitialWait); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.policy.PollAttempts; attempt++ {
		if err := s.transition(ctx, job, domain.JobDownloading); err != nil {
			return nil, err
		}
		dl, err := s.upstream.FetchExport(ctx, link)
		job.S3PollCount++

		switch {
		case errors.Is(err, toptex.ErrExportExpired):
			applog.Info(nil, "sync.link_expired", map[string]any{"job_id": job.ID, "cycle": cycle, "attempt": attempt})
			if err := s.save(ctx, job); err != nil {
				return nil, err
			}
			return nil, nil
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			applog.Warn(nil, "sync.poll_failed", err, map[string]any{"job_id": job.ID, "cycle": cycle, "attempt": attempt})
		default:
			job.S3ContentLength = dl.ContentLength
			job.DownloadBytes = int64(len(dl.Body))
			if job.DownloadBytes >= s.policy.MinFileSize {
				if err := s.save(ctx, job); err != nil {
					return nil, err
				}
				return dl.Body, nil
			}
			applog.Info(nil, "sync.file_incomplete", map[string]any{
				"job_id": job.ID, "attempt": attempt, "bytes": job.DownloadBytes, "min_bytes": s.policy.MinFileSize,
			})
		}

		job.Status = domain.JobWaitingForFile
		if err := s.save(ctx, job); err != nil {
			return nil, err
		}
		if attempt < s.policy.PollAttempts {
			if err := s.sleep(ctx, s.policy.RetryWait); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func (s *Syncer) ingest(ctx context.Context, job *domain.SyncJob, body []byte) error {
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, job.ID, body); err != nil {
			applog.Warn(nil, "sync.archive_failed", err, map[string]any{"job_id": job.ID})
		}
	}

	if err := s.transition(ctx, job, domain.JobSyncing); err != nil {
		return err
	}
	recs, err := toptex.DecodeProducts(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}

	size := s.policy.BatchSize
	if size <= 0 {
		size = DefaultPolicy().BatchSize
	}
	batch := make([]domain.Product, 0, size)
	skipped := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.products.UpsertBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
		job.ProductsCount += n
		batch = batch[:0]
		return s.save(ctx, job)
	}
	for _, rec := range recs {
		p, ok := toptex.NormalizeProduct(rec)
		if !ok {
			skipped++
			continue
		}
		batch = append(batch, p)
		if len(batch) == size {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if skipped > 0 {
		applog.Info(nil, "sync.skipped_records", map[string]any{"job_id": job.ID, "skipped": skipped})
	}
	return nil
}

func (s *Syncer) transition(ctx context.Context, job *domain.SyncJob, to domain.JobStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if job.Status == to {
		return nil
	}
	job.Status = to
	return s.save(ctx, job)
}

func (s *Syncer) save(ctx context.Context, job *domain.SyncJob) error {
	err := s.jobs.Save(ctx, *job)
	if errors.Is(err, repos.ErrJobNotWritable) {
		return ErrJobSuperseded
	}
	return err
}
