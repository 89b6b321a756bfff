package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"textilepro/internal/domain"
)

// ErrJobNotWritable means the job is unknown or was expired by a force
// restart, so its runner must stop reporting progress.
var ErrJobNotWritable = errors.New("sync job not writable")

type SyncJobRepo struct{ db *sqlx.DB }

func NewSyncJobRepo(db *sqlx.DB) *SyncJobRepo { return &SyncJobRepo{db: db} }

const syncJobColumns = `
	id, sync_type, status, COALESCE(s3_link,'') AS s3_link, export_attempts, s3_poll_count,
	s3_content_length, download_bytes, products_count, COALESCE(error_message,'') AS error_message,
	started_at, COALESCE(completed_at,'') AS completed_at, COALESCE(finished_in_ms,0) AS finished_in_ms`

func (r *SyncJobRepo) Create(ctx context.Context, job domain.SyncJob) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO sync_jobs(id, sync_type, status, started_at)
		VALUES(?, ?, ?, ?)
	`), job.ID, job.SyncType, string(job.Status), job.StartedAt)
	if err != nil {
		return fmt.Errorf("create sync job: %w", err)
	}
	return nil
}

// Save writes every mutable field of the job unless the stored row is
// already expired.
func (r *SyncJobRepo) Save(ctx context.Context, job domain.SyncJob) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE sync_jobs SET
		  status = ?,
		  s3_link = ?,
		  export_attempts = ?,
		  s3_poll_count = ?,
		  s3_content_length = ?,
		  download_bytes = ?,
		  products_count = ?,
		  error_message = ?,
		  completed_at = ?,
		  finished_in_ms = ?
		WHERE id = ? AND status <> ?
	`), string(job.Status), nullable(job.S3Link), job.ExportAttempts, job.S3PollCount,
		job.S3ContentLength, job.DownloadBytes, job.ProductsCount, nullable(job.ErrorMessage),
		nullable(job.CompletedAt), nullableInt(job.FinishedInMs), job.ID, string(domain.JobExpired))
	if err != nil {
		return fmt.Errorf("save sync job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return ErrJobNotWritable
	}
	return nil
}

// ExpireActive marks every non-terminal job expired and returns their ids.
func (r *SyncJobRepo) ExpireActive(ctx context.Context, at string, reason string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	q, args, err := sqlx.In(`SELECT id FROM sync_jobs WHERE status IN (?)`, statusStrings(domain.ActiveJobStatuses))
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := tx.SelectContext(ctx, &ids, tx.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("select active jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	q, args, err = sqlx.In(`UPDATE sync_jobs SET status = ?, error_message = ?, completed_at = ? WHERE id IN (?)`,
		string(domain.JobExpired), reason, at, ids)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("expire jobs: %w", err)
	}
	return ids, tx.Commit()
}

// Active returns the non-terminal jobs, most recent first.
func (r *SyncJobRepo) Active(ctx context.Context) ([]domain.SyncJob, error) {
	q, args, err := sqlx.In(`SELECT `+syncJobColumns+` FROM sync_jobs WHERE status IN (?) ORDER BY started_at DESC`,
		statusStrings(domain.ActiveJobStatuses))
	if err != nil {
		return nil, err
	}
	var out []domain.SyncJob
	err = r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...)
	return out, err
}

func (r *SyncJobRepo) Get(ctx context.Context, id string) (domain.SyncJob, error) {
	var j domain.SyncJob
	err := r.db.GetContext(ctx, &j, r.db.Rebind(`SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = ?`), id)
	return j, err
}

func (r *SyncJobRepo) ListLatest(ctx context.Context, limit int) ([]domain.SyncJob, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []domain.SyncJob
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
		SELECT `+syncJobColumns+`
		FROM sync_jobs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`), limit)
	return out, err
}

func statusStrings(ss []domain.JobStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
