package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textilepro/internal/domain"
	"textilepro/internal/repos"
	"textilepro/internal/toptex"
)

type fakeUpstream struct {
	mu         sync.Mutex
	authErr    error
	exportErr  error
	fetch      func(ctx context.Context, call int) (toptex.Download, error)
	links      int
	fetchCalls int
}

func (f *fakeUpstream) Authenticate(ctx context.Context) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return "tok", nil
}

func (f *fakeUpstream) RequestExport(ctx context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exportErr != nil {
		return "", f.exportErr
	}
	f.links++
	return fmt.Sprintf("https://files.example/export-%d.json", f.links), nil
}

func (f *fakeUpstream) FetchExport(ctx context.Context, link string) (toptex.Download, error) {
	f.mu.Lock()
	f.fetchCalls++
	call := f.fetchCalls
	f.mu.Unlock()
	return f.fetch(ctx, call)
}

type recordingWriter struct {
	inner   ProductWriter
	batches []int
}

func (w *recordingWriter) UpsertBatch(ctx context.Context, products []domain.Product) (int, error) {
	w.batches = append(w.batches, len(products))
	return w.inner.UpsertBatch(ctx, products)
}

type fakeArchiver struct {
	keys []string
	err  error
}

func (a *fakeArchiver) Archive(_ context.Context, jobID string, body []byte) error {
	a.keys = append(a.keys, ArchiveKey(jobID))
	return a.err
}

type sleepLog struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func testPolicy() Policy {
	p := DefaultPolicy()
	p.MinFileSize = 1024
	return p
}

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newJob(t *testing.T, jobs *repos.SyncJobRepo, id string, status domain.JobStatus, started time.Time) domain.SyncJob {
	t.Helper()
	job := domain.SyncJob{ID: id, SyncType: domain.SyncTypeCatalog, Status: domain.JobStarted, StartedAt: domain.FormatTime(started)}
	require.NoError(t, jobs.Create(context.Background(), job))
	if status != domain.JobStarted {
		job.Status = status
		require.NoError(t, jobs.Save(context.Background(), job))
	}
	return job
}

// exportPayload builds a JSON export with valid SKU-bearing records plus a
// few records without any SKU.
func exportPayload(valid, invalid int) []byte {
	var b strings.Builder
	b.WriteString(`{"products":[`)
	for i := 0; i < valid+invalid; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		if i < valid {
			fmt.Fprintf(&b, `{"catalogReference":"REF%04d","designation":{"fr":"Produit %d"},"brand":"Kariban","family":"T-shirts"}`, i, i)
		} else {
			fmt.Fprintf(&b, `{"designation":"sans reference %d"}`, i)
		}
	}
	b.WriteString(`]}`)
	return []byte(b.String())
}

func TestExpiredLinkOnEveryPollExhaustsRetries(t *testing.T) {
	db := memdb(t)
	jobs := repos.NewSyncJobRepo(db)
	products := repos.NewProductRepo(db)
	up := &fakeUpstream{fetch: func(context.Context, int) (toptex.Download, error) {
		return toptex.Download{}, toptex.ErrExportExpired
	}}
	sl := &sleepLog{}
	s := NewSyncer(up, products, jobs, testPolicy(), WithSleep(sl.sleep))

	job := newJob(t, jobs, "j-403", domain.JobStarted, time.Now())
	got := s.Run(context.Background(), job)

	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "max retries")
	assert.Equal(t, 3, got.ExportAttempts)
	assert.Equal(t, 3, got.S3PollCount)
	assert.NotEmpty(t, got.CompletedAt)

	stored, err := jobs.Get(context.Background(), "j-403")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, stored.Status)
	assert.Equal(t, "https://files.example/export-3.json", stored.S3Link)
	assert.Equal(t, []time.Duration{5 * time.Minute, 5 * time.Minute, 5 * time.Minute}, sl.waits)
}

func TestParsesOnlyAfterFileReachesThreshold(t *testing.T) {
	db := memdb(t)
	jobs := repos.NewSyncJobRepo(db)
	products := repos.NewProductRepo(db)
	payload := exportPayload(250, 3)
	up := &fakeUpstream{fetch: func(_ context.Context, call int) (toptex.Download, error) {
		if call <= 2 {
			return toptex.Download{Body: []byte(`{"products":[`), ContentLength: 13}, nil
		}
		return toptex.Download{Body: payload, ContentLength: int64(len(payload))}, nil
	}}
	rec := &recordingWriter{inner: products}
	arch := &fakeArchiver{}
	sl := &sleepLog{}
	s := NewSyncer(up, rec, jobs, testPolicy(), WithSleep(sl.sleep), WithArchiver(arch))

	job := newJob(t, jobs, "j-ok", domain.JobStarted, time.Now())
	got := s.Run(context.Background(), job)

	assert.Equal(t, domain.JobCompleted, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Equal(t, 250, got.ProductsCount)
	assert.Equal(t, 3, got.S3PollCount)
	assert.Equal(t, 1, got.ExportAttempts)
	assert.Equal(t, int64(len(payload)), got.DownloadBytes)
	assert.Equal(t, []int{100, 100, 50}, rec.batches)
	for _, n := range rec.batches {
		assert.LessOrEqual(t, n, 100)
	}
	assert.Equal(t, []time.Duration{5 * time.Minute, time.Minute, time.Minute}, sl.waits)
	assert.Equal(t, []string{"exports/j-ok.json"}, arch.keys)

	count, err := products.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 250, count)
}

func TestTransientErrorsRetrySameLink(t *testing.T) {
	db := memdb(t)
	jobs := repos.NewSyncJobRepo(db)
	products := repos.NewProductRepo(db)
	payload := exportPayload(20, 0)
	up := &fakeUpstream{fetch: func(_ context.Context, call int) (toptex.Download, error) {
		if call == 1 {
			return toptex.Download{}, &toptex.APIError{Op: "fetch export", StatusCode: 503}
		}
		return toptex.Download{Body: payload}, nil
	}}
	p := testPolicy()
	p.MinFileSize = 10
	s := NewSyncer(up, products, jobs, p, WithSleep((&sleepLog{}).sleep), WithArchiver(&fakeArchiver{err: errors.New("bucket gone")}))

	got := s.Run(context.Background(), newJob(t, jobs, "j-503", domain.JobStarted, time.Now()))
	assert.Equal(t, domain.JobCompleted, got.Status)
	assert.Equal(t, 1, up.links)
	assert.Equal(t, 20, got.ProductsCount)
}

func TestAuthenticationFailureIsFatal(t *testing.T) {
	db := memdb(t)
	jobs := repos.NewSyncJobRepo(db)
	up := &fakeUpstream{authErr: &toptex.APIError{Op: "authenticate", StatusCode: 401, Message: "bad key"}}
	s := NewSyncer(up, repos.NewProductRepo(db), jobs, testPolicy(), WithSleep((&sleepLog{}).sleep))

	got := s.Run(context.Background(), newJob(t, jobs, "j-auth", domain.JobStarted, time.Now()))
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "authenticate")
	assert.Zero(t, up.links)
}

func TestMalformedExportFailsJob(t *testing.T) {
	db := memdb(t)
	jobs := repos.NewSyncJobRepo(db)
	products := repos.NewProductRepo(db)
	up := &fakeUpstream{fetch: func(context.Context, int) (toptex.Download, error) {
		return toptex.Download{Body: []byte(strings.Repeat(" ", 64) + `{"count":12}`)}, nil
	}}
	p := testPolicy()
	p.MinFileSize = 10
	s := NewSyncer(up, products, jobs, p, WithSleep((&sleepLog{}).sleep))

	got := s.Run(context.Background(), newJob(t, jobs, "j-bad", domain.JobStarted, time.Now()))
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, ErrMalformedExport.Error())
}

type failingWriter struct {
	inner  ProductWriter
	failAt int
	calls  int
}

func (w *failingWriter) UpsertBatch(ctx context.Context, products []domain.Product) (int, error) {
	w.calls++
	if w.calls == w.failAt {
		return 0, errors.New("disk full")
	}
	return w.inner.UpsertBatch(ctx, products)
}

func TestFailedBatchKeepsCommittedBatches(t *testing.T) {
	db := memdb(t)
	jobs := repos.NewSyncJobRepo(db)
	products := repos.NewProductRepo(db)
	body := exportPayload(250, 0)
	up := &fakeUpstream{fetch: func(context.Context, int) (toptex.Download, error) {
		return toptex.Download{Body: body, ContentLength: int64(len(body))}, nil
	}}
	w := &failingWriter{inner: products, failAt: 2}
	s := NewSyncer(up, w, jobs, testPolicy(), WithSleep((&sleepLog{}).sleep))

	got := s.Run(context.Background(), newJob(t, jobs, "j-partial", domain.JobStarted, time.Now()))
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "disk full")
	assert.Equal(t, 100, got.ProductsCount)
	assert.Equal(t, 2, w.calls)

	stored, err := jobs.Get(context.Background(), "j-partial")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, stored.Status)
	assert.Equal(t, 100, stored.ProductsCount)

	n, err := products.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}

func TestFinishedInMsMeasuresFromStart(t *testing.T) {
	db := memdb(t)
	jobs := repos.NewSyncJobRepo(db)
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	up := &fakeUpstream{authErr: errors.New("boom")}
	s := NewSyncer(up, repos.NewProductRepo(db), jobs, testPolicy(),
		WithClock(func() time.Time { return start.Add(1500 * time.Millisecond) }))

	got := s.Run(context.Background(), newJob(t, jobs, "j-time", domain.JobStarted, start))
	assert.Equal(t, int64(1500), got.FinishedInMs)
	assert.Equal(t, "2026-03-01T08:00:01.500Z", got.CompletedAt)
}
