package catalogsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textilepro/internal/domain"
	"textilepro/internal/repos"
	"textilepro/internal/toptex"
)

// gatedJobs holds every progress write until the gate opens, so a freshly
// launched job can be observed in its initial state.
type gatedJobs struct {
	*repos.SyncJobRepo
	gate chan struct{}
}

func (g *gatedJobs) Save(ctx context.Context, job domain.SyncJob) error {
	select {
	case <-g.gate:
	case <-ctx.Done():
	}
	return g.SyncJobRepo.Save(context.WithoutCancel(ctx), job)
}

func blockingUpstream() *fakeUpstream {
	return &fakeUpstream{fetch: func(ctx context.Context, _ int) (toptex.Download, error) {
		<-ctx.Done()
		return toptex.Download{}, ctx.Err()
	}}
}

func TestForceRestartExpiresDownloadingJob(t *testing.T) {
	db := memdb(t)
	repo := repos.NewSyncJobRepo(db)
	products := repos.NewProductRepo(db)
	gated := &gatedJobs{SyncJobRepo: repo, gate: make(chan struct{})}
	s := NewSyncer(blockingUpstream(), products, gated, testPolicy(), WithSleep((&sleepLog{}).sleep))
	m := NewManager(repo, products, s)
	t.Cleanup(m.Close)
	ctx := context.Background()

	// a downloading job left behind by another process
	newJob(t, repo, "stale", domain.JobDownloading, time.Now())

	id, expired, err := m.ForceRestart(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, expired)

	report, err := m.Status(ctx, 0)
	require.NoError(t, err)
	require.Len(t, report.Jobs, 2)
	assert.Equal(t, id, report.Jobs[0].ID)
	assert.Equal(t, domain.JobStarted, report.Jobs[0].Status)
	assert.Equal(t, "stale", report.Jobs[1].ID)
	assert.Equal(t, domain.JobExpired, report.Jobs[1].Status)
	assert.Equal(t, 0, report.ProductCount)

	close(gated.gate)
}

func TestForceRestartCancelsInProcessRun(t *testing.T) {
	db := memdb(t)
	repo := repos.NewSyncJobRepo(db)
	products := repos.NewProductRepo(db)
	s := NewSyncer(blockingUpstream(), products, repo, testPolicy(), WithSleep((&sleepLog{}).sleep))
	m := NewManager(repo, products, s)
	t.Cleanup(m.Close)
	ctx := context.Background()

	first, err := m.Start(ctx)
	require.NoError(t, err)

	_, err = m.Start(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	second, expired, err := m.ForceRestart(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first}, expired)

	m.Wait(first)
	old, err := repo.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, domain.JobExpired, old.Status)

	report, err := m.Status(ctx, 1)
	require.NoError(t, err)
	require.Len(t, report.Jobs, 1)
	assert.Equal(t, second, report.Jobs[0].ID)
}

func TestStartRunsToCompletion(t *testing.T) {
	db := memdb(t)
	repo := repos.NewSyncJobRepo(db)
	products := repos.NewProductRepo(db)
	payload := exportPayload(7, 1)
	up := &fakeUpstream{fetch: func(context.Context, int) (toptex.Download, error) {
		return toptex.Download{Body: payload}, nil
	}}
	p := testPolicy()
	p.MinFileSize = 1
	m := NewManager(repo, products, NewSyncer(up, products, repo, p, WithSleep((&sleepLog{}).sleep)))
	t.Cleanup(m.Close)
	ctx := context.Background()

	id, err := m.Start(ctx)
	require.NoError(t, err)
	m.Wait(id)

	report, err := m.Status(ctx, 10)
	require.NoError(t, err)
	require.Len(t, report.Jobs, 1)
	assert.Equal(t, domain.JobCompleted, report.Jobs[0].Status)
	assert.Equal(t, 7, report.Jobs[0].ProductsCount)
	assert.Equal(t, 7, report.ProductCount)

	// a finished job no longer blocks a new start
	id2, err := m.Start(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
	m.Wait(id2)
}

func TestStartedAtStrictlyIncreases(t *testing.T) {
	db := memdb(t)
	repo := repos.NewSyncJobRepo(db)
	products := repos.NewProductRepo(db)
	frozen := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewSyncer(blockingUpstream(), products, repo, testPolicy(),
		WithSleep((&sleepLog{}).sleep), WithClock(func() time.Time { return frozen }))
	m := NewManager(repo, products, s)
	t.Cleanup(m.Close)
	ctx := context.Background()

	a, _, err := m.ForceRestart(ctx)
	require.NoError(t, err)
	b, _, err := m.ForceRestart(ctx)
	require.NoError(t, err)

	ja, err := repo.Get(ctx, a)
	require.NoError(t, err)
	jb, err := repo.Get(ctx, b)
	require.NoError(t, err)
	assert.Less(t, ja.StartedAt, jb.StartedAt)
}
