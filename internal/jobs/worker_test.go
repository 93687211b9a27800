package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"reign/internal/admin"
	"reign/internal/docsync"
	"reign/internal/journal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type brokenStats struct{ admin.StatsStore }

func (brokenStats) Upsert(context.Context, admin.UserStats) error { return errors.New("db down") }

type fixture struct {
	clock   *clockwork.FakeClock
	queue   *MemoryQueue
	docs    *docsync.MemoryRepo
	stats   *admin.MemoryStats
	metrics *Metrics
	worker  *Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	f := &fixture{
		clock:   clock,
		queue:   NewMemoryQueue(clock),
		docs:    docsync.NewMemoryRepo(),
		stats:   admin.NewMemoryStats(),
		metrics: m,
	}
	f.worker = &Worker{
		ID:      "w1",
		Queue:   f.queue,
		Docs:    f.docs,
		Stats:   f.stats,
		Keep:    2,
		Clock:   clock,
		Metrics: m,
	}
	return f
}

func (f *fixture) upload(t *testing.T, userID uint64, doc *journal.Document) {
	t.Helper()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	_, _, err = f.docs.Save(context.Background(), docsync.SaveInput{UserID: userID, Payload: b})
	require.NoError(t, err)
}

func TestEnqueueKeepsOnePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.queue.EnqueueDocumentSynced(ctx, 1))
	require.NoError(t, f.queue.EnqueueDocumentSynced(ctx, 1))
	require.NoError(t, f.queue.EnqueueDocumentSynced(ctx, 2))

	first, err := f.queue.Claim(ctx, "w")
	require.NoError(t, err)
	second, err := f.queue.Claim(ctx, "w")
	require.NoError(t, err)
	third, err := f.queue.Claim(ctx, "w")
	require.NoError(t, err)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Nil(t, third)
	assert.ElementsMatch(t, []uint64{1, 2}, []uint64{first.UserID, second.UserID})

	require.NoError(t, f.queue.EnqueueDocumentSynced(ctx, 1))
	again, err := f.queue.Claim(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, again, "a running job does not block a new refresh")
}

func TestDocumentSyncedRefreshesStatsAndPrunes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := journal.Default()
	_, err := doc.AddTask("2024-05-01", journal.Task{Title: "a", Category: "work", Status: journal.StatusCompleted})
	require.NoError(t, err)
	_, err = doc.AddTask("2024-05-01", journal.Task{Title: "b", Category: "work"})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		f.upload(t, 7, doc)
	}
	require.NoError(t, f.queue.EnqueueDocumentSynced(ctx, 7))

	assert.True(t, f.worker.RunOnce(ctx))
	assert.False(t, f.worker.RunOnce(ctx))

	st, err := f.stats.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalTasks)
	assert.Equal(t, 50, st.CompletionRate)
	assert.Equal(t, []string{"work"}, []string(st.TopCategories))
	assert.Equal(t, uint64(4), st.DocumentVersion)

	revs, err := f.docs.Revisions(ctx, 7, 0)
	require.NoError(t, err)
	assert.Len(t, revs, 2)

	job, ok := f.queue.Get(1)
	require.True(t, ok)
	assert.Equal(t, StatusDone, job.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.processed.WithLabelValues(TypeDocumentSynced, "done")))
}

func TestMissingDocumentCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.queue.EnqueueDocumentSynced(ctx, 3))

	assert.True(t, f.worker.RunOnce(ctx))
	job, _ := f.queue.Get(1)
	assert.Equal(t, StatusDone, job.Status)
}

func TestRetryWithBackoffThenFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.worker.Stats = brokenStats{}
	f.upload(t, 1, journal.Default())
	require.NoError(t, f.queue.EnqueueDocumentSynced(ctx, 1))

	start := f.clock.Now()
	require.True(t, f.worker.RunOnce(ctx))
	job, _ := f.queue.Get(1)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, start.Add(2*time.Second), job.RunAt)
	require.NotNil(t, job.LastError)

	assert.False(t, f.worker.RunOnce(ctx), "not due yet")

	for i := 2; i <= defaultMaxAttempts; i++ {
		f.clock.Advance(Backoff(i - 1))
		require.True(t, f.worker.RunOnce(ctx), "attempt %d", i)
	}
	job, _ = f.queue.Get(1)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.processed.WithLabelValues(TypeDocumentSynced, "failed")))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 256*time.Second, Backoff(8))
	assert.Equal(t, 600*time.Second, Backoff(12))
}

func TestRunPollsUntilCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.upload(t, 1, journal.Default())
	require.NoError(t, f.queue.EnqueueDocumentSynced(ctx, 1))

	stopped := make(chan struct{})
	go func() {
		f.worker.Run(ctx)
		close(stopped)
	}()

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(DefaultInterval)
	require.Eventually(t, func() bool {
		_, err := f.stats.Get(context.Background(), 1)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped
}
