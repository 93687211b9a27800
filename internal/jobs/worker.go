package jobs

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"reign/internal/admin"
	"reign/internal/docsync"
	"reign/internal/logging"
)

const (
	DefaultInterval = 800 * time.Millisecond
	maxBackoff      = 600 * time.Second
)

type Worker struct {
	ID    string
	Queue Queue
	Docs  docsync.Repository
	Stats admin.StatsStore

	// Keep is how many revisions per user survive pruning; 0 disables it.
	Keep     int
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *zap.Logger
	Metrics  *Metrics
}

func (w *Worker) clock() clockwork.Clock {
	if w.Clock == nil {
		return clockwork.NewRealClock()
	}
	return w.Clock
}

func (w *Worker) log() *zap.Logger {
	return logging.OrNop(w.Logger).Named("worker").With(zap.String("worker", w.ID))
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := w.clock().NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			w.RunOnce(ctx)
		}
	}
}

// RunOnce claims and handles at most one due job. It reports whether a job
// was claimed.
func (w *Worker) RunOnce(ctx context.Context) bool {
	job, err := w.Queue.Claim(ctx, w.ID)
	if err != nil {
		w.log().Warn("claim failed", zap.Error(err))
		return false
	}
	if job == nil {
		return false
	}
	w.handle(ctx, job)
	return true
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeDocumentSynced:
		w.handleDocumentSynced(ctx, job)
	default:
		w.fail(ctx, job, "unknown job type")
	}
}

func (w *Worker) handleDocumentSynced(ctx context.Context, job *Job) {
	doc, err := w.Docs.Current(ctx, job.UserID)
	if errors.Is(err, docsync.ErrNotFound) {
		// user deleted since the upload
		w.done(ctx, job)
		return
	}
	if err != nil {
		w.retry(ctx, job, "db read error: "+err.Error())
		return
	}

	appData, err := docsync.Decode(doc)
	if err != nil {
		w.fail(ctx, job, err.Error())
		return
	}

	stats := admin.ComputeStats(job.UserID, appData, doc.Version, doc.UpdatedAt)
	if err := w.Stats.Upsert(ctx, stats); err != nil {
		w.retry(ctx, job, "stats write error: "+err.Error())
		return
	}

	if w.Keep > 0 {
		pruned, err := w.Docs.Prune(ctx, job.UserID, w.Keep)
		if err != nil {
			w.retry(ctx, job, "prune error: "+err.Error())
			return
		}
		if pruned > 0 {
			w.log().Debug("pruned revisions", zap.Uint64("user", job.UserID), zap.Int64("count", pruned))
		}
	}

	w.log().Debug("stats refreshed",
		zap.Uint64("user", job.UserID),
		zap.Uint64("version", doc.Version),
		zap.Int("completionRate", stats.CompletionRate))
	w.done(ctx, job)
}

func (w *Worker) done(ctx context.Context, job *Job) {
	if err := w.Queue.MarkDone(ctx, job.ID); err != nil {
		w.log().Warn("mark done failed", zap.Uint64("job", job.ID), zap.Error(err))
	}
	w.Metrics.observe(job.Type, "done")
}

func (w *Worker) fail(ctx context.Context, job *Job, errMsg string) {
	w.log().Error("job failed", zap.Uint64("job", job.ID), zap.String("type", job.Type), zap.String("error", errMsg))
	if err := w.Queue.MarkFailed(ctx, job.ID, errMsg); err != nil {
		w.log().Warn("mark failed failed", zap.Uint64("job", job.ID), zap.Error(err))
	}
	w.Metrics.observe(job.Type, "failed")
}

func (w *Worker) retry(ctx context.Context, job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		w.fail(ctx, job, errMsg)
		return
	}

	next := w.clock().Now().Add(Backoff(attempts))
	w.log().Warn("job will retry", zap.Uint64("job", job.ID), zap.Int("attempts", attempts), zap.Time("runAt", next), zap.String("error", errMsg))
	if err := w.Queue.RetryLater(ctx, job.ID, attempts, next, errMsg); err != nil {
		w.log().Warn("reschedule failed", zap.Uint64("job", job.ID), zap.Error(err))
	}
	w.Metrics.observe(job.Type, "retry")
}

// Backoff is 2^attempts seconds, capped at ten minutes.
func Backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), maxBackoff.Seconds())
	return time.Duration(sec) * time.Second
}
