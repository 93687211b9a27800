package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Queue is the job table as the worker and the sync service see it.
type Queue interface {
	EnqueueDocumentSynced(ctx context.Context, userID uint64) error
	Claim(ctx context.Context, workerID string) (*Job, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error
}

type Repo struct {
	DB *gorm.DB
}

// EnqueueDocumentSynced queues a stats refresh for userID. A refresh that is
// still pending already covers the newest revision, so at most one is kept.
func (r *Repo) EnqueueDocumentSynced(ctx context.Context, userID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&Job{}).
			Where("user_id=? AND type=? AND status=?", userID, TypeDocumentSynced, StatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return nil
		}

		now := time.Now()
		j := Job{
			UserID:      userID,
			Type:        TypeDocumentSynced,
			Payload:     []byte(`{}`),
			RunAt:       now,
			Status:      StatusPending,
			MaxAttempts: defaultMaxAttempts,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Create(&j).Error
	})
}

// Claim one due job atomically using SKIP LOCKED.
// Works on Postgres.
func (r *Repo) Claim(ctx context.Context, workerID string) (*Job, error) {
	var job Job
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// requeue jobs whose worker died mid-run
		if err := tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`).Error; err != nil {
			return err
		}

		// FOR UPDATE SKIP LOCKED ensures no double-claim
		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Exec(`update jobs set status='DONE', locked_by=null, locked_at=null, updated_at=now() where id=?`, id).Error
}

func (r *Repo) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`update jobs set status='FAILED', last_error=?, updated_at=now() where id=?`, errMsg, id).Error
}

func (r *Repo) RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`
update jobs
set status='PENDING',
    attempts=?,
    run_at=?,
    locked_by=null,
    locked_at=null,
    last_error=?,
    updated_at=now()
where id=?`, attempts, runAt, errMsg, id).Error
}

// MemoryQueue is an in-process Queue ordered by RunAt.
type MemoryQueue struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	nextID uint64
	jobs   map[uint64]*Job
}

func NewMemoryQueue(clock clockwork.Clock) *MemoryQueue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryQueue{clock: clock, jobs: make(map[uint64]*Job)}
}

func (q *MemoryQueue) EnqueueDocumentSynced(_ context.Context, userID uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, j := range q.jobs {
		if j.UserID == userID && j.Type == TypeDocumentSynced && j.Status == StatusPending {
			return nil
		}
	}
	now := q.clock.Now()
	q.nextID++
	q.jobs[q.nextID] = &Job{
		ID:          q.nextID,
		UserID:      userID,
		Type:        TypeDocumentSynced,
		Payload:     []byte(`{}`),
		RunAt:       now,
		Status:      StatusPending,
		MaxAttempts: defaultMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (q *MemoryQueue) Claim(_ context.Context, workerID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	var due []*Job
	for _, j := range q.jobs {
		if j.Status == StatusPending && !j.RunAt.After(now) {
			due = append(due, j)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(a, b int) bool {
		if !due[a].RunAt.Equal(due[b].RunAt) {
			return due[a].RunAt.Before(due[b].RunAt)
		}
		return due[a].ID < due[b].ID
	})

	j := due[0]
	j.Status = StatusRunning
	j.LockedBy = &workerID
	j.LockedAt = &now
	j.UpdatedAt = now
	cp := *j
	return &cp, nil
}

func (q *MemoryQueue) MarkDone(_ context.Context, id uint64) error {
	return q.update(id, func(j *Job) {
		j.Status = StatusDone
		j.LockedBy, j.LockedAt = nil, nil
	})
}

func (q *MemoryQueue) MarkFailed(_ context.Context, id uint64, errMsg string) error {
	return q.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.LastError = &errMsg
	})
}

func (q *MemoryQueue) RetryLater(_ context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error {
	return q.update(id, func(j *Job) {
		j.Status = StatusPending
		j.Attempts = attempts
		j.RunAt = runAt
		j.LockedBy, j.LockedAt = nil, nil
		j.LastError = &errMsg
	})
}

// Get returns a copy of job id.
func (q *MemoryQueue) Get(id uint64) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (q *MemoryQueue) update(id uint64, fn func(*Job)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if j, ok := q.jobs[id]; ok {
		fn(j)
		j.UpdatedAt = q.clock.Now()
	}
	return nil
}
