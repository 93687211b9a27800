package docsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reign/internal/journal"
)

type recordingJobs struct {
	users []uint64
	err   error
}

func (r *recordingJobs) EnqueueDocumentSynced(_ context.Context, userID uint64) error {
	r.users = append(r.users, userID)
	return r.err
}

func envelope(t *testing.T, username string, updated time.Time) journal.SyncEnvelope {
	t.Helper()
	doc := journal.Default()
	doc.Settings.Username = username
	doc.LastUpdated = &updated
	return journal.SyncEnvelope{AppData: doc, LocalTimestamp: journal.FormatISO(updated)}
}

func TestDownloadBeforeUpload(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	resp, err := svc.Download(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, resp.AppData)
	assert.Nil(t, resp.LastSynced)
}

func TestUploadReplacesCurrent(t *testing.T) {
	ctx := context.Background()
	jobs := &recordingJobs{}
	svc := &Service{Repo: NewMemoryRepo(), Jobs: jobs}
	t0 := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

	_, err := svc.Upload(ctx, 1, envelope(t, "first", t0), nil)
	require.NoError(t, err)
	rev, err := svc.Upload(ctx, 1, envelope(t, "second", t0.Add(-time.Hour)), nil)
	require.NoError(t, err)

	resp, err := svc.Download(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, resp.AppData)
	assert.Equal(t, "second", resp.AppData.Settings.Username, "last write wins on the server")
	assert.NotNil(t, resp.LastSynced)

	cur, err := svc.Repo.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, rev.ID, cur.Version)
	assert.Equal(t, []uint64{1, 1}, jobs.users)

	other, err := svc.Download(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, other.AppData)
}

func TestUploadIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	jobs := &recordingJobs{}
	svc := &Service{Repo: NewMemoryRepo(), Jobs: jobs}
	key := "k-1"
	now := time.Now()

	a, err := svc.Upload(ctx, 1, envelope(t, "a", now), &key)
	require.NoError(t, err)
	b, err := svc.Upload(ctx, 1, envelope(t, "b", now), &key)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Len(t, jobs.users, 1)

	_, err = svc.Upload(ctx, 2, envelope(t, "c", now), &key)
	require.NoError(t, err, "keys are scoped per user")

	_, revs, err := svc.Repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), revs)
}

func TestUploadRejectsEmptyDocument(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	_, err := svc.Upload(context.Background(), 1, journal.SyncEnvelope{}, nil)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestEnqueueFailureDoesNotFailUpload(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), Jobs: &recordingJobs{err: errors.New("queue down")}}
	_, err := svc.Upload(context.Background(), 1, envelope(t, "a", time.Now()), nil)
	assert.NoError(t, err)
}

func TestMemoryRepoPruneAndRevisions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	for i := 0; i < 5; i++ {
		_, _, err := repo.Save(ctx, SaveInput{UserID: 1, Payload: []byte(`{}`)})
		require.NoError(t, err)
	}

	n, err := repo.Prune(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	revs, err := repo.Revisions(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, uint64(5), revs[0].ID, "newest first")
	assert.Nil(t, revs[0].Payload)

	require.NoError(t, repo.DeleteUser(ctx, 1))
	_, err = repo.Current(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
