package admin

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reign/internal/auth"
	"reign/internal/docsync"
	"reign/internal/journal"
)

func TestComputeStats(t *testing.T) {
	doc := journal.Default()
	for _, task := range []journal.Task{
		{Title: "a", Category: "work", Status: journal.StatusCompleted},
		{Title: "b", Category: "work"},
		{Title: "c", Category: "health", Status: journal.StatusCompleted},
		{Title: "d", Category: "home"},
		{Title: "e", Category: "fun"},
	} {
		_, err := doc.AddTask("2024-05-01", task)
		require.NoError(t, err)
	}
	doc.AddIdea("x", "", "", time.Now())

	synced := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	st := ComputeStats(9, doc, 17, synced)
	assert.Equal(t, uint64(9), st.UserID)
	assert.Equal(t, 5, st.TotalTasks)
	assert.Equal(t, 2, st.CompletedTasks)
	assert.Equal(t, 40, st.CompletionRate)
	assert.Equal(t, 1, st.Ideas)
	assert.Len(t, st.TopCategories, 3)
	assert.Equal(t, "work", st.TopCategories[0])
	assert.Equal(t, uint64(17), st.DocumentVersion)
	assert.Equal(t, synced, st.LastSyncedAt)
}

func newService(t *testing.T, now time.Time) *Service {
	t.Helper()
	return &Service{
		Users: auth.NewMemoryUsers(),
		Docs:  docsync.NewMemoryRepo(),
		Stats: NewMemoryStats(),
		Clock: clockwork.NewFakeClockAt(now),
	}
}

func TestOverviewAndList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	svc := newService(t, now)

	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		require.NoError(t, svc.Users.Create(ctx, &auth.User{Email: email}))
	}
	_, _, err := svc.Docs.Save(ctx, docsync.SaveInput{UserID: 1, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, svc.Stats.Upsert(ctx, UserStats{UserID: 1, TotalTasks: 4, CompletedTasks: 3, CompletionRate: 75, LastSyncedAt: now.Add(-time.Hour)}))
	require.NoError(t, svc.Stats.Upsert(ctx, UserStats{UserID: 2, TotalTasks: 2, CompletedTasks: 1, CompletionRate: 50, LastSyncedAt: now.Add(-30 * 24 * time.Hour)}))

	o, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, Overview{
		Users:             3,
		ActiveUsers7d:     1,
		Documents:         1,
		Revisions:         1,
		TotalTasks:        6,
		CompletedTasks:    4,
		AvgCompletionRate: 62.5,
	}, o)

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.NotNil(t, list[0].Stats)
	assert.Equal(t, 75, list[0].Stats.CompletionRate)
	assert.Nil(t, list[2].Stats)
}

func TestDeleteUserRemovesEverything(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, time.Now())

	require.NoError(t, svc.Users.Create(ctx, &auth.User{Email: "a@x.io"}))
	_, _, err := svc.Docs.Save(ctx, docsync.SaveInput{UserID: 1, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, svc.Stats.Upsert(ctx, UserStats{UserID: 1}))

	revs, err := svc.Revisions(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, revs, 1)

	require.NoError(t, svc.DeleteUser(ctx, 1))
	_, err = svc.Docs.Current(ctx, 1)
	assert.ErrorIs(t, err, docsync.ErrNotFound)
	_, err = svc.Stats.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNoStats)

	assert.ErrorIs(t, svc.DeleteUser(ctx, 1), auth.ErrUserNotFound)
	_, err = svc.Revisions(ctx, 1, 10)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
