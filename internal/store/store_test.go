package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reign/internal/journal"
	"reign/internal/notify"
	"reign/internal/storage"
)

type loginState bool

func (l loginState) IsLoggedIn() bool { return bool(l) }

type countingScheduler struct{ calls int }

func (c *countingScheduler) ScheduleUpload() { c.calls++ }

func TestGetDataDefaultsAreStable(t *testing.T) {
	s := New(storage.NewMemory(0), loginState(false))

	first := s.GetData()
	second := s.GetData()
	assert.Empty(t, cmp.Diff(journal.Default(), first))
	assert.Empty(t, cmp.Diff(first, second))
	assert.Nil(t, first.LastUpdated)
}

func TestSaveThenGetRoundTrips(t *testing.T) {
	start := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	s := New(storage.NewMemory(0), loginState(false), WithClock(clock))

	doc := journal.Default()
	_, err := doc.AddTask("2024-05-10", journal.Task{Title: "write report"})
	require.NoError(t, err)
	doc.Settings.Username = "ada"

	clock.Advance(time.Minute)
	require.True(t, s.SaveData(doc, true))

	got := s.GetData()
	require.NotNil(t, got.LastUpdated)
	assert.False(t, got.LastUpdated.Before(start))
	assert.True(t, got.LastUpdated.Equal(start.Add(time.Minute)))
	assert.Equal(t, "ada", got.Settings.Username)
	require.Len(t, got.Logs["2024-05-10"].Morning.Tasks, 1)
	assert.Equal(t, "write report", got.Logs["2024-05-10"].Morning.Tasks[0].Title)
}

func TestCorruptDataYieldsDefault(t *testing.T) {
	st := storage.NewMemory(0)
	require.NoError(t, st.SetItem(DataKey, "{\"logs\": [broken"))

	got := New(st, loginState(false)).GetData()
	assert.Empty(t, cmp.Diff(journal.Default(), got))
}

func TestGetDataRepairsLearningStreak(t *testing.T) {
	doc := journal.Default()
	c, err := doc.AddCourse("Go", "tech", time.Now())
	require.NoError(t, err)
	require.NoError(t, doc.LogStudy(c.ID, journal.StudyLog{Date: "2024-05-01", Minutes: 30}))
	doc.Learning.Streak = 9

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	st := storage.NewMemory(0)
	require.NoError(t, st.SetItem(DataKey, string(b)))

	assert.Equal(t, 1, New(st, loginState(false)).GetData().Learning.Streak)
}

func TestQuotaExceededWarnsAndFails(t *testing.T) {
	var levels []notify.Level
	n := notify.Func(func(l notify.Level, _ string) { levels = append(levels, l) })
	st := storage.NewMemory(64)
	s := New(st, loginState(true), WithNotifier(n))

	doc := journal.Default()
	assert.False(t, s.SaveData(doc, false))
	assert.Equal(t, []notify.Level{notify.Warning}, levels)

	_, ok, err := st.GetItem(DataKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveSchedulesUploadOnlyWhenSignedIn(t *testing.T) {
	tests := []struct {
		name     string
		loggedIn bool
		skipSync bool
		want     int
	}{
		{"signed in", true, false, 1},
		{"skip sync", true, true, 0},
		{"signed out", false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sch := &countingScheduler{}
			s := New(storage.NewMemory(0), loginState(tt.loggedIn), WithScheduler(sch))
			require.True(t, s.SaveData(journal.Default(), tt.skipSync))
			assert.Equal(t, tt.want, sch.calls)
		})
	}
}

func TestUpdate(t *testing.T) {
	sch := &countingScheduler{}
	s := New(storage.NewMemory(0), loginState(true))
	s.AttachScheduler(sch)

	err := s.Update(func(doc *journal.Document) error {
		doc.AddLesson("ship small", "", "", time.Now())
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, s.GetData().Lessons, 1)
	assert.Equal(t, 1, sch.calls)

	err = s.Update(func(doc *journal.Document) error { return journal.ErrInvalidEntry })
	assert.ErrorIs(t, err, journal.ErrInvalidEntry)
	assert.Equal(t, 1, sch.calls)
}
