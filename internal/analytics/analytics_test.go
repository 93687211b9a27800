package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reign/internal/journal"
)

func minutes(v float64) *float64 { return &v }

func docWithTasks(t *testing.T, days map[string][]journal.Task) *journal.Document {
	t.Helper()

	doc := journal.Default()
	for day, tasks := range days {
		for _, task := range tasks {
			_, err := doc.AddTask(day, task)
			require.NoError(t, err)
		}
	}
	return doc
}

func TestComputeWithoutTasks(t *testing.T) {
	s := Compute(journal.Default())
	assert.Equal(t, Summary{}, s)

	doc := journal.Default()
	require.NoError(t, doc.SetEvening("2024-05-01", journal.EveningEntry{Mood: 3, EnergyLevel: 3}))
	s = Compute(doc)
	assert.Equal(t, 1, s.TotalDays)
	assert.Equal(t, 0, s.CompletionRate)
}

func TestComputeCompletionRate(t *testing.T) {
	doc := docWithTasks(t, map[string][]journal.Task{
		"2024-05-01": {
			{Title: "a", Status: journal.StatusCompleted},
			{Title: "b", Status: journal.StatusPending},
		},
		"2024-05-02": {
			{Title: "c", Status: journal.StatusCompleted},
		},
	})

	s := Compute(doc)
	assert.Equal(t, 2, s.TotalDays)
	assert.Equal(t, 3, s.TotalTasks)
	assert.Equal(t, 2, s.CompletedTasks)
	assert.Equal(t, 67, s.CompletionRate)
}

func TestLast7DaysZeroFills(t *testing.T) {
	today := time.Date(2024, 5, 10, 21, 0, 0, 0, time.UTC)
	doc := docWithTasks(t, map[string][]journal.Task{
		"2024-05-08": {{Title: "a", Status: journal.StatusCompleted}, {Title: "b"}},
		"2024-04-01": {{Title: "old", Status: journal.StatusCompleted}},
	})

	days := Last7Days(doc, today)
	require.Len(t, days, 7)
	assert.Equal(t, "2024-05-04", days[0].Date)
	assert.Equal(t, "2024-05-10", days[6].Date)
	assert.Equal(t, "Fri", days[6].Weekday)

	for _, d := range days {
		if d.Date == "2024-05-08" {
			assert.Equal(t, 1, d.TasksCompleted)
			assert.Equal(t, 2, d.TotalTasks)
			continue
		}
		assert.Zero(t, d.TasksCompleted, d.Date)
		assert.Zero(t, d.TotalTasks, d.Date)
	}

	assert.Len(t, Last7Days(journal.Default(), today), 7)
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name string
		days []string
		want int
	}{
		{"empty", nil, 0},
		{"single", []string{"2024-05-01"}, 1},
		{"run", []string{"2024-05-01", "2024-05-02", "2024-05-03"}, 3},
		{"gap resets", []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-06"}, 1},
		{"unsorted with dupes", []string{"2024-05-03", "2024-05-02", "2024-05-03"}, 2},
		{"month boundary", []string{"2024-02-28", "2024-02-29", "2024-03-01"}, 3},
		{"invalid ignored", []string{"nope", "2024-05-01"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(tt.days))
		})
	}
}

func TestRepairLearningStreak(t *testing.T) {
	doc := journal.Default()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	c, err := doc.AddCourse("Go", "tech", now)
	require.NoError(t, err)
	for _, d := range []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-06"} {
		require.NoError(t, doc.LogStudy(c.ID, journal.StudyLog{Date: d, Minutes: 20}))
	}
	doc.Learning.Streak = 4

	assert.True(t, RepairLearningStreak(doc))
	assert.Equal(t, 1, doc.Learning.Streak)
	assert.False(t, RepairLearningStreak(doc))
}

func TestByCategoryAndPriority(t *testing.T) {
	doc := docWithTasks(t, map[string][]journal.Task{
		"2024-05-01": {
			{Title: "a", Category: "work", Priority: journal.PriorityHigh, Status: journal.StatusCompleted, EstimatedTime: minutes(30)},
			{Title: "b", Category: "work", Priority: journal.PriorityLow, EstimatedTime: minutes(15)},
			{Title: "c", Priority: journal.PriorityHigh},
		},
	})

	cats := ByCategory(doc)
	require.Len(t, cats, 2)
	assert.Equal(t, CategoryStat{Category: "work", Total: 2, Completed: 1, EstimatedMinutes: 45}, cats[0])
	assert.Equal(t, "uncategorized", cats[1].Category)

	prio := ByPriority(doc)
	require.Len(t, prio, 3)
	assert.Equal(t, PriorityStat{Priority: journal.PriorityHigh, Total: 2, Completed: 1}, prio[0])
	assert.Equal(t, PriorityStat{Priority: journal.PriorityMedium}, prio[1])
	assert.Equal(t, PriorityStat{Priority: journal.PriorityLow, Total: 1}, prio[2])
}

func TestHeatmap(t *testing.T) {
	end := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	doc := docWithTasks(t, map[string][]journal.Task{
		"2024-05-10": {
			{Title: "a", Status: journal.StatusCompleted},
			{Title: "b", Status: journal.StatusCompleted},
			{Title: "c"},
		},
	})
	require.NoError(t, doc.SetEvening("2024-05-10", journal.EveningEntry{Mood: 4, EnergyLevel: 4}))
	doc.AddGoodDeed("helped a neighbour", time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC))

	cells := Heatmap(doc, end, 14)
	require.Len(t, cells, 14)
	last := cells[13]
	assert.Equal(t, "2024-05-10", last.Date)
	assert.Equal(t, 3, last.Count)
	assert.Equal(t, 2, last.Level)
	assert.Equal(t, HeatCell{Date: "2024-05-09", Count: 1, Level: 1}, cells[12])
	assert.Equal(t, 0, cells[0].Level)
}

func TestMoodAndTags(t *testing.T) {
	doc := journal.Default()
	require.NoError(t, doc.SetEvening("2024-05-01", journal.EveningEntry{Mood: 4, EnergyLevel: 2}))
	require.NoError(t, doc.SetEvening("2024-05-02", journal.EveningEntry{Mood: 5, EnergyLevel: 3}))

	w := Mood(doc)
	assert.Equal(t, 2, w.Entries)
	assert.Equal(t, 4.5, w.AvgMood)
	assert.Equal(t, 2.5, w.AvgEnergy)

	now := time.Now()
	doc.AddIdea("a", "#focus and #health", "", now)
	doc.AddIdea("b", "more #focus", "", now)
	tags := TopTags(doc, 1)
	assert.Equal(t, []TagCount{{Tag: "focus", Count: 2}}, tags)
}
