package analytics

import (
	"sort"
	"time"

	"reign/internal/journal"
)

// Streak counts the run of consecutive calendar days that ends on the most
// recent day in days. Invalid and duplicate entries are ignored; a gap of
// one or more days ends the run.
func Streak(days []string) int {
	set := make(map[string]struct{}, len(days))
	latest := ""
	for _, d := range days {
		if !journal.ValidDay(d) {
			continue
		}
		set[d] = struct{}{}
		if d > latest {
			latest = d
		}
	}
	if latest == "" {
		return 0
	}

	cur, _ := time.Parse(journal.DateLayout, latest)
	streak := 1
	for {
		cur = cur.AddDate(0, 0, -1)
		if _, ok := set[journal.Day(cur)]; !ok {
			return streak
		}
		streak++
	}
}

// LearningDays lists, sorted and unique, every day with at least one study
// log on any course.
func LearningDays(doc *journal.Document) []string {
	set := map[string]struct{}{}
	for _, c := range doc.Learning.Courses {
		for _, l := range c.Logs {
			if journal.ValidDay(l.Date) {
				set[l.Date] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func LearningStreak(doc *journal.Document) int {
	return Streak(LearningDays(doc))
}

// RepairLearningStreak re-derives doc.Learning.Streak from the study logs
// and reports whether the stored value had drifted.
func RepairLearningStreak(doc *journal.Document) bool {
	want := LearningStreak(doc)
	if doc.Learning.Streak == want {
		return false
	}
	doc.Learning.Streak = want
	return true
}

type HeatCell struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"` // 0..4
}

// Heatmap returns one cell per day for the days ending on end inclusive,
// oldest first. Activity counts completed tasks, an evening reflection,
// study sessions and good deeds recorded on that day.
func Heatmap(doc *journal.Document, end time.Time, days int) []HeatCell {
	if days <= 0 {
		return []HeatCell{}
	}

	activity := map[string]int{}
	for day, log := range doc.Logs {
		_, done := countTasks(log)
		activity[day] += done
		if log.Evening != nil {
			activity[day]++
		}
	}
	for _, c := range doc.Learning.Courses {
		for _, l := range c.Logs {
			activity[l.Date]++
		}
	}
	for _, g := range doc.DailyGood {
		activity[g.Date]++
	}

	out := make([]HeatCell, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := journal.Day(end.AddDate(0, 0, -i))
		n := activity[key]
		out = append(out, HeatCell{Date: key, Count: n, Level: heatLevel(n)})
	}
	return out
}

func heatLevel(n int) int {
	switch {
	case n <= 0:
		return 0
	case n <= 2:
		return 1
	case n <= 4:
		return 2
	case n <= 6:
		return 3
	default:
		return 4
	}
}
