// Package analytics derives summaries from a journal document. Every
// function is read-only over its input except RepairLearningStreak, which
// exists to correct a stored counter.
package analytics

import (
	"math"
	"sort"
	"time"

	"reign/internal/journal"
)

type Summary struct {
	TotalDays      int `json:"totalDays"`
	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`
	CompletionRate int `json:"completionRate"` // percent, 0 when there are no tasks
}

// Compute returns day and task totals across all logs.
func Compute(doc *journal.Document) Summary {
	s := Summary{TotalDays: len(doc.Logs)}
	for _, log := range doc.Logs {
		total, done := countTasks(log)
		s.TotalTasks += total
		s.CompletedTasks += done
	}
	s.CompletionRate = percent(s.CompletedTasks, s.TotalTasks)
	return s
}

type DayStat struct {
	Date           string `json:"date"`
	Weekday        string `json:"weekday"`
	TasksCompleted int    `json:"tasksCompleted"`
	TotalTasks     int    `json:"totalTasks"`
}

// LastNDays returns n entries, oldest first, for the n calendar days ending
// on today inclusive. Days without a log are zero-filled.
func LastNDays(doc *journal.Document, today time.Time, n int) []DayStat {
	if n <= 0 {
		return []DayStat{}
	}
	out := make([]DayStat, 0, n)
	for i := n - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		key := journal.Day(d)
		stat := DayStat{Date: key, Weekday: d.Format("Mon")}
		if log, ok := doc.Logs[key]; ok {
			stat.TotalTasks, stat.TasksCompleted = countTasks(log)
		}
		out = append(out, stat)
	}
	return out
}

func Last7Days(doc *journal.Document, today time.Time) []DayStat {
	return LastNDays(doc, today, 7)
}

type CategoryStat struct {
	Category         string  `json:"category"`
	Total            int     `json:"total"`
	Completed        int     `json:"completed"`
	EstimatedMinutes float64 `json:"estimatedMinutes"`
}

// ByCategory groups tasks by category, largest first. Tasks without a
// category are reported under "uncategorized".
func ByCategory(doc *journal.Document) []CategoryStat {
	idx := map[string]*CategoryStat{}
	for _, log := range doc.Logs {
		if log.Morning == nil {
			continue
		}
		for _, t := range log.Morning.Tasks {
			name := t.Category
			if name == "" {
				name = "uncategorized"
			}
			st, ok := idx[name]
			if !ok {
				st = &CategoryStat{Category: name}
				idx[name] = st
			}
			st.Total++
			if t.Status == journal.StatusCompleted {
				st.Completed++
			}
			if t.EstimatedTime != nil {
				st.EstimatedMinutes += *t.EstimatedTime
			}
		}
	}

	out := make([]CategoryStat, 0, len(idx))
	for _, st := range idx {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

type PriorityStat struct {
	Priority  journal.Priority `json:"priority"`
	Total     int              `json:"total"`
	Completed int              `json:"completed"`
}

// ByPriority always returns high, medium, low in that order.
func ByPriority(doc *journal.Document) []PriorityStat {
	out := []PriorityStat{
		{Priority: journal.PriorityHigh},
		{Priority: journal.PriorityMedium},
		{Priority: journal.PriorityLow},
	}
	for _, log := range doc.Logs {
		if log.Morning == nil {
			continue
		}
		for _, t := range log.Morning.Tasks {
			for i := range out {
				if out[i].Priority != t.Priority {
					continue
				}
				out[i].Total++
				if t.Status == journal.StatusCompleted {
					out[i].Completed++
				}
			}
		}
	}
	return out
}

type Wellbeing struct {
	Entries   int     `json:"entries"`
	AvgMood   float64 `json:"avgMood"`
	AvgEnergy float64 `json:"avgEnergy"`
}

// Mood averages the evening reflections, rounded to one decimal.
func Mood(doc *journal.Document) Wellbeing {
	var w Wellbeing
	var mood, energy int
	for _, log := range doc.Logs {
		if log.Evening == nil {
			continue
		}
		w.Entries++
		mood += log.Evening.Mood
		energy += log.Evening.EnergyLevel
	}
	if w.Entries > 0 {
		w.AvgMood = round1(float64(mood) / float64(w.Entries))
		w.AvgEnergy = round1(float64(energy) / float64(w.Entries))
	}
	return w
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TopTags counts idea hashtags, most used first, ties by name.
func TopTags(doc *journal.Document, limit int) []TagCount {
	counts := map[string]int{}
	for _, idea := range doc.Ideas {
		tags := idea.Tags
		if len(tags) == 0 {
			tags = journal.ExtractTags(idea.Content)
		}
		for _, t := range tags {
			counts[t]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func countTasks(log journal.DayLog) (total, completed int) {
	if log.Morning == nil {
		return 0, 0
	}
	for _, t := range log.Morning.Tasks {
		total++
		if t.Status == journal.StatusCompleted {
			completed++
		}
	}
	return total, completed
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
