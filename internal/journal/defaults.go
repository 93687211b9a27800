package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the key format of Document.Logs.
const DateLayout = "2006-01-02"

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Default returns the first-run document: every collection present and
// empty, LastUpdated unset.
func Default() *Document {
	return &Document{
		Logs: map[string]DayLog{},
		Learning: Learning{
			Courses: []Course{},
			Streak:  0,
		},
		Ideas:         []Idea{},
		Lessons:       []Lesson{},
		DailyGood:     []GoodDeed{},
		Relationships: []Relationship{},
		Events:        []Event{},
		Settings:      DefaultSettings(),
		LastUpdated:   nil,
	}
}

// Normalize fills in whatever an older or partial document is missing and
// drops what violates the document invariants. It returns the number of
// repairs made.
func Normalize(doc *Document) int {
	fixes := 0

	if doc.Logs == nil {
		doc.Logs = map[string]DayLog{}
		fixes++
	}
	for day, log := range doc.Logs {
		if !ValidDay(day) {
			delete(doc.Logs, day)
			fixes++
			continue
		}
		if log.Morning != nil {
			if log.Morning.Tasks == nil {
				log.Morning.Tasks = []Task{}
				fixes++
			}
			for i := range log.Morning.Tasks {
				fixes += normalizeTask(&log.Morning.Tasks[i])
			}
		}
	}

	if doc.Learning.Courses == nil {
		doc.Learning.Courses = []Course{}
		fixes++
	}
	for i := range doc.Learning.Courses {
		c := &doc.Learning.Courses[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
			fixes++
		}
		if c.Logs == nil {
			c.Logs = []StudyLog{}
			fixes++
		}
	}
	if doc.Ideas == nil {
		doc.Ideas = []Idea{}
		fixes++
	}
	if doc.Lessons == nil {
		doc.Lessons = []Lesson{}
		fixes++
	}
	if doc.DailyGood == nil {
		doc.DailyGood = []GoodDeed{}
		fixes++
	}
	if doc.Relationships == nil {
		doc.Relationships = []Relationship{}
		fixes++
	}
	if doc.Events == nil {
		doc.Events = []Event{}
		fixes++
	}

	def := DefaultSettings()
	if doc.Settings.Role != RoleKing && doc.Settings.Role != RoleQueen {
		doc.Settings.Role = def.Role
		fixes++
	}
	if doc.Settings.Theme != ThemeDark && doc.Settings.Theme != ThemeLight {
		doc.Settings.Theme = def.Theme
		fixes++
	}

	return fixes
}

func normalizeTask(t *Task) int {
	fixes := 0
	if t.ID == "" {
		t.ID = uuid.NewString()
		fixes++
	}
	switch t.Status {
	case StatusPending, StatusInProgress, StatusCompleted:
	default:
		t.Status = StatusPending
		fixes++
	}
	switch t.Priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
	default:
		t.Priority = PriorityMedium
		fixes++
	}
	return fixes
}

// Clone deep-copies a document through its JSON form.
func Clone(doc *Document) (*Document, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	out := &Document{}
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	return out, nil
}

// ValidDay reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidDay(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Day formats t as a Logs key in t's own location.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatISO renders t the way Date.prototype.toISOString does.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
