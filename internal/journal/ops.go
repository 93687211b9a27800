package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrInvalidEntry   = errors.New("invalid entry")
)

// LogFor returns the log for day, creating an empty one if needed.
func (d *Document) LogFor(day string) (DayLog, error) {
	if !ValidDay(day) {
		return DayLog{}, fmt.Errorf("%w: bad date %q", ErrInvalidEntry, day)
	}
	if d.Logs == nil {
		d.Logs = map[string]DayLog{}
	}
	return d.Logs[day], nil
}

// SetMorning replaces the session details of day, keeping its tasks.
func (d *Document) SetMorning(day, sessionName, location string) error {
	log, err := d.LogFor(day)
	if err != nil {
		return err
	}
	if log.Morning == nil {
		log.Morning = &MorningEntry{Tasks: []Task{}}
	}
	log.Morning.SessionName = sessionName
	log.Morning.Location = location
	d.Logs[day] = log
	return nil
}

// AddTask appends t to the morning plan of day. Missing id, status and
// priority are filled in; the stored task is returned.
func (d *Document) AddTask(day string, t Task) (Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return Task{}, fmt.Errorf("%w: task title required", ErrInvalidEntry)
	}
	log, err := d.LogFor(day)
	if err != nil {
		return Task{}, err
	}
	if log.Morning == nil {
		log.Morning = &MorningEntry{Tasks: []Task{}}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	normalizeTask(&t)
	log.Morning.Tasks = append(log.Morning.Tasks, t)
	d.Logs[day] = log
	return t, nil
}

// UpdateTaskStatus changes the status of task id on day in place.
func (d *Document) UpdateTaskStatus(day, id string, status TaskStatus) error {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidEntry, status)
	}
	t, err := d.findTask(day, id)
	if err != nil {
		return err
	}
	t.Status = status
	return nil
}

// RemoveTask deletes task id from day. There is no soft delete.
func (d *Document) RemoveTask(day, id string) error {
	log, ok := d.Logs[day]
	if !ok || log.Morning == nil {
		return ErrTaskNotFound
	}
	tasks := log.Morning.Tasks
	for i := range tasks {
		if tasks[i].ID == id {
			log.Morning.Tasks = append(tasks[:i:i], tasks[i+1:]...)
			return nil
		}
	}
	return ErrTaskNotFound
}

func (d *Document) findTask(day, id string) (*Task, error) {
	log, ok := d.Logs[day]
	if !ok || log.Morning == nil {
		return nil, ErrTaskNotFound
	}
	for i := range log.Morning.Tasks {
		if log.Morning.Tasks[i].ID == id {
			return &log.Morning.Tasks[i], nil
		}
	}
	return nil, ErrTaskNotFound
}

// SetEvening records the reflection for day, overwriting any earlier one.
func (d *Document) SetEvening(day string, e EveningEntry) error {
	if e.Mood < 1 || e.Mood > 5 {
		return fmt.Errorf("%w: mood must be 1..5", ErrInvalidEntry)
	}
	if e.EnergyLevel < 1 || e.EnergyLevel > 5 {
		return fmt.Errorf("%w: energy level must be 1..5", ErrInvalidEntry)
	}
	log, err := d.LogFor(day)
	if err != nil {
		return err
	}
	log.Evening = &e
	d.Logs[day] = log
	return nil
}

func (d *Document) AddIdea(title, content, category string, now time.Time) Idea {
	idea := Idea{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Content:   content,
		Category:  category,
		Tags:      ExtractTags(content),
		CreatedAt: now,
	}
	d.Ideas = append(d.Ideas, idea)
	return idea
}

func (d *Document) AddLesson(title, content, source string, now time.Time) Lesson {
	l := Lesson{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Content:   content,
		Source:    source,
		CreatedAt: now,
	}
	d.Lessons = append(d.Lessons, l)
	return l
}

func (d *Document) AddGoodDeed(description string, now time.Time) GoodDeed {
	g := GoodDeed{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(description),
		Date:        Day(now),
		CreatedAt:   now,
	}
	d.DailyGood = append(d.DailyGood, g)
	return g
}

func (d *Document) AddCourse(name, category string, now time.Time) (Course, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Course{}, fmt.Errorf("%w: course name required", ErrInvalidEntry)
	}
	c := Course{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		Logs:      []StudyLog{},
		CreatedAt: now,
	}
	d.Learning.Courses = append(d.Learning.Courses, c)
	return c, nil
}

// LogStudy records a study session against a course.
func (d *Document) LogStudy(courseID string, l StudyLog) error {
	if !ValidDay(l.Date) {
		return fmt.Errorf("%w: bad date %q", ErrInvalidEntry, l.Date)
	}
	if l.Minutes < 0 {
		return fmt.Errorf("%w: negative minutes", ErrInvalidEntry)
	}
	for i := range d.Learning.Courses {
		if d.Learning.Courses[i].ID == courseID {
			d.Learning.Courses[i].Logs = append(d.Learning.Courses[i].Logs, l)
			return nil
		}
	}
	return ErrCourseNotFound
}
