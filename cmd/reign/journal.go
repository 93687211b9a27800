package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reign/internal/analytics"
	"reign/internal/journal"
)

const shortID = 8

func newTaskCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage the morning plan",
	}
	cmd.AddCommand(newTaskAddCmd(c), newTaskListCmd(c), newTaskStatusCmd(c), newTaskRmCmd(c))
	return cmd
}

func newTaskAddCmd(c *cli) *cobra.Command {
	var (
		day, category, priority, notes string
		estimate                       float64
	)
	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Add a task to a day's plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := journal.Task{
				Title:    strings.Join(args, " "),
				Category: category,
				Priority: journal.Priority(priority),
				Notes:    notes,
			}
			if estimate > 0 {
				t.EstimatedTime = &estimate
			}
			var added journal.Task
			err := c.app.store.Update(func(doc *journal.Document) error {
				var err error
				added, err = doc.AddTask(day, t)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "added %s %s\n", dimStyle.Render(short(added.ID)), added.Title)
			return nil
		},
	}
	addDayFlag(cmd, &day)
	cmd.Flags().StringVarP(&category, "category", "c", "", "task category")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(journal.PriorityMedium), "high, medium or low")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "estimated minutes")
	return cmd
}

func newTaskListCmd(c *cli) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a day's tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc := c.app.store.GetData()
			log := doc.Logs[day]
			fmt.Fprintln(c.out, titleStyle.Render(day))
			if log.Morning == nil || len(log.Morning.Tasks) == 0 {
				fmt.Fprintln(c.out, dimStyle.Render("no tasks planned"))
				return nil
			}
			if s := log.Morning.SessionName; s != "" {
				fmt.Fprintln(c.out, dimStyle.Render(s+" @ "+log.Morning.Location))
			}
			for _, t := range log.Morning.Tasks {
				mark := "[ ]"
				switch t.Status {
				case journal.StatusCompleted:
					mark = doneStyle.Render("[x]")
				case journal.StatusInProgress:
					mark = "[~]"
				}
				line := fmt.Sprintf("%s %s %s", mark, dimStyle.Render(short(t.ID)), t.Title)
				if t.Category != "" {
					line += dimStyle.Render(" #" + t.Category)
				}
				if t.Priority == journal.PriorityHigh {
					line += " !"
				}
				fmt.Fprintln(c.out, line)
			}
			return nil
		},
	}
	addDayFlag(cmd, &day)
	return cmd
}

func newTaskStatusCmd(c *cli) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:       "mark ID pending|in-progress|completed",
		Aliases:   []string{"done"},
		Short:     "Change a task's status",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{string(journal.StatusPending), string(journal.StatusInProgress), string(journal.StatusCompleted)},
		RunE: func(cmd *cobra.Command, args []string) error {
			status := journal.StatusCompleted
			if len(args) == 2 {
				status = journal.TaskStatus(args[1])
			}
			return c.app.store.Update(func(doc *journal.Document) error {
				id, err := resolveTask(doc, day, args[0])
				if err != nil {
					return err
				}
				return doc.UpdateTaskStatus(day, id, status)
			})
		},
	}
	addDayFlag(cmd, &day)
	return cmd
}

func newTaskRmCmd(c *cli) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Remove a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.store.Update(func(doc *journal.Document) error {
				id, err := resolveTask(doc, day, args[0])
				if err != nil {
					return err
				}
				return doc.RemoveTask(day, id)
			})
		},
	}
	addDayFlag(cmd, &day)
	return cmd
}

func newMorningCmd(c *cli) *cobra.Command {
	var day, location string
	cmd := &cobra.Command{
		Use:   "morning SESSION...",
		Short: "Name the day's work session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.store.Update(func(doc *journal.Document) error {
				return doc.SetMorning(day, strings.Join(args, " "), location)
			})
		},
	}
	addDayFlag(cmd, &day)
	cmd.Flags().StringVar(&location, "location", "", "where the session happens")
	return cmd
}

func newEveningCmd(c *cli) *cobra.Command {
	var (
		day string
		e   journal.EveningEntry
	)
	cmd := &cobra.Command{
		Use:   "evening",
		Short: "Record the evening reflection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range []struct {
				dst   *int
				label string
			}{{&e.Mood, "Mood (1-5)"}, {&e.EnergyLevel, "Energy (1-5)"}} {
				if *f.dst != 0 {
					continue
				}
				v, err := c.prompt(f.label)
				if err != nil {
					return err
				}
				if *f.dst, err = strconv.Atoi(v); err != nil {
					return fmt.Errorf("%s: %w", f.label, err)
				}
			}
			return c.app.store.Update(func(doc *journal.Document) error {
				return doc.SetEvening(day, e)
			})
		},
	}
	addDayFlag(cmd, &day)
	cmd.Flags().IntVar(&e.Mood, "mood", 0, "mood from 1 to 5")
	cmd.Flags().IntVar(&e.EnergyLevel, "energy", 0, "energy from 1 to 5")
	cmd.Flags().StringVar(&e.Success, "success", "", "what went well")
	cmd.Flags().StringVar(&e.Challenges, "challenges", "", "what got in the way")
	cmd.Flags().StringVar(&e.Strategy, "strategy", "", "what to try tomorrow")
	return cmd
}

func newIdeaCmd(c *cli) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "idea TITLE [CONTENT]",
		Short: "Capture an idea; #hashtags in the content become tags",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := ""
			if len(args) == 2 {
				content = args[1]
			}
			return c.app.store.Update(func(doc *journal.Document) error {
				idea := doc.AddIdea(args[0], content, category, time.Now())
				if len(idea.Tags) > 0 {
					fmt.Fprintln(c.out, dimStyle.Render("tags: "+strings.Join(idea.Tags, ", ")))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "idea category")
	return cmd
}

func newLessonCmd(c *cli) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "lesson TITLE CONTENT",
		Short: "Write down a lesson learned",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.store.Update(func(doc *journal.Document) error {
				doc.AddLesson(args[0], args[1], source, time.Now())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "book, person or event it came from")
	return cmd
}

func newGoodCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "good DESCRIPTION...",
		Short: "Log today's good deed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.store.Update(func(doc *journal.Document) error {
				doc.AddGoodDeed(strings.Join(args, " "), time.Now())
				return nil
			})
		},
	}
}

func newLearnCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Track courses and study sessions",
	}

	var category string
	course := &cobra.Command{
		Use:   "course NAME...",
		Short: "Start tracking a course",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.store.Update(func(doc *journal.Document) error {
				added, err := doc.AddCourse(strings.Join(args, " "), category, time.Now())
				if err == nil {
					fmt.Fprintf(c.out, "added %s %s\n", dimStyle.Render(short(added.ID)), added.Name)
				}
				return err
			})
		},
	}
	course.Flags().StringVarP(&category, "category", "c", "", "course category")

	var (
		day, note string
		minutes   int
	)
	logCmd := &cobra.Command{
		Use:   "log COURSE",
		Short: "Record a study session against a course id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var streak int
			err := c.app.store.Update(func(doc *journal.Document) error {
				id, err := resolveCourse(doc, args[0])
				if err != nil {
					return err
				}
				if err := doc.LogStudy(id, journal.StudyLog{Date: day, Minutes: minutes, Note: note}); err != nil {
					return err
				}
				analytics.RepairLearningStreak(doc)
				streak = doc.Learning.Streak
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "learning streak: %d day(s)\n", streak)
			return nil
		},
	}
	addDayFlag(logCmd, &day)
	logCmd.Flags().IntVarP(&minutes, "minutes", "m", 30, "minutes studied")
	logCmd.Flags().StringVar(&note, "note", "", "what was covered")

	list := &cobra.Command{
		Use:   "list",
		Short: "List courses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc := c.app.store.GetData()
			for _, co := range doc.Learning.Courses {
				total := 0
				for _, l := range co.Logs {
					total += l.Minutes
				}
				fmt.Fprintf(c.out, "%s %s %s\n", dimStyle.Render(short(co.ID)), co.Name,
					dimStyle.Render(fmt.Sprintf("%d sessions, %d min", len(co.Logs), total)))
			}
			fmt.Fprintf(c.out, "streak: %d\n", doc.Learning.Streak)
			return nil
		},
	}

	cmd.AddCommand(course, logCmd, list)
	return cmd
}

func resolveTask(doc *journal.Document, day, ref string) (string, error) {
	log := doc.Logs[day]
	if log.Morning == nil {
		return "", journal.ErrTaskNotFound
	}
	var match string
	for _, t := range log.Morning.Tasks {
		if t.ID == ref {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("task id %q is ambiguous", ref)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", journal.ErrTaskNotFound
	}
	return match, nil
}

func resolveCourse(doc *journal.Document, ref string) (string, error) {
	for _, co := range doc.Learning.Courses {
		if co.ID == ref || strings.HasPrefix(co.ID, ref) || strings.EqualFold(co.Name, ref) {
			return co.ID, nil
		}
	}
	return "", journal.ErrCourseNotFound
}

func short(id string) string {
	if len(id) > shortID {
		return id[:shortID]
	}
	return id
}
