package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reign/internal/focus"
	"reign/internal/notify"
)

func newTimerCmd(c *cli) *cobra.Command {
	// Replaces the root hook: the timer never needs the journal download.
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Focus timer",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(); err != nil {
				return err
			}
			toasts := notify.NewConsole(c.out)
			c.app.timer.OnComplete(func(wasBreak bool) {
				if wasBreak {
					toasts.Notify(notify.Info, "Break is over")
					return
				}
				toasts.Notify(notify.Success, "Focus session complete. Take a break.")
			})
			return c.app.timer.Restore()
		},
	}

	var label string
	var minutes int
	start := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.timer.Start(time.Duration(minutes)*time.Minute, label); err != nil {
				return err
			}
			return printTimer(c, c.app.timer.Status())
		},
	}
	start.Flags().StringVarP(&label, "label", "l", "", "what this session is for")
	start.Flags().IntVarP(&minutes, "minutes", "m", int(focus.DefaultFocus/time.Minute), "session length")

	var breakMinutes int
	brk := &cobra.Command{
		Use:   "break",
		Short: "Start a break",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.timer.StartBreak(time.Duration(breakMinutes) * time.Minute); err != nil {
				return err
			}
			return printTimer(c, c.app.timer.Status())
		},
	}
	brk.Flags().IntVarP(&breakMinutes, "minutes", "m", int(focus.DefaultBreak/time.Minute), "break length")

	simple := func(use, short string, fn func() error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := fn(); err != nil {
					return err
				}
				return printTimer(c, c.app.timer.Status())
			},
		}
	}

	cmd.AddCommand(
		start,
		brk,
		simple("pause", "Pause the running countdown", func() error { return c.app.timer.Pause() }),
		simple("resume", "Resume a paused countdown", func() error { return c.app.timer.Resume() }),
		simple("reset", "Abandon the countdown", func() error { c.app.timer.Reset(); return nil }),
		simple("status", "Show the countdown", func() error { return nil }),
		&cobra.Command{
			Use:   "watch",
			Short: "Follow the countdown until it completes",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return watchTimer(cmd.Context(), c)
			},
		},
	)
	return cmd
}

func watchTimer(ctx context.Context, c *cli) error {
	t := c.app.timer
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.OnComplete(func(bool) { cancel() })

	if st := t.Status(); st.State == focus.StateIdle || st.State == focus.StatePaused {
		return printTimer(c, st)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.Run(ctx)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		st := t.Status()
		fmt.Fprintf(c.out, "\r%s %s ", stateLabel(st), clock(st.Remaining))
		select {
		case <-ctx.Done():
			<-done
			fmt.Fprintln(c.out)
			return nil
		case <-ticker.C:
		}
	}
}

func printTimer(c *cli, st focus.Status) error {
	if st.State == focus.StateIdle {
		fmt.Fprintln(c.out, dimStyle.Render("timer idle"))
		return nil
	}
	line := fmt.Sprintf("%s %s / %s", stateLabel(st), clock(st.Remaining), clock(st.Duration))
	if st.Label != "" {
		line += dimStyle.Render(" " + st.Label)
	}
	fmt.Fprintln(c.out, line)
	return nil
}

func stateLabel(st focus.Status) string {
	if st.State == focus.StatePaused {
		return titleStyle.Render("paused") + dimStyle.Render(" ("+string(st.PausedFrom)+")")
	}
	return titleStyle.Render(strings.ToLower(string(st.State)))
}

func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}
