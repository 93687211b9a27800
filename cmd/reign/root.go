package main

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"reign/internal/journal"
)

// Commands carrying this annotation skip the start-up download.
const skipPull = "reign/skip-pull"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "reign",
		Short:         "Plan the morning, reflect in the evening, keep the streak",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.open(); err != nil {
				return err
			}
			if cmd.Annotations[skipPull] == "" {
				c.app.pull(cmd.Context())
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (default $XDG_CONFIG_HOME/reign/reign.yaml)")

	root.AddCommand(
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newSyncCmd(c),
		newStatusCmd(c),
		newTaskCmd(c),
		newMorningCmd(c),
		newEveningCmd(c),
		newIdeaCmd(c),
		newLessonCmd(c),
		newGoodCmd(c),
		newLearnCmd(c),
		newStatsCmd(c),
		newTimerCmd(c),
	)
	return root
}

func offline(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[skipPull] = "true"
	return cmd
}

func addDayFlag(cmd *cobra.Command, day *string) {
	cmd.Flags().StringVar(day, "day", journal.Day(time.Now()), "day as YYYY-MM-DD")
}
