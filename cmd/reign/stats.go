package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"reign/internal/analytics"
)

var heatLevels = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("22")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
}

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("13")).
	Padding(0, 1)

func newStatsCmd(c *cli) *cobra.Command {
	var weeks int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Completion rate, the last seven days and the activity heatmap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc := c.app.store.GetData()
			now := time.Now()

			s := analytics.Compute(doc)
			mood := analytics.Mood(doc)
			summary := strings.Join([]string{
				titleStyle.Render("Overview"),
				fmt.Sprintf("days logged      %d", s.TotalDays),
				fmt.Sprintf("tasks            %d/%d (%d%%)", s.CompletedTasks, s.TotalTasks, s.CompletionRate),
				fmt.Sprintf("learning streak  %d", doc.Learning.Streak),
				fmt.Sprintf("mood / energy    %.1f / %.1f", mood.AvgMood, mood.AvgEnergy),
			}, "\n")

			var week []string
			week = append(week, titleStyle.Render("Last 7 days"))
			for _, d := range analytics.Last7Days(doc, now) {
				bar := strings.Repeat("■", d.TasksCompleted) + dimStyle.Render(strings.Repeat("□", d.TotalTasks-d.TasksCompleted))
				week = append(week, fmt.Sprintf("%s %s %s", d.Weekday, dimStyle.Render(d.Date[5:]), bar))
			}

			fmt.Fprintln(c.out, lipgloss.JoinHorizontal(lipgloss.Top,
				boxStyle.Render(summary), " ", boxStyle.Render(strings.Join(week, "\n"))))

			if cats := analytics.ByCategory(doc); len(cats) > 0 {
				fmt.Fprintln(c.out, titleStyle.Render("Categories"))
				for _, cs := range cats {
					fmt.Fprintf(c.out, "  %-16s %d/%d  %s\n", cs.Category, cs.Completed, cs.Total,
						dimStyle.Render(fmt.Sprintf("%.0f min est.", cs.EstimatedMinutes)))
				}
			}
			if tags := analytics.TopTags(doc, 5); len(tags) > 0 {
				parts := make([]string, 0, len(tags))
				for _, t := range tags {
					parts = append(parts, fmt.Sprintf("#%s(%d)", t.Tag, t.Count))
				}
				fmt.Fprintln(c.out, titleStyle.Render("Idea tags")+" "+strings.Join(parts, " "))
			}

			fmt.Fprintln(c.out, titleStyle.Render("Activity"))
			fmt.Fprint(c.out, renderHeatmap(analytics.Heatmap(doc, now, weeks*7)))
			return nil
		},
	}
	cmd.Flags().IntVar(&weeks, "weeks", 12, "weeks shown in the heatmap")
	return cmd
}

// renderHeatmap lays cells out as seven rows, one column per week.
func renderHeatmap(cells []analytics.HeatCell) string {
	rows := make([]strings.Builder, 7)
	for i, cell := range cells {
		rows[i%7].WriteString(heatLevels[cell.Level].Render("■"))
	}
	var b strings.Builder
	for i := range rows {
		b.WriteString("  ")
		b.WriteString(rows[i].String())
		b.WriteByte('\n')
	}
	return b.String()
}
