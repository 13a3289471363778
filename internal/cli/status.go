package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/blank-marketing/blank/internal/app/progression"
	"github.com/blank-marketing/blank/internal/daemon"
)

var statusAll bool

func init() {
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "List every stored progression record (sqlite backend)")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show rank, XP, streak and today's missions",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

const labelWidth = 12

var (
	styleCard = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleDim = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if statusAll {
		return listRecords(cmd, d)
	}

	v := d.Store.View()
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(v, len(d.Catalog.Missions)))
	return nil
}

// listRecords prints every record in the database, newest first.
func listRecords(cmd *cobra.Command, d *daemon.Daemon) error {
	if d.DB == nil {
		return fmt.Errorf("--all needs the %s backend, configured backend is %s", daemon.BackendSQLite, d.Config.Store.Backend)
	}
	infos, err := d.DB.ListProgressions(cmd.Context())
	if err != nil {
		return fmt.Errorf("list progressions: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored progression records.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVERSION\tUPDATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%d\t%s\n", info.Key, info.Version, info.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// renderStatus draws the rank card.
func renderStatus(v progression.View, missionCount int) string {
	st := v.State
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(v.Rank.Color)).
		Render(strings.TrimSpace(v.Rank.Icon + " " + v.Rank.Name))

	row := func(label, value string) string {
		return styleLabel.Render(label) + styleValue.Render(value)
	}

	lines := []string{
		title,
		"",
		row("Total XP", formatXP(st.TotalXP)),
		row("Balance", formatXP(st.CurrentXP)),
	}
	if v.NextRank != nil {
		lines = append(lines,
			row("Next rank", fmt.Sprintf("%s (%s XP to go)", v.NextRank.Name, formatXP(v.XPToNextRank))),
			renderBar(v.RankProgress),
		)
	} else {
		lines = append(lines, row("Next rank", "max rank reached"))
	}

	streak := fmt.Sprintf("%d days", st.LoginStreak)
	if st.LongestStreak > st.LoginStreak {
		streak += styleDim.Render(fmt.Sprintf(" (best %d)", st.LongestStreak))
	}
	lines = append(lines,
		"",
		row("Streak", streak),
	)
	if m := v.NextMilestone; m != nil {
		lines = append(lines, row("Next bonus", fmt.Sprintf("+%s XP at %d days", formatXP(m.Bonus), m.Streak)))
	}
	lines = append(lines,
		row("Missions", fmt.Sprintf("%d/%d today", len(v.CompletedToday), missionCount)),
		row("Achievements", fmt.Sprintf("%d", len(st.UnlockedAchievements))),
		row("Bonus", fmt.Sprintf("%d analysis", st.BonusAnalysisCount)),
	)
	if v.PremiumActive && st.PremiumTrialUntil != nil {
		lines = append(lines, row("Premium", "until "+st.PremiumTrialUntil.Local().Format("2006-01-02 15:04")))
	}

	return styleCard.Render(strings.Join(lines, "\n"))
}
