package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	missionCmd.AddCommand(missionListCmd, missionCompleteCmd)
	rootCmd.AddCommand(missionCmd)
}

var missionCmd = &cobra.Command{
	Use:     "mission",
	Aliases: []string{"missions"},
	Short:   "List or complete today's missions",
	RunE:    runMissionList,
}

var missionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List today's missions",
	Args:    cobra.NoArgs,
	RunE:    runMissionList,
}

var missionCompleteCmd = &cobra.Command{
	Use:   "complete ID",
	Short: "Complete a mission and collect its XP",
	Args:  cobra.ExactArgs(1),
	RunE:  runMissionComplete,
}

func runMissionList(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	missions := d.Store.Missions()
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), missions)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMISSION\tXP\tDONE")
	for _, m := range missions {
		done := ""
		if m.Completed {
			done = "✓"
		}
		fmt.Fprintf(w, "%s\t%s %s\t%d\t%s\n", m.ID, m.Icon, m.Name, m.XPReward, done)
	}
	return w.Flush()
}

func runMissionComplete(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	ok, err := d.Store.CompleteMission(args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"ok": ok, "mission": args[0]})
	}
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Mission %s is already completed today.\n", args[0])
		return nil
	}
	m, _ := d.Catalog.Mission(args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "Mission complete: %s +%d XP\n", m.Name, m.XPReward)
	return nil
}
