package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Record today's login and extend the streak",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	res := d.Store.RecordLogin()
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}

	out := cmd.OutOrStdout()
	if !res.Counted {
		fmt.Fprintf(out, "Already checked in today (%s). Streak: %d days\n", res.Today, res.Streak)
		return nil
	}
	fmt.Fprintf(out, "Checked in for %s. Streak: %d days, +%d XP\n", res.Today, res.Streak, res.XPAwarded)
	if res.MilestoneBonus > 0 {
		fmt.Fprintf(out, "Streak milestone! +%d bonus XP\n", res.MilestoneBonus)
	}
	printUnlocked(cmd, d.Catalog.Achievements, res.Achievements)
	return nil
}
