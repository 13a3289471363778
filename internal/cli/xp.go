package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blank-marketing/blank/internal/domain"
)

func init() {
	xpCmd.AddCommand(xpAwardCmd)
	rootCmd.AddCommand(xpCmd)
}

var xpCmd = &cobra.Command{
	Use:   "xp",
	Short: "Manage XP",
}

var xpAwardCmd = &cobra.Command{
	Use:   "award AMOUNT",
	Short: "Award XP (for admin and testing)",
	Args:  cobra.ExactArgs(1),
	RunE:  runXPAward,
}

func runXPAward(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("amount %q is not a number", args[0])
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Store.AwardXP(amount)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "+%s XP (total %s, balance %s)\n",
		formatXP(res.Amount), formatXP(res.TotalXP), formatXP(res.CurrentXP))
	if res.RankUp {
		fmt.Fprintf(cmd.OutOrStdout(), "Rank up! You are now %s\n", d.Store.CurrentRank().Name)
	}
	printUnlocked(cmd, d.Catalog.Achievements, res.Achievements)
	return nil
}

// printUnlocked announces newly unlocked achievements by name.
func printUnlocked(cmd *cobra.Command, all []domain.Achievement, ids []string) {
	for _, id := range ids {
		name := id
		for _, a := range all {
			if a.ID == id {
				name = a.Icon + " " + a.Name
				break
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Achievement unlocked: %s\n", name)
	}
}
