package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	resetCmd.Flags().BoolVar(&resetConfirm, "yes", false, "Confirm the reset")
	rootCmd.AddCommand(resetCmd)
}

var resetConfirm bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all progression (XP, streak, achievements, rewards)",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetConfirm {
		return errors.New("reset erases all progression; re-run with --yes to confirm")
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	d.Store.Reset()
	fmt.Fprintf(cmd.OutOrStdout(), "Progression %q reset.\n", d.Store.Key())
	return nil
}
