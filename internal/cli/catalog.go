package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blank-marketing/blank/internal/infra/catalog"
)

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect reference tables",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a YAML catalog file before deploying it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogValidate,
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	c, err := catalog.Load(args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d ranks, %d achievements, %d rewards, %d missions\n",
		args[0], len(c.Ranks), len(c.Achievements), len(c.Rewards), len(c.Missions))
	return nil
}
