package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/blank-marketing/blank/internal/domain"
)

func init() {
	shopCmd.AddCommand(shopListCmd, shopBuyCmd)
	rootCmd.AddCommand(shopCmd)
}

var shopCmd = &cobra.Command{
	Use:   "shop",
	Short: "Spend XP on rewards",
	RunE:  runShopList,
}

var shopListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List rewards and your balance",
	Args:    cobra.NoArgs,
	RunE:    runShopList,
}

var shopBuyCmd = &cobra.Command{
	Use:   "buy ID",
	Short: "Buy a reward with XP",
	Args:  cobra.ExactArgs(1),
	RunE:  runShopBuy,
}

func runShopList(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	balance := d.Store.State().CurrentXP
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"balance": balance,
			"rewards": d.Catalog.Rewards,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Balance: %s XP\n\n", formatXP(balance))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREWARD\tCOST\tEFFECT")
	for _, r := range d.Catalog.Rewards {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\n", r.ID, r.Icon, r.Name, formatXP(r.Cost), rewardEffect(r))
	}
	return w.Flush()
}

func runShopBuy(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	ok, err := d.Store.PurchaseReward(args[0])
	if err != nil {
		return err
	}
	st := d.Store.State()
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"ok": ok, "reward": args[0], "balance": st.CurrentXP})
	}

	r, _ := d.Catalog.Reward(args[0])
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Not enough XP: %s costs %s, you have %s.\n",
			r.Name, formatXP(r.Cost), formatXP(st.CurrentXP))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Purchased %s. Balance: %s XP\n", r.Name, formatXP(st.CurrentXP))
	if r.Type == domain.RewardPremiumTrial && st.PremiumTrialUntil != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Premium active until %s\n", st.PremiumTrialUntil.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func rewardEffect(r domain.Reward) string {
	switch r.Type {
	case domain.RewardBonusAnalysis:
		return fmt.Sprintf("+%d analysis", r.Quantity)
	case domain.RewardPremiumTrial:
		return fmt.Sprintf("%d-day premium", r.TrialDays)
	}
	return string(r.Type)
}
