package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/chain"
	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/copilot"
	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/fleet"
)

// newBotsCmd creates the `fleetclaw bots` command.
func newBotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bots",
		Short: "List the fleet with live balances",
		Long: `Prints the configured fleet. With --balances the current on-chain
balance of every bot is fetched in parallel.`,
		Args: cobra.NoArgs,
		RunE: runBots,
	}
	cmd.Flags().BoolP("balances", "b", false, "fetch live on-chain balances")
	return cmd
}

func runBots(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	bots := make([]fleet.Bot, len(cfg.Fleet))
	for i, b := range cfg.Fleet {
		bots[i] = fleet.Bot{Name: b.Name, Address: b.Address}
	}
	reg, err := fleet.New(bots)
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		fmt.Println("No bots configured.")
		return nil
	}

	balances := map[string]string{}
	if withBalances, _ := cmd.Flags().GetBool("balances"); withBalances {
		balances, err = fetchBalances(cmd.Context(), cfg, reg)
		if err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tBALANCE")
	for _, b := range reg.All() {
		balance := balances[b.Name]
		if balance == "" {
			balance = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, b.Address, balance)
	}
	return w.Flush()
}

// fetchBalances fans the balance lookup out across the fleet.
func fetchBalances(ctx context.Context, cfg *copilot.Config, reg *fleet.Fleet) (map[string]string, error) {
	cli, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	addrByName := make(map[string]string, reg.Len())
	for _, b := range reg.All() {
		addrByName[b.Name] = b.Address
	}

	results, err := copilot.FanOut(ctx, reg.Names(), func(ctx context.Context, identity string) (string, error) {
		return cli.Balance(ctx, addrByName[identity])
	}, nil, cfg.Agent.FanOutWorkers)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(results))
	for _, r := range results {
		if r.Err != nil {
			out[r.Identity] = "error: " + r.Err.Error()
			continue
		}
		out[r.Identity] = r.Output + " ETH"
	}
	return out, nil
}
