package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/copilot"
)

// newAuditCmd creates the `fleetclaw audit` command.
func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent state-changing operations",
		Long:  `Prints the local audit trail of executed mutating tool calls, newest first.`,
		Args:  cobra.NoArgs,
		RunE:  runAudit,
	}
	cmd.Flags().IntP("limit", "n", 20, "number of entries to show")
	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := copilot.OpenAuditLog(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer log.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := log.Recent(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No recorded operations.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTOOL\tSTATUS\tINPUT")
	for _, e := range entries {
		input := e.Input
		if len(input) > 60 {
			input = input[:60] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Tool, e.Status, input)
	}
	return w.Flush()
}
