package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusHistoryLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show reconciliation state and recent history",
	Long: `Prints the last successful reconciliation and the most recent
passes with their outcomes.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusHistoryLimit, "limit", "n", 10,
		"number of history entries to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	closer, err := ensureServices()
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck

	if states == nil {
		cmd.Println("No state store configured.")
		return nil
	}

	ctx := cmd.Context()

	last, err := states.LastSuccess(ctx)
	if err != nil {
		return fmt.Errorf("reading sync state: %w", err)
	}
	if last.IsZero() {
		cmd.Println("Last clean pass: never")
	} else {
		cmd.Printf("Last clean pass: %s\n", last.UTC().Format(time.RFC3339))
	}

	history, err := states.History(ctx, statusHistoryLimit)
	if err != nil {
		return fmt.Errorf("reading report history: %w", err)
	}
	if len(history) == 0 {
		cmd.Println("No passes recorded.")
		return nil
	}

	cmd.Println("Recent passes:")
	for _, report := range history {
		scope := "full"
		if report.Key != "" {
			scope = report.Key
		}
		cmd.Printf("  %s %-7s %s: %d created, %d updated, %d deleted, %d unchanged, %d failed\n",
			report.StartedAt.UTC().Format(time.RFC3339), report.Reason, scope,
			report.Created, report.Updated, report.Deleted, report.Unchanged, report.Failed)
	}
	return nil
}
