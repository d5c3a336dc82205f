package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/perch-labs/perch/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync [post]",
	Short: "Reconcile the index with the blog",
	Long: `Runs one reconciliation pass against the blog and reports what
changed. With a post argument (slug or URL), only that post is
reconciled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	closer, err := ensureServices()
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck

	trigger := domain.Trigger{Reason: domain.ReasonManual}
	if len(args) > 0 {
		trigger.Key = args[0]
		cmd.Printf("Reconciling %s...\n", args[0])
	} else {
		cmd.Println("Reconciling all posts...")
	}

	report, err := reconciler.Trigger(cmd.Context(), trigger)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if report.Coalesced {
		cmd.Println("A reconciliation is already in flight; nothing to do.")
		return nil
	}

	cmd.Printf("Done in %s: %d created, %d updated, %d deleted, %d unchanged, %d failed\n",
		report.Duration.Round(10*time.Millisecond), report.Created, report.Updated,
		report.Deleted, report.Unchanged, report.Failed)

	for _, failure := range report.Failures {
		cmd.Printf("  failed %s on %s: %s\n", failure.Op, failure.Key, failure.Message)
	}

	if report.Failed > 0 {
		return fmt.Errorf("sync completed with %d failures", report.Failed)
	}
	return nil
}
