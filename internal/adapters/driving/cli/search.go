package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perch-labs/perch/internal/core/services"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed posts",
	Long: `Runs a semantic similarity search against the vector index.
Results reflect the last completed reconciliation and may be slightly
stale while the blog is unreachable.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", services.DefaultSearchLimit,
		"maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	closer, err := ensureServices()
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck

	results, err := library.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results.")
		return nil
	}

	cmd.Printf("Results: %d\n", len(results))
	for i, result := range results {
		cmd.Printf("%2d. %s (%.2f)\n", i+1, result.Title, result.Score)
		cmd.Printf("    %s\n", result.URL)
		if result.Excerpt != "" {
			cmd.Printf("    %s\n", result.Excerpt)
		}
	}
	return nil
}
