package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/perch-labs/perch/internal/adapters/driving/mcp"
	"github.com/perch-labs/perch/internal/adapters/driving/webhook"
	"github.com/perch-labs/perch/internal/core/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server together with the
background poll loop that keeps the index in sync.

By default the server communicates over stdio using JSON-RPC and can
be used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to serve streamable HTTP instead. In HTTP mode, Ghost
webhooks are accepted at /hooks/ghost when a webhook secret is
configured, so edits propagate without waiting for the next poll.

Examples:
  # Stdio mode (default, for Claude Desktop)
  perch serve

  # HTTP mode (remote access, webhooks)
  perch serve --port 8787`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	closer, err := ensureServices()
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck

	server, err := mcp.NewServer(&mcp.Ports{
		Library:    library,
		Reconciler: reconciler,
	})
	if err != nil {
		return err
	}

	interval := services.DefaultPollInterval
	if appConfig != nil && appConfig.Sync.PollInterval > 0 {
		interval = appConfig.Sync.PollInterval.Std()
	}
	scheduler := services.NewScheduler(reconciler, interval)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return scheduler.Start(ctx)
	})
	group.Go(func() error {
		// Server exit (stdio EOF or HTTP shutdown) stops the poll loop.
		defer cancel()

		if port > 0 {
			addr := fmt.Sprintf(":%d", port)

			extra := map[string]http.Handler{}
			if appConfig != nil && appConfig.Server.WebhookSecret != "" {
				hook := webhook.NewHandler(reconciler, appConfig.Server.WebhookSecret)
				defer hook.Wait()
				extra["/hooks/ghost"] = hook
			}

			fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(ctx, addr, extra)
		}
		return server.Run(ctx)
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
