package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/swipe/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an assistant stage posts and run a review session on a client's
behalf. Configure in Claude Code with:

  {
    "mcpServers": {
      "swipe": { "command": "swipe", "args": ["mcp"] }
    }
  }

Available tools: swipe_list_clients, swipe_list_posts, swipe_create_post,
swipe_submit_post, swipe_review_load, swipe_review_status, swipe_decide,
swipe_undo, swipe_retry`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	// stdout carries the protocol.
	ui.Out = os.Stderr

	s, err := getStore()
	if err != nil {
		return err
	}
	defer closeStore()

	shutdownTracing := initTracing()
	defer func() { _ = shutdownTracing(context.Background()) }()

	pub := newPublisher()
	defer func() { _ = pub.Close() }()

	coord := newCoordinator(s, pub)
	defer coord.Wait()

	return mcp.NewServer(s, coord).ServeStdio(ctx)
}
