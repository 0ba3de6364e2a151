package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/output"
)

var statusPending bool

var statusCmd = &cobra.Command{
	Use:   "status [client]",
	Short: "Show the review dashboard",
	Long: `Show post counts by status for every client.

With a client name, lists that client's posts instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return postListRun(args[0]) // reuse post list for detail
		}
		return statusOverviewRun()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusPending, "pending", false, "Show only clients with posts awaiting review")
	rootCmd.AddCommand(statusCmd)
}

func statusOverviewRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	clients, err := s.ListClients(ctx)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		ui.Info("No clients yet. Use 'swipe client add <name>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Client", "Draft", "Pending", "Approved", "Declined", "Edited", "Published", "Reviewed"})

	for _, c := range clients {
		counts, err := s.CountByStatus(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("count posts for %s: %w", c.Name, err)
		}
		pending := counts[models.PostStatusPendingClient]
		if statusPending && pending == 0 {
			continue
		}

		reviewed := counts[models.PostStatusClientApproved] +
			counts[models.PostStatusClientRejected] +
			counts[models.PostStatusClientEdited]

		_ = table.Append([]string{
			output.Cyan(c.Name),
			countCell(counts[models.PostStatusDraft]),
			pendingCell(pending),
			countCell(counts[models.PostStatusClientApproved]),
			countCell(counts[models.PostStatusClientRejected]),
			countCell(counts[models.PostStatusClientEdited]),
			countCell(counts[models.PostStatusPublished]),
			output.Progress(reviewed, reviewed+pending),
		})
	}

	_ = table.Render()
	return nil
}

func countCell(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}

func pendingCell(n int) string {
	if n == 0 {
		return "-"
	}
	return output.Yellow(fmt.Sprintf("%d", n))
}
