package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/store"
)

var clientCompany string

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients",
	Long:  "Clients own the posts that are reviewed in a swipe session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return clientListRun()
	},
}

var clientAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return clientAddRun(args[0])
	},
}

var clientListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		return clientListRun()
	},
}

var clientRemoveCmd = &cobra.Command{
	Use:     "remove <client>",
	Aliases: []string{"rm"},
	Short:   "Remove a client and all of its posts",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return clientRemoveRun(args[0])
	},
}

func init() {
	clientAddCmd.Flags().StringVar(&clientCompany, "company", "", "Company the client represents")

	clientCmd.AddCommand(clientAddCmd)
	clientCmd.AddCommand(clientListCmd)
	clientCmd.AddCommand(clientRemoveCmd)
	rootCmd.AddCommand(clientCmd)
}

func clientAddRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if _, err := s.GetClientByName(ctx, name); err == nil {
		return fmt.Errorf("client already exists: %s", name)
	}

	if dryRun {
		ui.DryRunMsg("Would add client: %s", name)
		return nil
	}

	c := &models.Client{Name: name, Company: clientCompany}
	if err := s.CreateClient(ctx, c); err != nil {
		return err
	}
	ui.Success("Added client %s (%s)", name, shortID(c.ID))
	return nil
}

func clientListRun() error {
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

	table := ui.Table([]string{"ID", "Name", "Company", "Pending"})
	for _, c := range clients {
		counts, _ := s.CountByStatus(ctx, c.ID)
		_ = table.Append([]string{
			shortID(c.ID),
			c.Name,
			c.Company,
			fmt.Sprintf("%d", counts[models.PostStatusPendingClient]),
		})
	}
	_ = table.Render()
	return nil
}

func clientRemoveRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	c, err := resolveClient(ctx, s, ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove client %s and its posts", c.Name)
		return nil
	}
	if err := s.DeleteClient(ctx, c.ID); err != nil {
		return err
	}
	ui.Success("Removed client %s", c.Name)
	return nil
}

// resolveClient finds a client by ID or name with a friendlier error.
func resolveClient(ctx context.Context, s store.Store, ref string) (*models.Client, error) {
	c, err := store.ResolveClient(ctx, s, ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("client not found: %s (see 'swipe client list')", ref)
	}
	return c, err
}

// shortID returns a truncated ULID for display (first 12 chars).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
