package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/swipe/internal/gesture"
	"github.com/joescharf/swipe/internal/motion"
	"github.com/joescharf/swipe/internal/output"
	"github.com/joescharf/swipe/internal/review"
	"github.com/joescharf/swipe/internal/tui"
)

var reviewCmd = &cobra.Command{
	Use:   "review <client>",
	Short: "Swipe through a client's pending posts",
	Long: `Open the review queue for a client.

Drag the card right (or press a/→) to approve, left (d/←) to decline,
and up (e/↑) to edit. Press u to undo the last decision, r to retry a
failed write, and q to quit. Writes that are still in flight when you
quit are allowed to finish.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(ctx context.Context, clientRef string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	gestureCfg := gesture.DefaultConfig()
	if err := gestureCfg.Validate(); err != nil {
		return fmt.Errorf("invalid gesture config: %w", err)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := resolveClient(ctx, s, clientRef)
	if err != nil {
		return err
	}

	shutdownTracing := initTracing()
	defer func() { _ = shutdownTracing(context.Background()) }()

	pub := newPublisher()
	defer func() { _ = pub.Close() }()

	coord := newCoordinator(s, pub, newBuzzer())
	if err := coord.Load(ctx, c.ID); err != nil {
		return fmt.Errorf("load review queue: %w", err)
	}
	if coord.IsExhausted() {
		ui.Info("Nothing awaiting review for %s.", c.Name)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would review %d posts for %s", coord.Remaining(), c.Name)
		return nil
	}

	m := tui.New(ctx, coord, tui.Config{
		ClientName: c.Name,
		Motion:     motion.DefaultConfig(),
		Gesture:    gestureCfg,
	})
	runErr := tui.Run(ctx, m)

	// Let background writes land before reporting.
	coord.Wait()
	reviewSummary(c.Name, coord.Snapshot())
	return runErr
}

func reviewSummary(clientName string, snap review.Snapshot) {
	fmt.Fprintf(ui.Out, "  Reviewed:  %s\n", output.Progress(snap.Cursor, snap.Total))
	fmt.Fprintf(ui.Out, "  Approved:  %d\n", snap.Tally.Approved)
	fmt.Fprintf(ui.Out, "  Declined:  %d\n", snap.Tally.Declined)
	fmt.Fprintf(ui.Out, "  Edited:    %d\n", snap.Tally.Edited)
	for _, id := range snap.Failed {
		ui.Warning("Write for %s did not land and the post is still pending; run 'swipe review %s' again", shortID(id), clientName)
	}
}
