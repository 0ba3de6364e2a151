package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/swipe/internal/llm"
	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/output"
	"github.com/joescharf/swipe/internal/store"
)

var (
	postTitle   string
	postContent string
	postFile    string
	postSubmit  bool
	postStatus  string
	postNote    string
	postTone    string
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Manage ghostwritten posts",
	Long:  "Create, submit, and inspect posts that clients review.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postListRun("")
	},
}

var postAddCmd = &cobra.Command{
	Use:   "add <client>",
	Short: "Add a draft post for a client",
	Long: `Add a draft post. The body comes from --content, --file, or stdin
(use --file -). Pass --submit to send it for client review right away.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postAddRun(args[0])
	},
}

var postListCmd = &cobra.Command{
	Use:     "list [client]",
	Aliases: []string{"ls"},
	Short:   "List posts",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var clientRef string
		if len(args) > 0 {
			clientRef = args[0]
		}
		return postListRun(clientRef)
	},
}

var postShowCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Show post details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postShowRun(args[0])
	},
}

var postSubmitCmd = &cobra.Command{
	Use:   "submit <post-id>",
	Short: "Send a draft or declined post to the client for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postSubmitRun(args[0])
	},
}

var postHistoryCmd = &cobra.Command{
	Use:   "history <post-id>",
	Short: "Show the status history of a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postHistoryRun(args[0])
	},
}

var postDraftCmd = &cobra.Command{
	Use:   "draft <client> <brief>",
	Short: "Draft a post from a brief with Claude",
	Long: `Ask Claude to ghostwrite a post from a short brief. The result is saved
as a draft for the client.

Requires ANTHROPIC_API_KEY environment variable or anthropic.api_key in config.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postDraftRun(cmd.Context(), args[0], args[1])
	},
}

var postRemoveCmd = &cobra.Command{
	Use:     "remove <post-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a post",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postRemoveRun(args[0])
	},
}

func init() {
	postAddCmd.Flags().StringVar(&postTitle, "title", "", "Short internal title")
	postAddCmd.Flags().StringVar(&postContent, "content", "", "Post body")
	postAddCmd.Flags().StringVar(&postFile, "file", "", "Read the post body from a file (- for stdin)")
	postAddCmd.Flags().BoolVar(&postSubmit, "submit", false, "Submit for client review after adding")

	postListCmd.Flags().StringVar(&postStatus, "status", "", "Filter by status: draft, pending_client, client_approved, client_rejected, client_edited, published")

	postSubmitCmd.Flags().StringVar(&postNote, "note", "", "Note recorded with the transition")

	postDraftCmd.Flags().StringVar(&postTone, "tone", "", "Tone to write in (e.g. candid, celebratory)")
	postDraftCmd.Flags().BoolVar(&postSubmit, "submit", false, "Submit for client review after drafting")

	postCmd.AddCommand(postAddCmd)
	postCmd.AddCommand(postListCmd)
	postCmd.AddCommand(postShowCmd)
	postCmd.AddCommand(postSubmitCmd)
	postCmd.AddCommand(postHistoryCmd)
	postCmd.AddCommand(postDraftCmd)
	postCmd.AddCommand(postRemoveCmd)
	rootCmd.AddCommand(postCmd)
}

func readPostBody() (string, error) {
	if postContent != "" {
		return postContent, nil
	}
	switch postFile {
	case "":
		return "", fmt.Errorf("post body is required (use --content or --file)")
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		data, err := os.ReadFile(postFile)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
}

func postAddRun(clientRef string) error {
	body, err := readPostBody()
	if err != nil {
		return err
	}
	if body == "" {
		return fmt.Errorf("post body is empty")
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	c, err := resolveClient(ctx, s, clientRef)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would add post %q for %s", postTitle, c.Name)
		return nil
	}

	p := &models.Post{ClientID: c.ID, Title: postTitle, Content: body, Status: models.PostStatusDraft}
	if err := s.CreatePost(ctx, p); err != nil {
		return err
	}
	ui.Success("Added post %s for %s", shortID(p.ID), c.Name)

	if postSubmit {
		return submitAndReport(ctx, s, p.ID, "")
	}
	return nil
}

func postListRun(clientRef string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.PostListFilter{Status: models.PostStatus(postStatus)}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("invalid status: %s", postStatus)
	}
	if clientRef != "" {
		c, err := resolveClient(ctx, s, clientRef)
		if err != nil {
			return err
		}
		filter.ClientID = c.ID
	}

	posts, err := s.ListPosts(ctx, filter)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		ui.Info("No posts found.")
		return nil
	}

	clientNames := make(map[string]string)

	table := ui.Table([]string{"ID", "Client", "Title", "Status", "Updated"})
	for _, p := range posts {
		name, ok := clientNames[p.ClientID]
		if !ok {
			if c, err := s.GetClient(ctx, p.ClientID); err == nil {
				name = c.Name
			}
			clientNames[p.ClientID] = name
		}
		title := p.Title
		if title == "" {
			title = output.Truncate(p.Content, 40)
		}
		_ = table.Append([]string{
			shortID(p.ID),
			name,
			title,
			output.StatusColor(string(p.Status)),
			p.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	_ = table.Render()
	return nil
}

func postShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := findPost(ctx, s, id)
	if err != nil {
		return err
	}

	clientName := ""
	if c, err := s.GetClient(ctx, p.ClientID); err == nil {
		clientName = c.Name
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(p.ID)), p.Title)
	fmt.Fprintf(ui.Out, "  Client:     %s\n", clientName)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(p.Status)))
	fmt.Fprintf(ui.Out, "  Created:    %s\n", p.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", p.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Full ID:    %s\n", p.ID)
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, p.Content)
	return nil
}

func postSubmitRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := findPost(ctx, s, id)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would submit %s for client review", shortID(p.ID))
		return nil
	}
	return submitAndReport(ctx, s, p.ID, postNote)
}

func submitAndReport(ctx context.Context, s store.Store, id, note string) error {
	p, err := store.SubmitPost(ctx, s, id, note)
	if err != nil {
		return err
	}
	ui.Success("Submitted %s for client review", shortID(p.ID))
	return nil
}

func postHistoryRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := findPost(ctx, s, id)
	if err != nil {
		return err
	}
	transitions, err := s.ListTransitions(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(transitions) == 0 {
		ui.Info("No status changes recorded for %s.", shortID(p.ID))
		return nil
	}

	table := ui.Table([]string{"When", "From", "To", "Note"})
	for _, t := range transitions {
		_ = table.Append([]string{
			t.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			output.StatusColor(string(t.FromStatus)),
			output.StatusColor(string(t.ToStatus)),
			t.Note,
		})
	}
	_ = table.Render()
	return nil
}

func postDraftRun(ctx context.Context, clientRef, brief string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	c, err := resolveClient(ctx, s, clientRef)
	if err != nil {
		return err
	}

	client, err := requireLLMClient()
	if err != nil {
		return err
	}
	ui.Info("Drafting a post for %s...", c.Name)
	drafted, err := client.DraftPost(ctx, llm.DraftRequest{
		Brief:   brief,
		Client:  c.Name,
		Company: c.Company,
		Tone:    postTone,
	})
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would save draft %q", drafted.Title)
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, drafted.Content)
		return nil
	}

	p := &models.Post{ClientID: c.ID, Title: drafted.Title, Content: drafted.Content, Status: models.PostStatusDraft}
	if err := s.CreatePost(ctx, p); err != nil {
		return err
	}
	ui.Success("Saved draft %s: %s", shortID(p.ID), p.Title)
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, p.Content)

	if postSubmit {
		return submitAndReport(ctx, s, p.ID, "drafted")
	}
	return nil
}

func postRemoveRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := findPost(ctx, s, id)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would remove post %s", shortID(p.ID))
		return nil
	}
	if err := s.DeletePost(ctx, p.ID); err != nil {
		return err
	}
	ui.Success("Removed post %s", shortID(p.ID))
	return nil
}

// findPost resolves a post by full ID or unique ID prefix.
func findPost(ctx context.Context, s store.Store, id string) (*models.Post, error) {
	if p, err := s.GetPost(ctx, id); err == nil {
		return p, nil
	}

	posts, err := s.ListPosts(ctx, store.PostListFilter{})
	if err != nil {
		return nil, err
	}
	var matches []*models.Post
	upper := strings.ToUpper(id)
	for _, p := range posts {
		if strings.HasPrefix(p.ID, upper) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("post not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous post ID %s: matches %d posts", id, len(matches))
	}
}
