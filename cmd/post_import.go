package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/store"
)

var importSubmit bool

var postImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import posts from a YAML file",
	Long: `Import posts from a YAML file. Each entry names its client:

  posts:
    - client: acme
      title: Launch day
      content: |
        We shipped the thing.

Clients must already exist. Pass --submit to send every imported post
for client review.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postImportRun(args[0])
	},
}

func init() {
	postImportCmd.Flags().BoolVar(&importSubmit, "submit", false, "Submit imported posts for client review")
	postCmd.AddCommand(postImportCmd)
}

// importFile is the YAML layout accepted by post import.
type importFile struct {
	Posts []importedPost `yaml:"posts"`
}

type importedPost struct {
	Client  string `yaml:"client"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// parseImportFile decodes and validates an import file.
func parseImportFile(data []byte) ([]importedPost, error) {
	var f importFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if len(f.Posts) == 0 {
		return nil, fmt.Errorf("no posts found (expected a top-level 'posts' list)")
	}
	for i := range f.Posts {
		f.Posts[i].Content = strings.TrimSpace(f.Posts[i].Content)
		if f.Posts[i].Client == "" {
			return nil, fmt.Errorf("post %d: client is required", i+1)
		}
		if f.Posts[i].Content == "" {
			return nil, fmt.Errorf("post %d: content is required", i+1)
		}
	}
	return f.Posts, nil
}

func postImportRun(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	entries, err := parseImportFile(data)
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	// Resolve every client before writing anything.
	clients := make(map[string]*models.Client)
	for _, e := range entries {
		if _, ok := clients[e.Client]; ok {
			continue
		}
		c, err := resolveClient(ctx, s, e.Client)
		if err != nil {
			return err
		}
		clients[e.Client] = c
	}

	if dryRun {
		for _, e := range entries {
			ui.DryRunMsg("Would import %q for %s", e.Title, clients[e.Client].Name)
		}
		return nil
	}

	return importPosts(ctx, s, entries, clients)
}

func importPosts(ctx context.Context, s store.Store, entries []importedPost, clients map[string]*models.Client) error {
	created := 0
	for _, e := range entries {
		p := &models.Post{
			ClientID: clients[e.Client].ID,
			Title:    e.Title,
			Content:  e.Content,
			Status:   models.PostStatusDraft,
		}
		if err := s.CreatePost(ctx, p); err != nil {
			return fmt.Errorf("import %q: %w", e.Title, err)
		}
		if importSubmit {
			if _, err := store.SubmitPost(ctx, s, p.ID, "imported"); err != nil {
				return fmt.Errorf("submit %q: %w", e.Title, err)
			}
		}
		created++
		ui.VerboseLog("Imported %s: %s", shortID(p.ID), e.Title)
	}
	ui.Success("Imported %d posts", created)
	return nil
}
