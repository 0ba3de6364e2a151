package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/swipe/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func seedClient(t *testing.T, s *SQLiteStore, name string) *models.Client {
	t.Helper()
	c := &models.Client{Name: name, Company: name + " Inc"}
	require.NoError(t, s.CreateClient(context.Background(), c))
	return c
}

func seedPost(t *testing.T, s *SQLiteStore, clientID, title string, status models.PostStatus) *models.Post {
	t.Helper()
	p := &models.Post{ClientID: clientID, Title: title, Content: title + " body", Status: status}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

// --- Clients ---

func TestClientCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := seedClient(t, s, "acme")
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := s.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Name)
	assert.Equal(t, "acme Inc", got.Company)

	got, err = s.GetClientByName(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	seedClient(t, s, "beta")
	clients, err := s.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "acme", clients[0].Name)

	require.NoError(t, s.DeleteClient(ctx, c.ID))
	_, err = s.GetClient(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteClient(ctx, c.ID), ErrNotFound)
}

func TestClientUniqueName(t *testing.T) {
	s := newTestStore(t)
	seedClient(t, s, "dup")
	err := s.CreateClient(context.Background(), &models.Client{Name: "dup"})
	assert.Error(t, err)
}

// --- Posts ---

func TestPostCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedClient(t, s, "acme")

	p := &models.Post{ClientID: c.ID, Title: "Launch", Content: "We shipped."}
	require.NoError(t, s.CreatePost(ctx, p))
	assert.Equal(t, models.PostStatusDraft, p.Status, "defaults to draft")

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "We shipped.", got.Content)

	got.Content = "We shipped v2."
	require.NoError(t, s.UpdatePost(ctx, got))
	got, err = s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "We shipped v2.", got.Content)

	require.NoError(t, s.DeletePost(ctx, p.ID))
	_, err = s.GetPost(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPosts_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedClient(t, s, "a")
	b := seedClient(t, s, "b")

	seedPost(t, s, a.ID, "one", models.PostStatusPendingClient)
	seedPost(t, s, a.ID, "two", models.PostStatusDraft)
	seedPost(t, s, b.ID, "three", models.PostStatusPendingClient)

	all, err := s.ListPosts(ctx, PostListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	forA, err := s.ListPosts(ctx, PostListFilter{ClientID: a.ID})
	require.NoError(t, err)
	assert.Len(t, forA, 2)

	pending, err := s.ListPosts(ctx, PostListFilter{Status: models.PostStatusPendingClient})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

// --- Review status ---

func TestFetchPending_InsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedClient(t, s, "acme")

	first := seedPost(t, s, c.ID, "first", models.PostStatusPendingClient)
	seedPost(t, s, c.ID, "draft", models.PostStatusDraft)
	second := seedPost(t, s, c.ID, "second", models.PostStatusPendingClient)
	third := seedPost(t, s, c.ID, "third", models.PostStatusPendingClient)

	posts, err := s.FetchPending(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
}

func TestUpdateStatus_RecordsTransition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedClient(t, s, "acme")
	p := seedPost(t, s, c.ID, "post", models.PostStatusPendingClient)

	require.NoError(t, s.UpdateStatus(ctx, p.ID, models.PostStatusClientApproved, models.StatusMeta{Note: "swipe"}))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusClientApproved, got.Status)

	transitions, err := s.ListTransitions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, models.PostStatusPendingClient, transitions[0].FromStatus)
	assert.Equal(t, models.PostStatusClientApproved, transitions[0].ToStatus)
	assert.Equal(t, "swipe", transitions[0].Note)
}

func TestUpdateStatus_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedClient(t, s, "acme")
	p := seedPost(t, s, c.ID, "post", models.PostStatusPendingClient)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.UpdateStatus(ctx, p.ID, models.PostStatusClientRejected, models.StatusMeta{}))
	}

	transitions, err := s.ListTransitions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, transitions, 1, "retries must not double-apply")
}

func TestUpdateStatus_EditReplacesContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedClient(t, s, "acme")
	p := seedPost(t, s, c.ID, "post", models.PostStatusPendingClient)

	meta := models.StatusMeta{Content: "client rewrite"}
	require.NoError(t, s.UpdateStatus(ctx, p.ID, models.PostStatusClientEdited, meta))
	require.NoError(t, s.UpdateStatus(ctx, p.ID, models.PostStatusClientEdited, meta))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "client rewrite", got.Content)
	assert.Equal(t, models.PostStatusClientEdited, got.Status)

	transitions, err := s.ListTransitions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, transitions, 1)

	// A second, different edit is a new transition.
	require.NoError(t, s.UpdateStatus(ctx, p.ID, models.PostStatusClientEdited, models.StatusMeta{Content: "again"}))
	transitions, err = s.ListTransitions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, transitions, 2)
}

func TestUpdateStatus_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpdateStatus(ctx, "missing", models.PostStatusClientApproved, models.StatusMeta{})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateStatus(ctx, "missing", models.PostStatus("bogus"), models.StatusMeta{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}

func TestCountByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedClient(t, s, "a")
	b := seedClient(t, s, "b")
	seedPost(t, s, a.ID, "1", models.PostStatusPendingClient)
	seedPost(t, s, a.ID, "2", models.PostStatusPendingClient)
	seedPost(t, s, a.ID, "3", models.PostStatusClientApproved)
	seedPost(t, s, b.ID, "4", models.PostStatusPendingClient)

	counts, err := s.CountByStatus(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.PostStatusPendingClient])
	assert.Equal(t, 1, counts[models.PostStatusClientApproved])

	counts, err = s.CountByStatus(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.PostStatusPendingClient])
}

func TestDeleteClient_CascadesPosts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedClient(t, s, "acme")
	p := seedPost(t, s, c.ID, "post", models.PostStatusPendingClient)

	require.NoError(t, s.DeleteClient(ctx, c.ID))
	_, err := s.GetPost(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
