package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/swipe/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Background status mutations
	// from the review coordinator share this pool, so serialize everything.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewID generates a new ULID string.
func NewID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Clients ---

func (s *SQLiteStore) CreateClient(ctx context.Context, c *models.Client) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, company, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Company, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	return s.getClient(ctx, "id", id)
}

func (s *SQLiteStore) GetClientByName(ctx context.Context, name string) (*models.Client, error) {
	return s.getClient(ctx, "name", name)
}

func (s *SQLiteStore) getClient(ctx context.Context, column, value string) (*models.Client, error) {
	c := &models.Client{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, company, created_at, updated_at FROM clients WHERE `+column+` = ?`, value,
	).Scan(&c.ID, &c.Name, &c.Company, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("client %w: %s", ErrNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) ListClients(ctx context.Context) ([]*models.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, company, created_at, updated_at FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clients []*models.Client
	for rows.Next() {
		c := &models.Client{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Company, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *SQLiteStore) DeleteClient(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("client %w: %s", ErrNotFound, id)
	}
	return nil
}

// --- Posts ---

const postColumns = `id, client_id, title, content, status, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	p := &models.Post{}
	var status string
	if err := row.Scan(&p.ID, &p.ClientID, &p.Title, &p.Content, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.PostStatus(status)
	return p, nil
}

func (s *SQLiteStore) CreatePost(ctx context.Context, p *models.Post) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.Status == "" {
		p.Status = models.PostStatusDraft
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ClientID, p.Title, p.Content, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context, filter PostListFilter) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	var conditions []string
	var args []any

	if filter.ClientID != "" {
		conditions = append(conditions, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY rowid"

	return s.queryPosts(ctx, query, args...)
}

func (s *SQLiteStore) queryPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UpdatePost saves title and content. Status only changes through UpdateStatus.
func (s *SQLiteStore) UpdatePost(ctx context.Context, p *models.Post) error {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE posts SET title=?, content=?, updated_at=? WHERE id=?`,
		p.Title, p.Content, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("post %w: %s", ErrNotFound, p.ID)
	}
	return nil
}

func (s *SQLiteStore) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("post %w: %s", ErrNotFound, id)
	}
	return nil
}

// --- Review status ---

// UpdateStatus moves a post to status. Repeating the current status with the
// same content is a no-op and records no transition.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, postID string, status models.PostStatus, meta models.StatusMeta) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status: %s", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current, content string
	err = tx.QueryRowContext(ctx, "SELECT status, content FROM posts WHERE id = ?", postID).Scan(&current, &content)
	if err == sql.ErrNoRows {
		return fmt.Errorf("post %w: %s", ErrNotFound, postID)
	}
	if err != nil {
		return fmt.Errorf("get post status: %w", err)
	}

	if models.PostStatus(current) == status && (meta.Content == "" || meta.Content == content) {
		return tx.Commit()
	}

	now := time.Now().UTC()
	if meta.Content != "" {
		content = meta.Content
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE posts SET status=?, content=?, updated_at=? WHERE id=?",
		string(status), content, now, postID,
	); err != nil {
		return fmt.Errorf("update post status: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO post_status_transitions (id, post_id, from_status, to_status, note, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		NewID(), postID, current, string(status), meta.Note, now,
	); err != nil {
		return fmt.Errorf("record transition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// FetchPending returns the client's posts awaiting review, oldest first.
func (s *SQLiteStore) FetchPending(ctx context.Context, clientID string) ([]*models.Post, error) {
	return s.ListPosts(ctx, PostListFilter{ClientID: clientID, Status: models.PostStatusPendingClient})
}

func (s *SQLiteStore) ListTransitions(ctx context.Context, postID string) ([]*models.StatusTransition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, from_status, to_status, note, created_at
		FROM post_status_transitions WHERE post_id = ? ORDER BY rowid`, postID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.StatusTransition
	for rows.Next() {
		t := &models.StatusTransition{}
		var from, to string
		if err := rows.Scan(&t.ID, &t.PostID, &from, &to, &t.Note, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.FromStatus = models.PostStatus(from)
		t.ToStatus = models.PostStatus(to)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountByStatus(ctx context.Context, clientID string) (map[models.PostStatus]int, error) {
	query := "SELECT status, COUNT(*) FROM posts"
	var args []any
	if clientID != "" {
		query += " WHERE client_id = ?"
		args = append(args, clientID)
	}
	query += " GROUP BY status"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[models.PostStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.PostStatus(status)] = n
	}
	return counts, rows.Err()
}
