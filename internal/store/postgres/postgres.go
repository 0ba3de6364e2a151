// Package postgres implements the store.Store interface backed by PostgreSQL,
// including Supabase-hosted databases.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the database at the given URL and configures the
// connection pool. Call Migrate before first use.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an existing connection. Migrations are not run.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies any pending embedded migrations.
func (s *PostgresStore) Migrate(_ context.Context) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(s.db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- Clients ---

func (s *PostgresStore) CreateClient(ctx context.Context, c *models.Client) error {
	if c.ID == "" {
		c.ID = store.NewID()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, company, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Company, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	return s.getClient(ctx, "id", id)
}

func (s *PostgresStore) GetClientByName(ctx context.Context, name string) (*models.Client, error) {
	return s.getClient(ctx, "name", name)
}

func (s *PostgresStore) getClient(ctx context.Context, column, value string) (*models.Client, error) {
	c := &models.Client{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, company, created_at, updated_at FROM clients WHERE `+column+` = $1`, value,
	).Scan(&c.ID, &c.Name, &c.Company, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %w: %s", store.ErrNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListClients(ctx context.Context) ([]*models.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, company, created_at, updated_at FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

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

func (s *PostgresStore) DeleteClient(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "clients", "client", id)
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

func (s *PostgresStore) CreatePost(ctx context.Context, p *models.Post) error {
	if p.ID == "" {
		p.ID = store.NewID()
	}
	if p.Status == "" {
		p.Status = models.PostStatusDraft
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.ClientID, p.Title, p.Content, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context, filter store.PostListFilter) ([]*models.Post, error) {
	query, args := buildListPosts(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

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

// buildListPosts returns the query and positional args for a filter.
func buildListPosts(filter store.PostListFilter) (string, []any) {
	query := `SELECT ` + postColumns + ` FROM posts`
	var conditions []string
	var args []any

	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query + " ORDER BY seq", args
}

func (s *PostgresStore) UpdatePost(ctx context.Context, p *models.Post) error {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE posts SET title = $1, content = $2, updated_at = $3 WHERE id = $4`,
		p.Title, p.Content, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("post %w: %s", store.ErrNotFound, p.ID)
	}
	return nil
}

func (s *PostgresStore) DeletePost(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "posts", "post", id)
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, noun, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", noun, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %w: %s", noun, store.ErrNotFound, id)
	}
	return nil
}

// --- Review status ---

// UpdateStatus moves a post to status under a row lock. Repeating the current
// status with the same content is a no-op and records no transition.
func (s *PostgresStore) UpdateStatus(ctx context.Context, postID string, status models.PostStatus, meta models.StatusMeta) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status: %s", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current, content string
	err = tx.QueryRowContext(ctx,
		`SELECT status, content FROM posts WHERE id = $1 FOR UPDATE`, postID,
	).Scan(&current, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("post %w: %s", store.ErrNotFound, postID)
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
		`UPDATE posts SET status = $1, content = $2, updated_at = $3 WHERE id = $4`,
		string(status), content, now, postID,
	); err != nil {
		return fmt.Errorf("update post status: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO post_status_transitions (id, post_id, from_status, to_status, note, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		store.NewID(), postID, current, string(status), meta.Note, now,
	); err != nil {
		return fmt.Errorf("record transition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) FetchPending(ctx context.Context, clientID string) ([]*models.Post, error) {
	return s.ListPosts(ctx, store.PostListFilter{ClientID: clientID, Status: models.PostStatusPendingClient})
}

func (s *PostgresStore) ListTransitions(ctx context.Context, postID string) ([]*models.StatusTransition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, from_status, to_status, note, created_at
		FROM post_status_transitions WHERE post_id = $1 ORDER BY seq`, postID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

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

func (s *PostgresStore) CountByStatus(ctx context.Context, clientID string) (map[models.PostStatus]int, error) {
	query := "SELECT status, COUNT(*) FROM posts"
	var args []any
	if clientID != "" {
		query += " WHERE client_id = $1"
		args = append(args, clientID)
	}
	query += " GROUP BY status"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	defer rows.Close()

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
