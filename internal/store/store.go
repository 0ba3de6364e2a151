package store

import (
	"context"
	"errors"

	"github.com/joescharf/swipe/internal/models"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// PostListFilter specifies filters for listing posts.
type PostListFilter struct {
	ClientID string
	Status   models.PostStatus
}

// Store defines the persistence interface for swipe.
type Store interface {
	// Clients
	CreateClient(ctx context.Context, c *models.Client) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
	GetClientByName(ctx context.Context, name string) (*models.Client, error)
	ListClients(ctx context.Context) ([]*models.Client, error)
	DeleteClient(ctx context.Context, id string) error

	// Posts
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, filter PostListFilter) ([]*models.Post, error)
	UpdatePost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id string) error

	// Review status
	UpdateStatus(ctx context.Context, postID string, status models.PostStatus, meta models.StatusMeta) error
	FetchPending(ctx context.Context, clientID string) ([]*models.Post, error)
	ListTransitions(ctx context.Context, postID string) ([]*models.StatusTransition, error)
	CountByStatus(ctx context.Context, clientID string) (map[models.PostStatus]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
