package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var postRowColumns = []string{"id", "client_id", "title", "content", "status", "created_at", "updated_at"}

func TestBuildListPosts(t *testing.T) {
	for _, tc := range []struct {
		name   string
		filter store.PostListFilter
		where  string
		args   int
	}{
		{"none", store.PostListFilter{}, "", 0},
		{"client", store.PostListFilter{ClientID: "c1"}, " WHERE client_id = $1", 1},
		{"status", store.PostListFilter{Status: models.PostStatusDraft}, " WHERE status = $1", 1},
		{"both", store.PostListFilter{ClientID: "c1", Status: models.PostStatusDraft}, " WHERE client_id = $1 AND status = $2", 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			query, args := buildListPosts(tc.filter)
			assert.Equal(t, "SELECT "+postColumns+" FROM posts"+tc.where+" ORDER BY seq", query)
			assert.Len(t, args, tc.args)
		})
	}
}

func TestFetchPending(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM posts WHERE client_id = \$1 AND status = \$2 ORDER BY seq`).
		WithArgs("c1", "pending_client").
		WillReturnRows(sqlmock.NewRows(postRowColumns).
			AddRow("p1", "c1", "First", "body one", "pending_client", now, now).
			AddRow("p2", "c1", "Second", "body two", "pending_client", now, now))

	posts, err := s.FetchPending(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, "p2", posts[1].ID)
	assert.Equal(t, models.PostStatusPendingClient, posts[1].Status)
}

func TestGetPost_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectQuery(`SELECT .+ FROM posts WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetPost(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpdateStatus_RecordsTransition(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, content FROM posts WHERE id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "content"}).AddRow("pending_client", "orig"))
	mock.ExpectExec(`UPDATE posts SET status = \$1, content = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("client_approved", "orig", sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO post_status_transitions`).
		WithArgs(sqlmock.AnyArg(), "p1", "pending_client", "client_approved", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.UpdateStatus(context.Background(), "p1", models.PostStatusClientApproved, models.StatusMeta{})
	require.NoError(t, err)
}

func TestUpdateStatus_EditReplacesContent(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, content FROM posts WHERE id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "content"}).AddRow("pending_client", "orig"))
	mock.ExpectExec(`UPDATE posts SET status`).
		WithArgs("client_edited", "rewritten", sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO post_status_transitions`).
		WithArgs(sqlmock.AnyArg(), "p1", "pending_client", "client_edited", "tightened hook", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.UpdateStatus(context.Background(), "p1", models.PostStatusClientEdited,
		models.StatusMeta{Content: "rewritten", Note: "tightened hook"})
	require.NoError(t, err)
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, content FROM posts WHERE id = \$1 FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "content"}).AddRow("client_approved", "orig"))
	mock.ExpectCommit()

	err := s.UpdateStatus(context.Background(), "p1", models.PostStatusClientApproved, models.StatusMeta{})
	require.NoError(t, err)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, content FROM posts WHERE id = \$1 FOR UPDATE`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.UpdateStatus(context.Background(), "missing", models.PostStatusClientApproved, models.StatusMeta{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewWithDB(db)

	err := s.UpdateStatus(context.Background(), "p1", models.PostStatus("bogus"), models.StatusMeta{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}

func TestCountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM posts WHERE client_id = \$1 GROUP BY status`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending_client", 3).
			AddRow("client_approved", 1))

	counts, err := s.CountByStatus(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.PostStatusPendingClient])
	assert.Equal(t, 1, counts[models.PostStatusClientApproved])
}

func TestDeleteClient_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectExec(`DELETE FROM clients WHERE id = \$1`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteClient(context.Background(), "nope")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
