package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/joescharf/swipe/internal/models"
)

type fakeStatusStore struct {
	err   error
	posts []*models.Post
}

func (f *fakeStatusStore) UpdateStatus(context.Context, string, models.PostStatus, models.StatusMeta) error {
	return f.err
}

func (f *fakeStatusStore) FetchPending(context.Context, string) ([]*models.Post, error) {
	return f.posts, f.err
}

func installExporter(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp, err := InitWithExporter("swipe-test", "0.0.0", exp)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exp
}

func TestWrapStatusStore_UpdateStatus(t *testing.T) {
	exp := installExporter(t)

	s := WrapStatusStore(&fakeStatusStore{})
	require.NoError(t, s.UpdateStatus(context.Background(), "p1", models.PostStatusClientApproved, models.StatusMeta{}))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "store.UpdateStatus", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestWrapStatusStore_RecordsErrors(t *testing.T) {
	exp := installExporter(t)

	s := WrapStatusStore(&fakeStatusStore{err: errors.New("timeout")})
	_, err := s.FetchPending(context.Background(), "c1")
	require.Error(t, err)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "store.FetchPending", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "timeout", spans[0].Status.Description)
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	shutdown, err := Init("swipe", "0.0.0", path)
	require.NoError(t, err)

	s := WrapStatusStore(&fakeStatusStore{})
	require.NoError(t, s.UpdateStatus(context.Background(), "p1", models.PostStatusClientRejected, models.StatusMeta{}))
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "store.UpdateStatus")
}
