package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(SessionPrefix) + `[a-zA-Z0-9]+$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := Session()
		require.NoError(t, err)
		assert.Len(t, id, len(SessionPrefix)+Length)
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	id, err := GenerateWithPrefix("x-")
	require.NoError(t, err)
	assert.Equal(t, "x-", id[:2])
}
