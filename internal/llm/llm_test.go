package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDraftPrompt(t *testing.T) {
	t.Run("with client and tone", func(t *testing.T) {
		system, user := buildDraftPrompt(DraftRequest{
			Brief:   "We shipped SOC2 in 90 days",
			Client:  "Dana",
			Company: "Acme",
			Tone:    "humble",
		})

		assert.Contains(t, system, "JSON object")
		assert.Contains(t, system, `"title"`)
		assert.Contains(t, system, `"content"`)

		assert.Contains(t, user, "Client: Dana (Acme)")
		assert.Contains(t, user, "Tone: humble")
		assert.Contains(t, user, "SOC2 in 90 days")
	})

	t.Run("brief only", func(t *testing.T) {
		_, user := buildDraftPrompt(DraftRequest{Brief: "hiring engineers"})

		assert.NotContains(t, user, "Client:")
		assert.NotContains(t, user, "Tone:")
		assert.Contains(t, user, "hiring engineers")
	})
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("  {\"a\":1}  "))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Hook line", firstLine("Hook line\n\nBody"))
	assert.Len(t, []rune(firstLine(strings.Repeat("x", 100))), 60)
}

// newFakeAnthropic serves a single canned text reply on the messages endpoint.
func newFakeAnthropic(t *testing.T, reply string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-test",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]any{{"type": "text", "text": reply}},
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestDraftPost(t *testing.T) {
	srv, got := newFakeAnthropic(t, "```json\n{\"title\":\"SOC2 story\",\"content\":\"We did it.\\n\\nHere's how.\"}\n```")
	c := NewClient("test-key", "claude-test", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	post, err := c.DraftPost(context.Background(), DraftRequest{Brief: "SOC2 in 90 days"})
	require.NoError(t, err)
	assert.Equal(t, "SOC2 story", post.Title)
	assert.Equal(t, "We did it.\n\nHere's how.", post.Content)
	assert.Equal(t, "claude-test", (*got)["model"])
}

func TestDraftPost_TitleFallback(t *testing.T) {
	srv, _ := newFakeAnthropic(t, `{"content":"Big news today\nmore"}`)
	c := NewClient("test-key", "claude-test", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	post, err := c.DraftPost(context.Background(), DraftRequest{Brief: "news"})
	require.NoError(t, err)
	assert.Equal(t, "Big news today", post.Title)
}

func TestDraftPost_BadJSON(t *testing.T) {
	srv, _ := newFakeAnthropic(t, "sure, here is a post")
	c := NewClient("test-key", "claude-test", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	_, err := c.DraftPost(context.Background(), DraftRequest{Brief: "news"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse LLM response")
}

func TestDraftPost_EmptyBrief(t *testing.T) {
	c := NewClient("test-key", "")
	_, err := c.DraftPost(context.Background(), DraftRequest{Brief: "  "})
	require.Error(t, err)
	assert.Equal(t, anthropic.Model(DefaultModel), c.model)
}
