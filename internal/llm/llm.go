// Package llm drafts LinkedIn posts for review with the Anthropic API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when anthropic.model is not configured.
const DefaultModel = "claude-sonnet-4-5"

// DraftRequest describes the post to ghostwrite.
type DraftRequest struct {
	Brief   string
	Client  string
	Company string
	Tone    string
}

// DraftedPost is a generated post ready to be stored as a draft.
type DraftedPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Client wraps the Anthropic API for post drafting.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
// Extra request options are passed through, e.g. a base URL for tests.
func NewClient(apiKey, model string, extra ...option.RequestOption) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, extra...)
	if model == "" {
		model = DefaultModel
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildDraftPrompt constructs the system and user prompts for drafting a post.
func buildDraftPrompt(req DraftRequest) (system string, user string) {
	system = `You ghostwrite LinkedIn posts for professionals. Return ONLY a JSON object with these fields:
- "title": a short internal title for the post (not shown on LinkedIn, max 8 words)
- "content": the full post text as it should be published

Rules:
- Write in first person as the client
- Open with a hook line that stands on its own
- Keep paragraphs to one or two sentences separated by blank lines
- 120 to 250 words, no hashtags unless the brief asks for them
- Do not invent facts, numbers, or names that are not in the brief
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	if req.Client != "" {
		sb.WriteString("Client: ")
		sb.WriteString(req.Client)
		if req.Company != "" {
			sb.WriteString(" (")
			sb.WriteString(req.Company)
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	if req.Tone != "" {
		sb.WriteString("Tone: ")
		sb.WriteString(req.Tone)
		sb.WriteString("\n")
	}
	sb.WriteString("\nBrief:\n")
	sb.WriteString(req.Brief)
	user = sb.String()
	return
}

// DraftPost asks the model for a post written from the brief.
func (c *Client) DraftPost(ctx context.Context, req DraftRequest) (*DraftedPost, error) {
	if strings.TrimSpace(req.Brief) == "" {
		return nil, fmt.Errorf("brief is required")
	}
	systemPrompt, userPrompt := buildDraftPrompt(req)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	var drafted DraftedPost
	if err := json.Unmarshal([]byte(stripFence(text)), &drafted); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	if drafted.Content == "" {
		return nil, fmt.Errorf("LLM response has no content")
	}
	if drafted.Title == "" {
		drafted.Title = firstLine(drafted.Content)
	}

	return &drafted, nil
}

// stripFence removes a surrounding markdown code fence if present.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if r := []rune(line); len(r) > 60 {
		return string(r[:60])
	}
	return line
}
