package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/review"
	"github.com/joescharf/swipe/internal/store"
)

// Server wraps the swipe data layer and review coordinator and exposes them as MCP tools.
type Server struct {
	store  store.Store
	review *review.Coordinator
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, coord *review.Coordinator) *Server {
	return &Server{
		store:  s,
		review: coord,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("swipe", "1.0.0", server.WithToolCapabilities(true))

	// Register all tools
	srv.AddTool(s.listClientsTool())
	srv.AddTool(s.listPostsTool())
	srv.AddTool(s.createPostTool())
	srv.AddTool(s.submitPostTool())
	srv.AddTool(s.reviewLoadTool())
	srv.AddTool(s.reviewStatusTool())
	srv.AddTool(s.decideTool())
	srv.AddTool(s.undoTool())
	srv.AddTool(s.retryTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

type postOut struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Status   string `json:"status"`
}

func toPostOut(p *models.Post) *postOut {
	if p == nil {
		return nil
	}
	return &postOut{
		ID:       p.ID,
		ClientID: p.ClientID,
		Title:    p.Title,
		Content:  p.Content,
		Status:   string(p.Status),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// swipe_list_clients
func (s *Server) listClientsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("swipe_list_clients",
		mcp.WithDescription("List all clients. Returns a JSON array of clients with id, name, and company."),
	)
	return tool, s.handleListClients
}

func (s *Server) handleListClients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list clients: %v", err)), nil
	}

	type clientOut struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Company string `json:"company"`
	}

	out := make([]clientOut, len(clients))
	for i, c := range clients {
		out[i] = clientOut{ID: c.ID, Name: c.Name, Company: c.Company}
	}
	return jsonResult(out)
}

// swipe_list_posts
func (s *Server) listPostsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("swipe_list_posts",
		mcp.WithDescription("List posts, optionally filtered by client and status."),
		mcp.WithString("client", mcp.Description("Client name or ID")),
		mcp.WithString("status", mcp.Description("Filter by status"),
			mcp.Enum("draft", "pending_client", "client_approved", "client_rejected", "client_edited", "published")),
	)
	return tool, s.handleListPosts
}

func (s *Server) handleListPosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.PostListFilter{
		Status: models.PostStatus(request.GetString("status", "")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid status: %s", filter.Status)), nil
	}
	if ref := request.GetString("client", ""); ref != "" {
		c, err := store.ResolveClient(ctx, s.store, ref)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("client not found: %s", ref)), nil
		}
		filter.ClientID = c.ID
	}

	posts, err := s.store.ListPosts(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list posts: %v", err)), nil
	}
	out := make([]*postOut, len(posts))
	for i, p := range posts {
		out[i] = toPostOut(p)
	}
	return jsonResult(out)
}

// swipe_create_post
func (s *Server) createPostTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("swipe_create_post",
		mcp.WithDescription("Create a draft post for a client. Set submit to send it straight to the client for review."),
		mcp.WithString("client", mcp.Required(), mcp.Description("Client name or ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Post body")),
		mcp.WithString("title", mcp.Description("Short internal title")),
		mcp.WithBoolean("submit", mcp.Description("Submit for client review after creating")),
	)
	return tool, s.handleCreatePost
}

func (s *Server) handleCreatePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("client")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: client"), nil
	}
	content, err := request.RequireString("content")
	if err != nil || content == "" {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}

	c, err := store.ResolveClient(ctx, s.store, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("client not found: %s", ref)), nil
	}

	p := &models.Post{
		ClientID: c.ID,
		Title:    request.GetString("title", ""),
		Content:  content,
		Status:   models.PostStatusDraft,
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create post: %v", err)), nil
	}

	if request.GetBool("submit", false) {
		p, err = store.SubmitPost(ctx, s.store, p.ID, "")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("created but failed to submit: %v", err)), nil
		}
	}
	return jsonResult(toPostOut(p))
}

// swipe_submit_post
func (s *Server) submitPostTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("swipe_submit_post",
		mcp.WithDescription("Send a draft or rejected post to the client for review."),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID")),
		mcp.WithString("note", mcp.Description("Note recorded with the transition")),
	)
	return tool, s.handleSubmitPost
}

func (s *Server) handleSubmitPost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("post_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: post_id"), nil
	}
	p, err := store.SubmitPost(ctx, s.store, id, request.GetString("note", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to submit post: %v", err)), nil
	}
	return jsonResult(toPostOut(p))
}

// swipe_review_load
func (s *Server) reviewLoadTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("swipe_review_load",
		mcp.WithDescription("Start a review session with every post awaiting the client's decision. Replaces any session in progress."),
		mcp.WithString("client", mcp.Required(), mcp.Description("Client name or ID")),
	)
	return tool, s.handleReviewLoad
}

func (s *Server) handleReviewLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("client")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: client"), nil
	}
	c, err := store.ResolveClient(ctx, s.store, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("client not found: %s", ref)), nil
	}
	if err := s.review.Load(ctx, c.ID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load review: %v", err)), nil
	}
	return jsonResult(s.status())
}

// swipe_review_status
func (s *Server) reviewStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("swipe_review_status",
		mcp.WithDescription("Show the current review session: the post on top, what is next, progress, tally, and any failed writes."),
	)
	return tool, s.handleReviewStatus
}

func (s *Server) handleReviewStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.status())
}

type statusOut struct {
	SessionID string          `json:"session_id"`
	ClientID  string          `json:"client_id"`
	Current   *postOut        `json:"current"`
	Next      *postOut        `json:"next"`
	Reviewed  int             `json:"reviewed"`
	Total     int             `json:"total"`
	Exhausted bool            `json:"exhausted"`
	CanUndo   bool            `json:"can_undo"`
	Approved  int             `json:"approved"`
	Declined  int             `json:"declined"`
	Edited    int             `json:"edited"`
	Failed    []string        `json:"failed,omitempty"`
	Notices   []review.Notice `json:"notices,omitempty"`
}

func (s *Server) status() statusOut {
	snap := s.review.Snapshot()
	return statusOut{
		SessionID: snap.SessionID,
		ClientID:  snap.ClientID,
		Current:   toPostOut(snap.Current),
		Next:      toPostOut(snap.Next),
		Reviewed:  snap.Cursor,
		Total:     snap.Total,
		Exhausted: snap.Exhausted,
		CanUndo:   snap.CanUndo,
		Approved:  snap.Tally.Approved,
		Declined:  snap.Tally.Declined,
		Edited:    snap.Tally.Edited,
		Failed:    snap.Failed,
		Notices:   s.review.Notices(),
	}
}

// swipe_decide
func (s *Server) decideTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("swipe_decide",
		mcp.WithDescription("Approve, decline, or save an edit of the post on top of the review queue. The queue advances immediately and the status is written in the background."),
		mcp.WithString("action", mcp.Required(), mcp.Description("Decision"),
			mcp.Enum("approve", "decline", "edit_save")),
		mcp.WithString("post_id", mcp.Description("Post the decision is for; must be the current post. Defaults to the current post.")),
		mcp.WithString("content", mcp.Description("Edited post body, required for edit_save")),
	)
	return tool, s.handleDecide
}

func (s *Server) handleDecide(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: action"), nil
	}
	action, err := models.ParseAction(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	item := s.review.Current()
	if id := request.GetString("post_id", ""); id != "" {
		item = &models.Post{ID: id}
	}

	switch action {
	case models.ActionEditSave:
		err = s.review.SaveEdit(ctx, item, request.GetString("content", ""))
	case models.ActionEdit:
		return mcp.NewToolResultError("edit needs an interactive surface; use edit_save with content"), nil
	default:
		err = s.review.Decide(ctx, item, action)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("decision rejected: %v", err)), nil
	}
	return jsonResult(s.status())
}

// swipe_undo
func (s *Server) undoTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("swipe_undo",
		mcp.WithDescription("Undo the most recent decision. The post returns to the top of the queue and its prior status is restored."),
	)
	return tool, s.handleUndo
}

func (s *Server) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entry, ok := s.review.Undo(ctx)
	if !ok {
		return mcp.NewToolResultText("Nothing to undo."), nil
	}
	return jsonResult(map[string]any{
		"undone":  entry.Decision.Item.ID,
		"action":  entry.Decision.Action,
		"session": s.status(),
	})
}

// swipe_retry
func (s *Server) retryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("swipe_retry",
		mcp.WithDescription("Retry a status write that failed in the background."),
		mcp.WithString("post_id", mcp.Required(), mcp.Description("Post ID with a failed write")),
	)
	return tool, s.handleRetry
}

func (s *Server) handleRetry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("post_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: post_id"), nil
	}
	if err := s.review.Retry(ctx, id); err != nil {
		if errors.Is(err, review.ErrNothingToRetry) {
			return mcp.NewToolResultError(fmt.Sprintf("no failed write for %s", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("retry rejected: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Retrying write for %s.", id)), nil
}
