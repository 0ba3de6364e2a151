package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/joescharf/swipe/internal/events"
	"github.com/joescharf/swipe/internal/gesture"
	"github.com/joescharf/swipe/internal/llm"
	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/review"
	"github.com/joescharf/swipe/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	store    store.Store
	review   *review.Coordinator
	gestures *review.Gestures
	pub      events.Publisher
	llm      *llm.Client

	dragMu  sync.Mutex
	tracker gesture.Tracker
}

// NewServer creates a new API server.
// The publisher and llmClient may be nil.
func NewServer(s store.Store, coord *review.Coordinator, pub events.Publisher, llmClient *llm.Client) *Server {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &Server{
		store:    s,
		review:   coord,
		gestures: review.NewGestures(coord, gesture.DefaultConfig()),
		pub:      pub,
		llm:      llmClient,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/clients", s.listClients)
	mux.HandleFunc("POST /api/v1/clients", s.createClient)
	mux.HandleFunc("GET /api/v1/clients/{id}", s.getClient)

	mux.HandleFunc("GET /api/v1/posts", s.listPosts)
	mux.HandleFunc("POST /api/v1/posts", s.createPost)
	mux.HandleFunc("POST /api/v1/posts/draft", s.draftPost)
	mux.HandleFunc("GET /api/v1/posts/{id}", s.getPost)
	mux.HandleFunc("PUT /api/v1/posts/{id}", s.updatePost)
	mux.HandleFunc("DELETE /api/v1/posts/{id}", s.deletePost)
	mux.HandleFunc("POST /api/v1/posts/{id}/submit", s.submitPost)
	mux.HandleFunc("GET /api/v1/posts/{id}/history", s.postHistory)

	mux.HandleFunc("GET /api/v1/status", s.statusOverview)

	mux.HandleFunc("POST /api/v1/review/load", s.loadReview)
	mux.HandleFunc("GET /api/v1/review", s.reviewSnapshot)
	mux.HandleFunc("POST /api/v1/review/decide", s.decide)
	mux.HandleFunc("POST /api/v1/review/undo", s.undo)
	mux.HandleFunc("POST /api/v1/review/retry/{id}", s.retry)
	mux.HandleFunc("POST /api/v1/review/edit/{id}/cancel", s.cancelEdit)
	mux.HandleFunc("POST /api/v1/review/drag", s.drag)
	mux.HandleFunc("GET /api/v1/review/notices", s.notices)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// patchString applies a string value from a JSON patch map to the target if the key is present and non-empty.
func patchString(patch map[string]any, key string, target *string) {
	if v, ok := patch[key]; ok {
		if str, ok := v.(string); ok && str != "" {
			*target = str
		}
	}
}

func (s *Server) publish(ctx context.Context, topic string, event any) {
	if err := s.pub.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// --- Clients ---

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	client, err := store.ResolveClient(r.Context(), s.store, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var c models.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := s.store.CreateClient(r.Context(), &c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// --- Posts ---

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	filter := store.PostListFilter{
		Status: models.PostStatus(r.URL.Query().Get("status")),
	}
	if ref := r.URL.Query().Get("client"); ref != "" {
		client, err := store.ResolveClient(r.Context(), s.store, ref)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		filter.ClientID = client.ID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status: "+string(filter.Status))
		return
	}

	posts, err := s.store.ListPosts(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var p models.Post
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if p.ClientID == "" || p.Content == "" {
		writeError(w, http.StatusBadRequest, "ClientID and Content are required")
		return
	}
	client, err := store.ResolveClient(r.Context(), s.store, p.ClientID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	p.ClientID = client.ID
	if p.Status == "" {
		p.Status = models.PostStatusDraft
	}
	if !p.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status: "+string(p.Status))
		return
	}

	if err := s.store.CreatePost(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) draftPost(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		writeError(w, http.StatusServiceUnavailable, "drafting is not configured (set anthropic.api_key)")
		return
	}

	var req struct {
		Client string `json:"client"`
		Brief  string `json:"brief"`
		Tone   string `json:"tone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	client, err := store.ResolveClient(r.Context(), s.store, req.Client)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	drafted, err := s.llm.DraftPost(r.Context(), llm.DraftRequest{
		Brief:   req.Brief,
		Client:  client.Name,
		Company: client.Company,
		Tone:    req.Tone,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	p := &models.Post{
		ClientID: client.ID,
		Title:    drafted.Title,
		Content:  drafted.Content,
		Status:   models.PostStatusDraft,
	}
	if err := s.store.CreatePost(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	existing, err := s.store.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Status changes go through submit and review, not here.
	patchString(patch, "Title", &existing.Title)
	patchString(patch, "Content", &existing.Content)

	if err := s.store.UpdatePost(r.Context(), existing); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePost(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) submitPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	// An empty body is fine.
	_ = json.NewDecoder(r.Body).Decode(&req)

	post, err := store.SubmitPost(r.Context(), s.store, r.PathValue("id"), req.Note)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.publish(r.Context(), events.TopicPostSubmitted, events.PostSubmitted{PostID: post.ID, ClientID: post.ClientID})
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) postHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetPost(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	transitions, err := s.store.ListTransitions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, transitions)
}

// --- Status ---

type statusEntry struct {
	Client *models.Client            `json:"client"`
	Counts map[models.PostStatus]int `json:"counts"`
	Total  int                       `json:"total"`
}

func (s *Server) statusOverview(w http.ResponseWriter, r *http.Request) {
	var clients []*models.Client
	if ref := r.URL.Query().Get("client"); ref != "" {
		c, err := store.ResolveClient(r.Context(), s.store, ref)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		clients = append(clients, c)
	} else {
		var err error
		clients, err = s.store.ListClients(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	entries := make([]statusEntry, 0, len(clients))
	for _, c := range clients {
		counts, err := s.store.CountByStatus(r.Context(), c.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		entries = append(entries, statusEntry{Client: c, Counts: counts, Total: total})
	}
	writeJSON(w, http.StatusOK, entries)
}
