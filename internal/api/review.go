package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/joescharf/swipe/internal/gesture"
	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/review"
	"github.com/joescharf/swipe/internal/store"
)

// writeReviewError maps coordinator guard errors to 409 with a machine-readable kind.
func writeReviewError(w http.ResponseWriter, err error) {
	if kind := review.ErrorKind(err); kind != "" {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "kind": kind})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) loadReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Client string `json:"client"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Client == "" {
		writeError(w, http.StatusBadRequest, "client is required")
		return
	}
	client, err := store.ResolveClient(r.Context(), s.store, req.Client)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.review.Load(r.Context(), client.ID); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.review.Snapshot())
}

func (s *Server) reviewSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.review.Snapshot())
}

type decideRequest struct {
	PostID  string `json:"post_id"`
	Action  string `json:"action"`
	Content string `json:"content"`
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	action, err := models.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The coordinator guards on identity, so the caller's view of the top
	// post is passed through as-is.
	item := s.review.Current()
	if req.PostID != "" {
		item = &models.Post{ID: req.PostID}
	}

	if action == models.ActionEditSave {
		err = s.review.SaveEdit(r.Context(), item, req.Content)
	} else {
		err = s.review.Decide(r.Context(), item, action)
	}
	if err != nil {
		writeReviewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.review.Snapshot())
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.review.Undo(r.Context())
	resp := map[string]any{
		"undone":   ok,
		"snapshot": s.review.Snapshot(),
	}
	if ok {
		resp["post_id"] = entry.Decision.Item.ID
		resp["action"] = entry.Decision.Action
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	if err := s.review.Retry(r.Context(), r.PathValue("id")); err != nil {
		writeReviewError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.review.Snapshot())
}

func (s *Server) cancelEdit(w http.ResponseWriter, r *http.Request) {
	s.review.CancelEdit(r.PathValue("id"))
	writeJSON(w, http.StatusOK, s.review.Snapshot())
}

type dragRequest struct {
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type dragResponse struct {
	Direction gesture.Direction `json:"direction,omitempty"`
	Action    models.Action     `json:"action,omitempty"`
	Applied   bool              `json:"applied"`
	Sample    *gesture.Sample   `json:"sample,omitempty"`
	Snapshot  *review.Snapshot  `json:"snapshot,omitempty"`
}

// drag feeds pointer events from a browser into the gesture pipeline. One
// drag is tracked at a time.
func (s *Server) drag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	s.dragMu.Lock()
	defer s.dragMu.Unlock()
	now := time.Now()

	switch req.Phase {
	case "begin":
		if err := s.gestures.Begin(); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "kind": "busy"})
			return
		}
		s.tracker.Begin(req.X, req.Y, now)
		writeJSON(w, http.StatusOK, dragResponse{Direction: gesture.DirectionNone})

	case "move":
		if !s.tracker.Active() {
			writeError(w, http.StatusConflict, "no drag in progress")
			return
		}
		sample := s.tracker.Move(req.X, req.Y, now)
		dir := s.gestures.Move(sample)
		writeJSON(w, http.StatusOK, dragResponse{Direction: dir, Sample: &sample})

	case "end":
		if !s.tracker.Active() {
			writeError(w, http.StatusConflict, "no drag in progress")
			return
		}
		sample := s.tracker.End(req.X, req.Y, now)
		action, applied, err := s.gestures.Release(r.Context(), sample)
		if err != nil && review.ErrorKind(err) == "" {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snap := s.review.Snapshot()
		resp := dragResponse{Action: action, Applied: applied, Sample: &sample, Snapshot: &snap}
		if err != nil {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":    err.Error(),
				"kind":     review.ErrorKind(err),
				"snapshot": snap,
			})
			return
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeError(w, http.StatusBadRequest, "phase must be begin, move, or end")
	}
}

func (s *Server) notices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.review.Notices())
}

