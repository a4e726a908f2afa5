package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// UserActionRequest identifies the account a relationship action targets.
type UserActionRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) userAction(action func(ctx context.Context, viewer, target uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		viewer, ok := viewerID(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req UserActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		targetID, err := uuid.Parse(req.UserID)
		if err != nil {
			http.Error(w, "Invalid user ID format", http.StatusBadRequest)
			return
		}

		if err := action(r.Context(), viewer, targetID); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) HandleFollow() http.HandlerFunc   { return s.userAction(s.Feed.Follow) }
func (s *Server) HandleUnfollow() http.HandlerFunc { return s.userAction(s.Feed.Unfollow) }
func (s *Server) HandleBlock() http.HandlerFunc    { return s.userAction(s.Feed.Block) }
func (s *Server) HandleUnblock() http.HandlerFunc  { return s.userAction(s.Feed.Unblock) }

// HandleHealth reports liveness.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
