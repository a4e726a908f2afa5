package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// PostActionRequest identifies the post an engagement action targets.
type PostActionRequest struct {
	PostID string `json:"postId"`
}

// CommentRequest is the payload for adding a comment.
type CommentRequest struct {
	PostID string `json:"postId"`
	Text   string `json:"text"`
}

// postAction builds a handler for the single-post engagement endpoints:
// like, unlike, share, view, save, unsave. They all share the same request
// shape and differ only in the service call.
func (s *Server) postAction(action func(ctx context.Context, viewer, post uuid.UUID) error) http.HandlerFunc {
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

		var req PostActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		postID, err := uuid.Parse(req.PostID)
		if err != nil {
			http.Error(w, "Invalid post ID format", http.StatusBadRequest)
			return
		}

		if err := action(r.Context(), viewer, postID); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) HandleLike() http.HandlerFunc   { return s.postAction(s.Feed.LikePost) }
func (s *Server) HandleUnlike() http.HandlerFunc { return s.postAction(s.Feed.UnlikePost) }
func (s *Server) HandleShare() http.HandlerFunc  { return s.postAction(s.Feed.SharePost) }
func (s *Server) HandleView() http.HandlerFunc   { return s.postAction(s.Feed.RegisterView) }
func (s *Server) HandleSave() http.HandlerFunc   { return s.postAction(s.Feed.SavePost) }
func (s *Server) HandleUnsave() http.HandlerFunc { return s.postAction(s.Feed.UnsavePost) }

// HandleComment handles adding and deleting comments.
func (s *Server) HandleComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := viewerID(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodPost:
			var req CommentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}
			postID, err := uuid.Parse(req.PostID)
			if err != nil {
				http.Error(w, "Invalid post ID format", http.StatusBadRequest)
				return
			}

			comment, err := s.Feed.AddComment(r.Context(), viewer, postID, req.Text)
			if err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusCreated, comment)

		case http.MethodDelete:
			postID, err := parseUUIDParam(r, "postId")
			if err != nil {
				respondError(w, err)
				return
			}
			commentID, err := parseUUIDParam(r, "id")
			if err != nil {
				respondError(w, err)
				return
			}

			if err := s.Feed.DeleteComment(r.Context(), viewer, postID, commentID); err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
