package handlers

import (
	"encoding/json"
	"net/http"
	"ripple-feed/internal/feed"
	"ripple-feed/internal/models"
)

// CreatePostRequest is the payload for publishing a new post.
type CreatePostRequest struct {
	Caption           string             `json:"caption"`
	Hashtags          []string           `json:"hashtags"`
	Media             []models.MediaItem `json:"media"`
	Visibility        string             `json:"visibility"`
	CommentVisibility string             `json:"commentVisibility"`
	Location          *models.Location   `json:"location"`
}

// HandlePost handles post creation, lookup and deletion.
func (s *Server) HandlePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := viewerID(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodPost:
			var req CreatePostRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			post, err := s.Feed.CreatePost(r.Context(), viewer, feed.CreatePostInput{
				Caption:           req.Caption,
				Hashtags:          req.Hashtags,
				Media:             req.Media,
				Visibility:        models.PostVisibility(req.Visibility),
				CommentVisibility: models.CommentVisibility(req.CommentVisibility),
				Location:          req.Location,
			})
			if err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusCreated, post)

		case http.MethodGet:
			postID, err := parseUUIDParam(r, "id")
			if err != nil {
				respondError(w, err)
				return
			}
			post, err := s.Feed.GetPost(r.Context(), viewer, postID)
			if err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, post)

		case http.MethodDelete:
			postID, err := parseUUIDParam(r, "id")
			if err != nil {
				respondError(w, err)
				return
			}
			if err := s.Feed.DeletePost(r.Context(), viewer, postID); err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
