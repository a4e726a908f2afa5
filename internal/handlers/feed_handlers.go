package handlers

import (
	"net/http"
	"strconv"
)

func intQueryParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// HandleFeed serves the viewer's home feed.
func (s *Server) HandleFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		viewer, ok := viewerID(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		page := intQueryParam(r, "page", 1)
		limit := intQueryParam(r, "limit", 0)

		result, err := s.Feed.Feed(r.Context(), viewer, page, limit)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// HandleTrending serves the global trending feed for a recency window.
func (s *Server) HandleTrending() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		viewer, ok := viewerID(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		page := intQueryParam(r, "page", 1)
		limit := intQueryParam(r, "limit", 0)
		hours := intQueryParam(r, "hours", 0)

		result, err := s.Feed.Trending(r.Context(), viewer, page, limit, hours)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// HandleHashtagFeed serves posts carrying a single tag.
func (s *Server) HandleHashtagFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		viewer, ok := viewerID(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tag := r.URL.Query().Get("tag")
		page := intQueryParam(r, "page", 1)
		limit := intQueryParam(r, "limit", 0)

		result, err := s.Feed.ByHashtag(r.Context(), viewer, tag, page, limit)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}
