package handlers

import (
	"encoding/json"
	"net/http"
	"ripple-feed/internal/feed"
	"ripple-feed/internal/middleware"
	"ripple-feed/internal/utils"

	"github.com/google/uuid"
)

// Server holds the HTTP-facing dependencies. Identity is issued elsewhere;
// the server only verifies tokens and reads the viewer ID from them.
type Server struct {
	Feed *feed.Service
	Auth *middleware.Authenticator
}

func NewServer(feedService *feed.Service, auth *middleware.Authenticator) *Server {
	return &Server{
		Feed: feedService,
		Auth: auth,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps application errors to HTTP statuses; anything that is
// not an AppError becomes a plain 500 without leaking internals.
func respondError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*utils.AppError); ok {
		respondJSON(w, utils.AppErrorToHTTPStatus(appErr.Code), map[string]string{
			"code":  appErr.Code,
			"error": appErr.Message,
		})
		return
	}
	respondJSON(w, http.StatusInternalServerError, map[string]string{
		"code":  utils.ErrDatabase,
		"error": "internal error",
	})
}

// viewerID extracts the authenticated user from the request context. The
// auth middleware guarantees presence on protected routes.
func viewerID(r *http.Request) (uuid.UUID, bool) {
	return middleware.GetUserIDFromContext(r.Context())
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, utils.NewAppError(utils.ErrInvalidInput, name+" is required", nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, utils.NewAppError(utils.ErrInvalidInput, "invalid "+name, err)
	}
	return id, nil
}
