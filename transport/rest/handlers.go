package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/mazechase-backend/internal/apperror"
)

type sessionHandler struct {
	logger   *slog.Logger
	sessions sessionReader
}

func newSessionHandler(logger *slog.Logger, sessions sessionReader) *sessionHandler {
	return &sessionHandler{
		logger:   logger.With("component", "rest", "handler", "session"),
		sessions: sessions,
	}
}

// ServeHTTP - returns the snapshot of the session being played, 404 when the server is idle.
func (that *sessionHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	snapshot, err := that.sessions.GetActive(req.Context())
	if err == nil && !snapshot.IsActive() {
		err = apperror.ErrNoActiveSession
	}

	if errors.Is(err, apperror.ErrNoActiveSession) {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}

	if err != nil {
		that.logger.Error("failed to get active session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(snapshot); err != nil {
		that.logger.Error("failed to encode session", "error", err)
	}
}
