package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
)

const shutdownTimeout = 5 * time.Second

type sessionReader interface {
	GetActive(ctx context.Context) (*entity.Snapshot, error)
}

// NewHandler - routes of the operator surface.
func NewHandler(logger *slog.Logger, sessions sessionReader) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", pingHandler)
	mux.Handle("GET /session", newSessionHandler(logger, sessions))

	return mux
}

// Start - serves the operator surface until ctx is done.
func Start(ctx context.Context, logger *slog.Logger, port string, sessions sessionReader) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      NewHandler(logger, sessions),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
	})
	defer stop()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
