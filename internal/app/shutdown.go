package app

import (
	"context"
	"log/slog"
)

type serverShutdowner interface {
	Shutdown(ctx context.Context) error
}

type invalidationDrainer interface {
	Wait(ctx context.Context) error
}

// Shutdown stops the HTTP server without losing pending page invalidations.
// Invalidations are drained once while the listener is still open, since an HTTP
// trigger calls back into this server, and once more for those dispatched by the
// requests Shutdown let finish.
func Shutdown(ctx context.Context, srv serverShutdowner, dispatcher invalidationDrainer, logger *slog.Logger) error {
	if err := dispatcher.Wait(ctx); err != nil {
		logger.Warn("Pending page invalidations abandoned", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := dispatcher.Wait(ctx); err != nil {
		logger.Warn("Pending page invalidations abandoned", "error", err)
	}
	return nil
}
