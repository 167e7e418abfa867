package stderr

import (
	"context"
	"log/slog"
)

// Forward logs captured lines at warn level until ctx is done or capture
// stops.
func Forward(ctx context.Context, logger *slog.Logger) {
	forward(ctx, logger, Messages)
}

func forward(ctx context.Context, logger *slog.Logger, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			logger.Warn("audio backend", "message", line)
		}
	}
}
