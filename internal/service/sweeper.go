package service

import (
	"context"
	"time"

	"hmo-assistant-be/internal/pkg/logger"
)

// RunSweeper removes expired sessions every interval until ctx is done.
// A failed sweep is logged and retried on the next tick.
func RunSweeper(ctx context.Context, svc IConversationService, interval time.Duration, log logger.ILogger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := svc.SweepExpired(ctx); err != nil {
				log.Warn("SESSION", "Sweep failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}
