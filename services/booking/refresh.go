package booking

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"cliniq/models"
	syncsvc "cliniq/services/sync"
	"cliniq/utils"
)

const refreshInterval = 30 * time.Second

// AvailabilityRefresher periodically nudges connected clients to refetch
// availability. The pushed event carries no availability data; it is an
// advisory signal, and the server's answer at commit time stays
// authoritative regardless of what clients display between refreshes.
type AvailabilityRefresher struct {
	Publisher syncsvc.Publisher
	Interval  time.Duration
}

// Run publishes availability-changed on a fixed interval until ctx is
// cancelled. Intended to be started as a goroutine from main.
func (r *AvailabilityRefresher) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = refreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := utils.GetLogger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, _ := json.Marshal(map[string]string{"reason": "periodic"})
			err := r.Publisher.Publish(ctx, models.SyncEvent{
				Kind:    models.EventAvailabilityChanged,
				Payload: payload,
			})
			if err != nil {
				logger.Warn("availability refresh publish failed", zap.Error(err))
			}
		}
	}
}
