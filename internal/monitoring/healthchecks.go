package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_TIMER = 15 * time.Second

// Pinger is anything with a cheap liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MonitorHealth probes target on every tick and stores the result in healthy
// until ctx is done. The first probe runs immediately.
func MonitorHealth(ctx context.Context, name string, target Pinger, interval time.Duration, healthy *atomic.Bool) {
	if interval <= 0 {
		interval = HEALTHCHECK_TIMER
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		err := target.Ping(pingCtx)
		wasHealthy := healthy.Swap(err == nil)
		switch {
		case err != nil && wasHealthy:
			slog.Warn("[HealthCheck] Dependency is unhealthy",
				slog.String("name", name),
				slog.String("error", err.Error()))
		case err == nil && !wasHealthy:
			slog.Info("[HealthCheck] Dependency recovered", slog.String("name", name))
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// MonitorCacheHealth watches the Valkey seen-set used by the dedup gate.
func MonitorCacheHealth(ctx context.Context, cache Pinger, interval time.Duration, healthy *atomic.Bool) {
	MonitorHealth(ctx, "valkey", cache, interval, healthy)
}
