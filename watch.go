package netbadge

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpalmerr/netbadge/internal/poller"
)

// Handle controls a running [Watch].
type Handle struct {
	scheduler *poller.Scheduler
}

// Watch runs u.Refresh immediately and then every [PollInterval] until ctx
// is cancelled or [Handle.Stop] is called.
//
// At most one cycle is in flight at a time; a tick that fires while the
// previous cycle is still waiting on the network is skipped.
func Watch(ctx context.Context, u *Updater) *Handle {
	return watch(ctx, u, PollInterval, nil)
}

// watch is Watch with an injectable interval and skip hook.
func watch(ctx context.Context, u *Updater, interval time.Duration, onSkip func()) *Handle {
	logger := u.logger
	if logger == nil {
		logger = slog.Default()
	}
	s := poller.NewScheduler(u.Refresh, interval, logger, onSkip)
	s.Start(ctx)
	return &Handle{scheduler: s}
}

// Refresh runs one cycle now, on the caller's goroutine.
//
// It returns false if the cycle was skipped because another one is in
// flight or the watch has been stopped.
func (h *Handle) Refresh() bool {
	return h.scheduler.Trigger()
}

// Stop ends the watch and waits for any in-flight cycle to return.
// Safe to call multiple times.
func (h *Handle) Stop() {
	h.scheduler.Stop()
}
