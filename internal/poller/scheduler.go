package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Job is one poll cycle. It must honour ctx cancellation.
type Job func(ctx context.Context)

// Scheduler runs a single [Job] immediately on start and then on a fixed
// interval until stopped.
//
// At most one cycle is in flight at a time. A tick that fires while the
// previous cycle is still running is skipped and reported through the
// skip hook rather than queued. Cycles run on their own goroutine so a slow
// cycle never delays the ticker.
//
// All lifecycle methods (Start, Stop, Trigger) are safe for concurrent use.
type Scheduler struct {
	job      Job
	interval time.Duration
	logger   *slog.Logger
	onSkip   func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool

	inFlight atomic.Bool
}

// NewScheduler creates a [Scheduler] for job at the given interval.
//
// onSkip, if non-nil, is called whenever a cycle is skipped because the
// previous one has not finished. The scheduler must be started with
// [Scheduler.Start] and stopped with [Scheduler.Stop].
func NewScheduler(job Job, interval time.Duration, logger *slog.Logger, onSkip func()) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		job:      job,
		interval: interval,
		logger:   logger,
		onSkip:   onSkip,
	}
}

// Start begins the polling loop in a background goroutine.
//
// The first cycle runs immediately. If ctx is nil, context.Background() is
// used. Start is idempotent; if Stop was called first, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	loopCtx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		s.launch(loopCtx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.launch(loopCtx)
			}
		}
	}()
}

// Trigger runs one cycle synchronously on the caller's goroutine.
//
// It returns false without running the job if a cycle is already in
// flight, or if the scheduler has not been started or has been stopped.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return false
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped()
		return false
	}
	defer s.inFlight.Store(false)

	s.safeRun(ctx)
	return true
}

// Stop cancels the loop and blocks until any in-flight cycle returns.
// Stop is idempotent; calling it before Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// launch starts a cycle on its own goroutine unless one is in flight.
// Called only from the loop goroutine, which holds a wg slot.
func (s *Scheduler) launch(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		s.safeRun(ctx)
	}()
}

func (s *Scheduler) skipped() {
	s.logger.Debug("poll cycle skipped", "reason", "previous cycle in flight")
	if s.onSkip != nil {
		s.onSkip()
	}
}

// safeRun calls the job with panic recovery.
// A panic is logged with the full stack trace and a correlation ID and does
// not stop the schedule.
func (s *Scheduler) safeRun(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("poll cycle panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.job(ctx)
}
