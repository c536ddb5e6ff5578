package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"quantai-bot/internal/interfaces"
	"quantai-bot/internal/logger"
	"quantai-bot/internal/state"
	"quantai-bot/internal/types"
)

var (
	ErrAlreadyRunning = errors.New("continuous runner already active")
	ErrNotRunning     = errors.New("continuous runner not active")
	ErrBusy           = errors.New("a cycle is already in progress")
)

// Runner owns the continuous start/stop lifecycle around the pipeline.
// Cancellation is cooperative: the stop signal is checked before each
// cycle and during the inter-cycle sleep, never mid-cycle.
type Runner struct {
	pipeline interfaces.Pipeline
	store    *state.Store

	mu      sync.Mutex
	running bool
	busy    bool
	stopCh  chan struct{}
}

func New(pipeline interfaces.Pipeline, store *state.Store) *Runner {
	return &Runner{pipeline: pipeline, store: store}
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start launches the continuous loop. maxCycles <= 0 runs until stopped.
func (r *Runner) Start(ctx context.Context, maxCycles int, interval time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyRunning
	}
	r.running = true
	r.stopCh = make(chan struct{})

	go r.loop(ctx, maxCycles, interval, r.stopCh)
	return nil
}

// Stop signals the loop to exit. The in-flight cycle, if any, always runs
// to DONE first.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return ErrNotRunning
	}
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	return nil
}

// RunOnce triggers a single manual cycle. Rejected while the continuous
// loop is active or another manual cycle is in flight.
func (r *Runner) RunOnce(ctx context.Context) (types.CycleReport, error) {
	r.mu.Lock()
	if r.running || r.busy {
		r.mu.Unlock()
		return types.CycleReport{}, ErrBusy
	}
	r.busy = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()
	return r.pipeline.RunCycle(ctx)
}

func (r *Runner) loop(ctx context.Context, maxCycles int, interval time.Duration, stopCh chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		r.logFinalSummary(ctx)
	}()

	for i := 0; maxCycles <= 0 || i < maxCycles; i++ {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if _, err := r.pipeline.RunCycle(ctx); err != nil {
			// Contained per cycle: log and keep the loop alive.
			logger.ErrorWithErr(ctx, "Cycle returned an error", err)
		}

		if maxCycles > 0 && i == maxCycles-1 {
			return
		}

		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (r *Runner) logFinalSummary(ctx context.Context) {
	sum := r.store.PortfolioSummary()
	logger.Info(ctx, "Continuous run finished",
		"cycles", r.store.CycleCount(),
		"total_pnl", sum.TotalPnLUSD,
		"daily_pnl", sum.DailyPnLUSD,
		"daily_loss", sum.DailyLossUSD,
		"win_rate", sum.WinRatePct,
		"positions", sum.PositionCount,
	)
}
