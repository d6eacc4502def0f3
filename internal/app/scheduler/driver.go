package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"mythicforge/internal/app/engine"

	"github.com/rs/zerolog"
)

// Advancer moves the forge core forward by one interval.
type Advancer interface {
	Advance(ctx context.Context) (engine.TickReport, error)
}

// Driver is the only component with timing authority: it calls Advance once
// per interval and never overlaps two calls. An interval whose predecessor is
// still running is skipped.
type Driver struct {
	Target   Advancer
	Interval time.Duration
	Log      zerolog.Logger

	running atomic.Bool
	skipped atomic.Uint64
	ticks   atomic.Uint64
}

func New(target Advancer, interval time.Duration, log zerolog.Logger) *Driver {
	return &Driver{Target: target, Interval: interval, Log: log}
}

// Run blocks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	interval := d.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	d.Log.Info().Dur("interval", interval).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			d.Log.Info().Uint64("ticks", d.ticks.Load()).Msg("scheduler stopped")
			return nil
		case <-ticker.C:
			d.Step(ctx)
		}
	}
}

// Step runs a single interval. It reports false when the previous interval
// was still in progress.
func (d *Driver) Step(ctx context.Context) bool {
	if !d.running.CompareAndSwap(false, true) {
		d.skipped.Add(1)
		d.Log.Warn().Msg("previous tick still running, interval skipped")
		return false
	}
	defer d.running.Store(false)

	started := time.Now()
	report, err := d.Target.Advance(ctx)
	d.ticks.Add(1)
	if err != nil && ctx.Err() == nil {
		d.Log.Error().Err(err).Msg("tick finished with errors")
	}
	d.Log.Debug().
		Int("advanced", report.Advanced).
		Int("completed", report.Completed).
		Int("settled", report.Settled).
		Int("settle_failures", report.SettleFailures).
		Dur("took", time.Since(started)).
		Msg("tick")
	return true
}

func (d *Driver) Ticks() uint64 {
	return d.ticks.Load()
}

func (d *Driver) Skipped() uint64 {
	return d.skipped.Load()
}
