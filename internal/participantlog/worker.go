package participantlog

import (
	"context"
	"time"

	"github.com/nerrad567/thermlog/internal/sink"
)

// NextWait returns how long the worker sleeps after a tick that took
// elapsed: the rest of the interval, but never less than minGranularity
// and never more than the interval.
func NextWait(interval, elapsed, minGranularity time.Duration) time.Duration {
	wait := interval - elapsed
	if wait < minGranularity {
		wait = minGranularity
	}
	if wait > interval {
		wait = interval
	}
	return wait
}

// run is the worker loop. It exits only when ctx is cancelled.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	if !sleepCtx(ctx, e.opts.StartupDelay) {
		return
	}

	pullFailing := make(map[Key]bool)
	for {
		t0 := time.Now()
		stats := e.tick(ctx, pullFailing)
		elapsed := time.Since(t0)

		interval := e.Interval()
		stats.Duration = elapsed
		stats.Overrun = elapsed > interval
		stats.Wait = NextWait(interval, elapsed, e.opts.MinGranularity)
		e.ticks.Add(1)
		if obs := e.getObserver(); obs != nil {
			obs.ObserveTick(stats)
		}
		if stats.Overrun {
			e.getLogger().Debug("participant log tick overran interval", "elapsed", elapsed, "interval", interval)
		}

		if !sleepCtx(ctx, stats.Wait) {
			return
		}
	}
}

// tick writes an owed header and one data row. Route and pull failures
// are logged once per streak and never end the loop.
func (e *Engine) tick(ctx context.Context, pullFailing map[Key]bool) TickStats {
	now := e.opts.Clock()
	stats := TickStats{Start: now}

	e.stateMu.RLock()
	routes, written, gen, suspended := e.routes, e.headerWritten, e.headerGen, e.suspended
	e.stateMu.RUnlock()

	if suspended || routes == 0 {
		stats.Skipped = true
		return stats
	}

	owed := routes &^ written
	f := e.render(ctx, now, owed != 0)
	stats.Entries = f.entries

	if len(f.promote) > 0 {
		e.store.mu.Lock()
		for _, en := range f.promote {
			en.state = Initialized
		}
		e.store.mu.Unlock()
	}
	e.trackPulls(f.pulls, pullFailing)
	for _, p := range f.pulls {
		if p.err != nil {
			stats.PullFailures++
		}
	}

	failed := e.writeHeader(owed, f.header)

	e.stateMu.Lock()
	if e.headerGen == gen {
		e.headerWritten |= (owed &^ failed) & e.routes
	}
	rowRoutes := routes & e.headerWritten
	e.stateMu.Unlock()

	if rowRoutes != 0 {
		failed |= e.out.Write(rowRoutes, f.row)
	}

	stats.HeaderRoutes = owed &^ failed
	stats.RowRoutes = rowRoutes
	stats.FailedRoutes = failed
	return stats
}

func (e *Engine) writeHeader(owed sink.RouteSet, header string) sink.RouteSet {
	if owed == 0 {
		return 0
	}
	return e.out.Write(owed, header)
}

func (e *Engine) trackPulls(pulls []pullOutcome, failing map[Key]bool) {
	for _, p := range pulls {
		switch {
		case p.err != nil && !failing[p.key]:
			failing[p.key] = true
			e.getLogger().Warn("capability refresh failed", "participant", p.name,
				"domain", p.key.Domain, "capability", p.key.Capability.String(), "error", p.err)
		case p.err == nil && failing[p.key]:
			delete(failing, p.key)
			e.getLogger().Info("capability refresh recovered", "participant", p.name,
				"domain", p.key.Domain, "capability", p.key.Capability.String())
		}
	}
}

// sleepCtx waits d or until ctx is done. It reports whether the full
// wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
