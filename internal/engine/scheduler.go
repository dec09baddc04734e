package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/domain"
)

// scheduler drives recurring full syncs. A tick is skipped while the
// previous full sync is still running, so slow syncs never overlap.
type scheduler struct {
	mu       sync.Mutex
	running  bool
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	tickBusy bool
}

// nextRun computes the next scheduled run, or nil when auto-sync is off.
func (s *scheduler) nextRun(now time.Time, fallback time.Duration) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	interval := s.interval
	if interval <= 0 {
		interval = fallback
	}
	next := now.Add(interval)
	return &next
}

// StartAutoSync begins a recurring full sync every interval. Calling it
// again replaces the previous timer, so restarts are idempotent.
func (o *Orchestrator) StartAutoSync(interval time.Duration) {
	if interval <= 0 {
		interval = o.cfg.Interval
	}

	o.sched.mu.Lock()
	if o.sched.running {
		// Replace the previous timer.
		close(o.sched.stopCh)
		o.sched.mu.Unlock()
		o.sched.wg.Wait()
		o.sched.mu.Lock()
	}
	o.sched.running = true
	o.sched.interval = interval
	o.sched.stopCh = make(chan struct{})
	stopCh := o.sched.stopCh
	o.sched.mu.Unlock()

	o.sched.wg.Add(1)
	go o.autoSyncLoop(interval, stopCh)

	o.appendLog(context.Background(), &domain.LogEntry{
		Action:    "auto_sync_start",
		Direction: domain.DirectionBidirectional,
		Status:    domain.LogSuccess,
		Details:   map[string]any{"interval_minutes": interval.Minutes()},
	})
	log.Info().Dur("interval", interval).Msg("auto sync started")
}

// StopAutoSync cancels future ticks. An in-flight full sync runs to
// completion; only the timer stops.
func (o *Orchestrator) StopAutoSync() {
	o.sched.mu.Lock()
	if !o.sched.running {
		o.sched.mu.Unlock()
		return
	}
	o.sched.running = false
	close(o.sched.stopCh)
	o.sched.mu.Unlock()

	o.sched.wg.Wait()

	o.appendLog(context.Background(), &domain.LogEntry{
		Action:    "auto_sync_stop",
		Direction: domain.DirectionBidirectional,
		Status:    domain.LogSuccess,
	})
	log.Info().Msg("auto sync stopped")
}

// AutoSyncRunning reports whether the recurring timer is active.
func (o *Orchestrator) AutoSyncRunning() bool {
	o.sched.mu.Lock()
	defer o.sched.mu.Unlock()
	return o.sched.running
}

func (o *Orchestrator) autoSyncLoop(interval time.Duration, stopCh chan struct{}) {
	defer o.sched.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			o.sched.mu.Lock()
			busy := o.sched.tickBusy
			if !busy {
				o.sched.tickBusy = true
			}
			o.sched.mu.Unlock()

			if busy {
				// Reentrancy guard: the previous tick is still syncing.
				log.Debug().Msg("full sync still in progress, skipping tick")
				continue
			}

			go func() {
				defer func() {
					o.sched.mu.Lock()
					o.sched.tickBusy = false
					o.sched.mu.Unlock()
				}()

				// Cooperative cancellation bound: a tick may never run
				// longer than the interval itself.
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				defer cancel()

				res := o.fullSync(ctx, true)
				log.Info().Bool("success", res.Success).
					Int("types", len(res.Results)).Msg("scheduled full sync finished")
			}()
		}
	}
}
