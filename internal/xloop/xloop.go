// Package xloop runs the panel's single-threaded event loop. X events are
// pumped from the connection by a separate goroutine into a channel; the
// loop interleaves them with posted functions, idle callbacks, and timer
// firings so that every callback runs to completion on one goroutine.
package xloop

import (
	"context"
	"log/slog"
	"time"

	"github.com/jezek/xgb"
)

// Receive pumps X events into eventC until the connection or context dies.
// WaitForEvent returns either an event or an error, never both; both nil
// means the connection is gone and the pump stops.
func Receive(ctx context.Context, conn *xgb.Conn, eventC chan<- xgb.Event) {
	for {
		ev, err := conn.WaitForEvent()
		if ev == nil && err == nil {
			slog.Debug("X connection closed, stopping event pump")
			close(eventC)
			return
		}
		if err != nil {
			slog.Debug("X error event", "error", err)
			continue
		}

		select {
		case eventC <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Handle cancels a scheduled idle or timer callback. Cancel is safe to call
// from the loop goroutine only, which makes cancellation synchronous with
// respect to every other callback.
type Handle struct {
	cancelled *bool
	stop      func()
}

func (h Handle) Cancel() {
	if h.cancelled != nil {
		*h.cancelled = true
	}
	if h.stop != nil {
		h.stop()
	}
}

type Loop struct {
	eventC <-chan xgb.Event
	funcC  chan func()
}

func New(eventC <-chan xgb.Event) *Loop {
	return &Loop{
		eventC: eventC,
		// Buffered so timer goroutines never block the loop against itself.
		funcC: make(chan func(), 64),
	}
}

// Post queues fn to run on the loop goroutine on a later iteration.
func (l *Loop) Post(fn func()) {
	l.funcC <- fn
}

// ScheduleIdle runs fn once on the next loop turn, after the current
// callback has completed.
func (l *Loop) ScheduleIdle(fn func()) Handle {
	cancelled := new(bool)
	l.Post(func() {
		if !*cancelled {
			fn()
		}
	})
	return Handle{cancelled: cancelled}
}

// ScheduleEvery runs fn on the loop goroutine every interval until the
// returned handle is cancelled.
func (l *Loop) ScheduleEvery(interval time.Duration, fn func()) Handle {
	cancelled := new(bool)
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				l.Post(func() {
					if !*cancelled {
						fn()
					}
				})
			case <-done:
				return
			}
		}
	}()
	return Handle{
		cancelled: cancelled,
		stop: func() {
			ticker.Stop()
			close(done)
		},
	}
}

// Run dispatches until the context is cancelled or the event channel
// closes. handler is invoked for every X event; posted functions run
// between events.
func (l *Loop) Run(ctx context.Context, handler func(xgb.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.funcC:
			fn()
		case ev, ok := <-l.eventC:
			if !ok {
				return nil
			}
			handler(ev)
		}
	}
}
