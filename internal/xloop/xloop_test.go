package xloop

import (
	"context"
	"testing"
	"time"

	"github.com/jezek/xgb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runUntilEmpty(t *testing.T, l *Loop) {
	t.Helper()
	for {
		select {
		case fn := <-l.funcC:
			fn()
		default:
			return
		}
	}
}

func TestPostRunsInOrder(t *testing.T) {
	l := New(nil)

	var got []int
	l.Post(func() { got = append(got, 1) })
	l.Post(func() { got = append(got, 2) })
	runUntilEmpty(t, l)

	assert.Equal(t, []int{1, 2}, got)
}

func TestScheduleIdleCancel(t *testing.T) {
	l := New(nil)

	ran := false
	h := l.ScheduleIdle(func() { ran = true })
	h.Cancel()
	runUntilEmpty(t, l)

	assert.False(t, ran)
}

func TestScheduleEvery(t *testing.T) {
	l := New(nil)

	fired := make(chan struct{}, 8)
	h := l.ScheduleEvery(5*time.Millisecond, func() { fired <- struct{}{} })
	defer h.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		select {
		case fn := <-l.funcC:
			fn()
		case <-ctx.Done():
			t.Fatal("timer never fired")
		}
	}

	require.GreaterOrEqual(t, len(fired), 1)
}

func TestRunStopsOnClosedEvents(t *testing.T) {
	eventC := make(chan xgb.Event)
	close(eventC)
	l := New(eventC)

	err := l.Run(context.Background(), func(xgb.Event) {})
	assert.NoError(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	l := New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Run(ctx, func(xgb.Event) {})
	assert.ErrorIs(t, err, context.Canceled)
}
