package monitor

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMonitorDetectsStallWhenNeitherDirectionMoves(t *testing.T) {
	var phone, car atomic.Uint64
	m := New(Counters{PhoneToCar: &phone, CarToPhone: &car}, 0, 50*time.Millisecond, discardLogger())
	m.now = func() time.Time { return time.Now() }

	stop := make(chan struct{})
	defer close(stop)

	err := m.Run(stop)
	require.ErrorIs(t, err, ErrTransferStall)
}

func TestMonitorNoStallWhenBothDirectionsMove(t *testing.T) {
	var phone, car atomic.Uint64
	m := New(Counters{PhoneToCar: &phone, CarToPhone: &car}, 0, 150*time.Millisecond, discardLogger())

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- m.Run(stop) }()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(200 * time.Millisecond)
loop:
	for {
		select {
		case <-ticker.C:
			phone.Add(1)
			car.Add(1)
		case <-deadline:
			break loop
		}
	}
	close(stop)
	require.NoError(t, <-done)
}
