// Package monitor watches a session's two direction counters, logging
// throughput periodically and failing the session if either direction
// stalls.
package monitor

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// TickInterval is how often the monitor samples the counters.
const TickInterval = 100 * time.Millisecond

// ErrTransferStall is returned when either direction has moved no bytes
// for a full read_timeout window.
var ErrTransferStall = errors.New("monitor: transfer stall detected")

// Counters is the pair of per-direction byte counters a Monitor watches.
// Both are read concurrently with writers incrementing them; relaxed
// atomicity is sufficient since the values are advisory.
type Counters struct {
	PhoneToCar *atomic.Uint64
	CarToPhone *atomic.Uint64
}

// Monitor periodically logs throughput and detects stalls over Counters.
type Monitor struct {
	counters      Counters
	statsInterval time.Duration // zero disables stats logging
	readTimeout   time.Duration // stall window; zero disables the watchdog
	log           *slog.Logger
	now           func() time.Time
}

// New builds a Monitor. statsInterval of zero suppresses throughput
// logging; readTimeout of zero disables the stall watchdog.
func New(counters Counters, statsInterval, readTimeout time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{
		counters:      counters,
		statsInterval: statsInterval,
		readTimeout:   readTimeout,
		log:           log,
		now:           time.Now,
	}
}

// Run ticks every TickInterval until ctx-like cancellation via stop, or
// until it detects a stall, in which case it returns ErrTransferStall.
func (m *Monitor) Run(stop <-chan struct{}) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	lastStats := m.now()
	lastStall := m.now()
	statsPhone, statsCar := m.counters.PhoneToCar.Load(), m.counters.CarToPhone.Load()
	stallPhone, stallCar := statsPhone, statsCar

	for {
		select {
		case <-stop:
			return nil
		case now := <-ticker.C:
			phone, car := m.counters.PhoneToCar.Load(), m.counters.CarToPhone.Load()

			if m.statsInterval > 0 && now.Sub(lastStats) >= m.statsInterval {
				elapsed := now.Sub(lastStats).Seconds()
				deltaPhone := phone - statsPhone
				deltaCar := car - statsCar
				m.log.Info("throughput",
					"phone_to_car_delta", humanize.Bytes(deltaPhone),
					"phone_to_car_rate", humanize.Bytes(uint64(float64(deltaPhone)/elapsed))+"/s",
					"phone_to_car_total", humanize.Bytes(phone),
					"car_to_phone_delta", humanize.Bytes(deltaCar),
					"car_to_phone_rate", humanize.Bytes(uint64(float64(deltaCar)/elapsed))+"/s",
					"car_to_phone_total", humanize.Bytes(car),
				)
				statsPhone, statsCar = phone, car
				lastStats = now
			}

			if m.readTimeout > 0 && now.Sub(lastStall) >= m.readTimeout {
				if phone == stallPhone || car == stallCar {
					return ErrTransferStall
				}
				stallPhone, stallCar = phone, car
				lastStall = now
			}
		}
	}
}
