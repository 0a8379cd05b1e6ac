// Package supervisor orchestrates one session's full lifecycle: bind
// listeners once, bring up Bluetooth and run the handshake, acquire the
// MD/HU endpoints, spawn the frame readers/proxy workers/transfer
// monitor, and restart from scratch on any task's failure.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/aawireless/aawg-bridge/pkg/bluetooth"
	"github.com/aawireless/aawg-bridge/pkg/endpoint"
	"github.com/aawireless/aawg-bridge/pkg/frame"
	"github.com/aawireless/aawg-bridge/pkg/metrics"
	"github.com/aawireless/aawg-bridge/pkg/monitor"
	"github.com/aawireless/aawg-bridge/pkg/proxy"
)

// TCPAcceptTimeout bounds both the MD and DHU TCP accepts.
const TCPAcceptTimeout = 30 * time.Second

// Config is the full set of options a session's lifecycle needs, spanning
// the Bluetooth bring-up, endpoint acquisition, and proxy behavior.
type Config struct {
	Wired bool // phone on USB; skip BT handshake and TCP MD accept
	DHU   bool // HU side is the desktop emulator over TCP

	TCPServerPort    int
	TCPDHUPort       int
	USBAccessoryPath string

	Bluetooth  bluetooth.Config
	WifiConfig bluetooth.WifiConfig

	StatsInterval time.Duration
	ReadTimeout   time.Duration

	Filter proxy.Filter // nil ⇒ pass-through
}

// Supervisor binds its listeners once at construction and then runs
// sessions to completion, restarting after each one ends.
type Supervisor struct {
	cfg Config
	log *slog.Logger

	mdListener  net.Listener
	dhuListener net.Listener

	tcpStart    *Notifier
	needRestart *Notifier
}

// New binds the MD listener (unless Wired) and the DHU listener (if DHU)
// once, for the lifetime of the process.
func New(cfg Config, log *slog.Logger) (*Supervisor, error) {
	s := &Supervisor{
		cfg:         cfg,
		log:         log,
		tcpStart:    NewNotifier(),
		needRestart: NewNotifier(),
	}

	if !cfg.Wired {
		l, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", cfg.TCPServerPort))
		if err != nil {
			return nil, fmt.Errorf("supervisor: bind MD listener: %w", err)
		}
		s.mdListener = l
	}

	if cfg.DHU {
		l, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", cfg.TCPDHUPort))
		if err != nil {
			return nil, fmt.Errorf("supervisor: bind DHU listener: %w", err)
		}
		s.dhuListener = l
	}

	return s, nil
}

// NeedRestart exposes the supervisor's restart signal for callers that want
// to observe session churn (e.g. metrics).
func (s *Supervisor) NeedRestart() <-chan struct{} { return s.needRestart.C() }

// Run drives sessions back-to-back until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sessionID := uuid.New().String()
		log := s.log.With("session_id", sessionID)
		start := time.Now()

		err := s.runSession(ctx, log)
		duration := time.Since(start)
		log.Info("session ended", "duration", duration, "error", err)
		metrics.ObserveSessionDuration(duration.Seconds())
		s.needRestart.Notify()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Supervisor) runSession(ctx context.Context, log *slog.Logger) error {
	var controller *bluetooth.Controller
	if !s.cfg.Wired {
		c, err := bluetooth.NewController(s.cfg.Bluetooth, log)
		if err != nil {
			return fmt.Errorf("bluetooth bring-up: %w", err)
		}
		controller = c

		handshakeErr := make(chan error, 1)
		go func() {
			stream, err := controller.BringUp()
			if err != nil {
				handshakeErr <- err
				return
			}
			defer stream.Close()
			err = bluetooth.RunHandshake(stream, s.cfg.WifiConfig, log)
			if err == nil {
				s.tcpStart.Notify()
			}
			handshakeErr <- err
		}()
		defer controller.Stop()

		select {
		case err := <-handshakeErr:
			if err != nil {
				metrics.IncHandshakeFailure("handshake_failed")
				return fmt.Errorf("handshake: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	mdEP, err := s.acquireMD(ctx)
	if err != nil {
		return fmt.Errorf("acquire MD endpoint: %w", err)
	}
	defer mdEP.Close()

	huEP, err := s.acquireHU(ctx)
	if err != nil {
		return fmt.Errorf("acquire HU endpoint: %w", err)
	}
	defer huEP.Close()

	return s.runProxy(mdEP, huEP, log)
}

func (s *Supervisor) acquireMD(ctx context.Context) (endpoint.Endpoint, error) {
	if s.cfg.Wired {
		return endpoint.OpenUSBAccessory(s.cfg.USBAccessoryPath)
	}

	select {
	case <-s.tcpStart.C():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	conn, err := acceptWithTimeout(s.mdListener, TCPAcceptTimeout)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return endpoint.NewStreamEndpoint(conn), nil
}

func (s *Supervisor) acquireHU(ctx context.Context) (endpoint.Endpoint, error) {
	if s.cfg.DHU {
		conn, err := acceptWithTimeout(s.dhuListener, TCPAcceptTimeout)
		if err != nil {
			return nil, err
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		return endpoint.NewStreamEndpoint(conn), nil
	}
	return endpoint.OpenUSBAccessory(s.cfg.USBAccessoryPath)
}

func acceptWithTimeout(l net.Listener, timeout time.Duration) (net.Conn, error) {
	if tl, ok := l.(*net.TCPListener); ok {
		if err := tl.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}
	conn, err := l.Accept()
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	return conn, nil
}

type taskResult struct {
	name string
	err  error
}

// runProxy spawns the four I/O tasks plus the transfer monitor, waits for
// the first to finish, and cancels the rest.
func (s *Supervisor) runProxy(mdEP, huEP endpoint.Endpoint, log *slog.Logger) error {
	mdReader := frame.NewReader(mdEP)
	huReader := frame.NewReader(huEP)

	phoneToCar := proxy.NewWorker(proxy.PhoneToCar, huEP, mdReader.Packets, s.cfg.Filter)
	carToPhone := proxy.NewWorker(proxy.CarToPhone, mdEP, huReader.Packets, s.cfg.Filter)

	mon := monitor.New(monitor.Counters{
		PhoneToCar: &phoneToCar.BytesWritten,
		CarToPhone: &carToPhone.BytesWritten,
	}, s.cfg.StatsInterval, s.cfg.ReadTimeout, log)
	monitorStop := make(chan struct{})

	results := make(chan taskResult, 5)
	go func() { results <- taskResult{"md_reader", mdReader.Run()} }()
	go func() { results <- taskResult{"hu_reader", huReader.Run()} }()
	go func() { results <- taskResult{"phone_to_car", phoneToCar.Run()} }()
	go func() { results <- taskResult{"car_to_phone", carToPhone.Run()} }()
	go func() { results <- taskResult{"monitor", mon.Run(monitorStop)} }()

	first := <-results
	log.Info("session task finished first", "task", first.name, "error", first.err)

	// Closing the endpoints only unblocks a reader parked in Read. If the
	// first finisher was a proxy Worker (its consumer), its upstream Reader
	// may instead be parked sending on a full Packets channel that nobody
	// drains anymore; Stop unblocks that send so every task is guaranteed
	// to finish before the next session starts.
	close(monitorStop)
	mdReader.Stop()
	huReader.Stop()
	_ = mdEP.Close()
	_ = huEP.Close()

	for i := 0; i < 4; i++ {
		<-results
	}

	metrics.AddBytes(metrics.DirectionPhoneToCar, phoneToCar.BytesWritten.Load())
	metrics.AddBytes(metrics.DirectionCarToPhone, carToPhone.BytesWritten.Load())

	return first.err
}
