package bluetooth

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
	"tinygo.org/x/bluetooth"
)

// Controller owns the adapter for the process and drives one bring-up /
// handshake / shutdown cycle per session. Exactly one State is
// live at a time; BringUp fails if one already is.
type Controller struct {
	cfg  Config
	log  *slog.Logger
	conn *dbus.Conn

	state *State
}

// NewController dials the system bus once; the same connection is reused
// across every bring-up/shutdown cycle run on the returned Controller.
func NewController(cfg Config, log *slog.Logger) (*Controller, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}
	return &Controller{cfg: cfg, log: log, conn: conn}, nil
}

// BringUp runs the full bring-up sequence: open the
// adapter, set alias, power on, advertise or go discoverable, register
// the pairing agent, register the AAWG RFCOMM profile (and, in dongle
// mode, the opportunistic HSP profile plus outbound connector), then
// accept the first inbound RFCOMM connection within AcceptWait.
func (c *Controller) BringUp() (stream *os.File, err error) {
	if c.state != nil {
		return nil, fmt.Errorf("bluetooth: bring-up while a session state is still live")
	}

	adapter, err := openDefaultAdapter(c.conn)
	if err != nil {
		return nil, err
	}

	alias := deriveAlias(c.cfg.Alias)
	if err := adapter.setAlias(alias); err != nil {
		return nil, fmt.Errorf("%w: set alias: %v", ErrAdapterUnavailable, err)
	}
	if err := adapter.setPowered(true); err != nil {
		return nil, fmt.Errorf("%w: power on: %v", ErrAdapterUnavailable, err)
	}
	if err := adapter.setPairable(true); err != nil {
		return nil, fmt.Errorf("%w: set pairable: %v", ErrAdapterUnavailable, err)
	}

	state := &State{adapter: adapter, keepalive: c.cfg.Keepalive}

	if c.cfg.Advertise {
		tgAdapter := bluetooth.DefaultAdapter
		if err := tgAdapter.Enable(); err != nil {
			c.teardown(state)
			return nil, fmt.Errorf("%w: %v", ErrAdvertiseFailed, err)
		}
		advert, err := startAdvertisement(tgAdapter, alias)
		if err != nil {
			c.teardown(state)
			return nil, fmt.Errorf("%w: %v", ErrAdvertiseFailed, err)
		}
		state.advert = advert
	} else {
		if err := adapter.setDiscoverableTimeout(0); err != nil {
			c.teardown(state)
			return nil, fmt.Errorf("%w: %v", ErrAdvertiseFailed, err)
		}
		if err := adapter.setDiscoverable(true); err != nil {
			c.teardown(state)
			return nil, fmt.Errorf("%w: %v", ErrAdvertiseFailed, err)
		}
	}

	agent, err := registerAgent(c.conn)
	if err != nil {
		c.teardown(state)
		return nil, err
	}
	state.agent = agent

	profile, err := registerProfile(c.conn, "/org/aawgbridge/profile/aawg", AAWGServiceUUID, RFCOMMChannel)
	if err != nil {
		c.teardown(state)
		return nil, err
	}
	state.profile = profile

	if c.cfg.DongleMode {
		hsp, err := registerProfile(c.conn, "/org/aawgbridge/profile/hsp", HSPHeadsetUUID, 0)
		if err != nil {
			c.log.Warn("hsp profile registration failed, continuing without it", "error", err)
		} else {
			state.hspProfile = hsp
		}
		if c.cfg.ConnectTo != "" {
			state.connector = startHSPConnector(c.conn, adapter.path, c.cfg.ConnectTo, c.log)
		}
	}

	c.state = state

	var f *os.File
	select {
	case f = <-profile.connections:
	case <-time.After(c.cfg.AcceptWait):
		c.teardown(state)
		c.state = nil
		return nil, ErrAcceptTimeout
	}

	if state.connector != nil {
		state.connector.stop()
		state.connector = nil
	}

	return f, nil
}

// Stop tears down the session's BluetoothState.
func (c *Controller) Stop() {
	if c.state == nil {
		return
	}
	c.teardown(c.state)
	c.state = nil
}

func (c *Controller) teardown(state *State) {
	if state.advert != nil {
		if err := state.advert.stop(); err != nil {
			c.log.Warn("stop advertisement", "error", err)
		}
	}
	if state.agent != nil {
		state.agent.release()
	}
	if state.profile != nil {
		state.profile.release()
	}
	if state.hspProfile != nil {
		c.awaitHSPTeardown(state)
		state.hspProfile.release()
	}
	if state.connector != nil {
		state.connector.cancel()
		select {
		case <-state.connector.done:
		case <-time.After(HSPTeardownTimeout):
			c.log.Warn("hsp connector join timed out")
		}
	}
	if !state.keepalive {
		if err := state.adapter.setPowered(false); err != nil {
			c.log.Warn("power off adapter", "error", err)
		}
	}
}

func (c *Controller) awaitHSPTeardown(state *State) {
	done := make(chan *os.File, 1)
	go func() {
		select {
		case f := <-state.hspProfile.connections:
			done <- f
		default:
		}
		close(done)
	}()

	select {
	case f := <-done:
		if f != nil {
			_ = f.Close()
		}
	case <-time.After(HSPTeardownTimeout):
		c.log.Warn("hsp teardown join timed out")
	}
}
