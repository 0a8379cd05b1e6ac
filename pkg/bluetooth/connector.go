package bluetooth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

// hspConnector is the dongle-mode outbound connector: it retries
// Device1.ConnectProfile against either a specific address or every
// currently-bonded device, every HSPRetryInterval, until one accepts or
// the context is cancelled.
type hspConnector struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startHSPConnector(conn *dbus.Conn, adapterPath dbus.ObjectPath, target string, log *slog.Logger) *hspConnector {
	ctx, cancel := context.WithCancel(context.Background())
	c := &hspConnector{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(HSPRetryInterval)
		defer ticker.Stop()

		for {
			if tryConnectHSP(conn, adapterPath, target, log) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return c
}

func tryConnectHSP(conn *dbus.Conn, adapterPath dbus.ObjectPath, target string, log *slog.Logger) bool {
	var candidates []dbus.ObjectPath
	if target != "" && target != "any" {
		candidates = []dbus.ObjectPath{devicePathFor(adapterPath, target)}
	} else {
		devices, err := bondedDevices(conn)
		if err != nil {
			log.Warn("hsp connector: list bonded devices", "error", err)
			return false
		}
		candidates = devices
	}

	for _, dev := range candidates {
		if err := connectProfile(conn, dev, HSPAudioGatewayUUID); err == nil {
			return true
		}
	}
	return false
}

func devicePathFor(adapterPath dbus.ObjectPath, addr string) dbus.ObjectPath {
	s := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath(string(adapterPath) + "/dev_" + s)
}

func (c *hspConnector) stop() {
	c.cancel()
	<-c.done
}
