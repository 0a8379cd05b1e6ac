package bluetooth

import (
	"fmt"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	bluezDest         = "org.bluez"
	bluezRoot         = "/"
	adapterPathPrefix = "/org/bluez/"
)

// adapterHandle is the BlueZ adapter object this session owns for its
// lifetime; exactly one is active per process.
type adapterHandle struct {
	conn *dbus.Conn
	path dbus.ObjectPath
}

func openDefaultAdapter(conn *dbus.Conn) (*adapterHandle, error) {
	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	root := conn.Object(bluezDest, bluezRoot)
	if err := root.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&managed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}
	for path := range managed {
		p := string(path)
		if strings.HasPrefix(p, adapterPathPrefix) && strings.Count(p, "/") == 2 {
			return &adapterHandle{conn: conn, path: path}, nil
		}
	}
	return nil, ErrAdapterUnavailable
}

func (a *adapterHandle) object() dbus.BusObject {
	return a.conn.Object(bluezDest, a.path)
}

func (a *adapterHandle) setProperty(name string, value any) error {
	return a.object().SetProperty("org.bluez.Adapter1."+name, dbus.MakeVariant(value))
}

func (a *adapterHandle) setAlias(alias string) error  { return a.setProperty("Alias", alias) }
func (a *adapterHandle) setPowered(on bool) error     { return a.setProperty("Powered", on) }
func (a *adapterHandle) setPairable(on bool) error    { return a.setProperty("Pairable", on) }
func (a *adapterHandle) setDiscoverable(on bool) error { return a.setProperty("Discoverable", on) }
func (a *adapterHandle) setDiscoverableTimeout(s uint32) error {
	return a.setProperty("DiscoverableTimeout", s)
}

// agentHandle is a registered no-op pairing agent: BlueZ requires one
// present for the first pairing to succeed, even if it never prompts.
type agentHandle struct {
	conn *dbus.Conn
	path dbus.ObjectPath
}

const agentObjectPath = dbus.ObjectPath("/org/aawgbridge/agent")

// noopAgent implements the small subset of org.bluez.Agent1 BlueZ calls
// during pairing; every request is auto-accepted.
type noopAgent struct{}

func (noopAgent) Release() *dbus.Error                                  { return nil }
func (noopAgent) RequestPinCode(dbus.ObjectPath) (string, *dbus.Error)  { return "0000", nil }
func (noopAgent) RequestPasskey(dbus.ObjectPath) (uint32, *dbus.Error)  { return 0, nil }
func (noopAgent) DisplayPinCode(dbus.ObjectPath, string) *dbus.Error    { return nil }
func (noopAgent) DisplayPasskey(dbus.ObjectPath, uint32, uint16) *dbus.Error {
	return nil
}
func (noopAgent) RequestConfirmation(dbus.ObjectPath, uint32) *dbus.Error { return nil }
func (noopAgent) RequestAuthorization(dbus.ObjectPath) *dbus.Error        { return nil }
func (noopAgent) AuthorizeService(dbus.ObjectPath, string) *dbus.Error    { return nil }
func (noopAgent) Cancel() *dbus.Error                                    { return nil }

func registerAgent(conn *dbus.Conn) (*agentHandle, error) {
	if err := conn.Export(noopAgent{}, agentObjectPath, "org.bluez.Agent1"); err != nil {
		return nil, fmt.Errorf("%w: export agent: %v", ErrProfileRegisterFailed, err)
	}

	mgr := conn.Object(bluezDest, bluezRoot)
	if err := mgr.Call("org.bluez.AgentManager1.RegisterAgent", 0, agentObjectPath, "NoInputNoOutput").Err; err != nil {
		return nil, fmt.Errorf("%w: register agent: %v", ErrProfileRegisterFailed, err)
	}
	_ = mgr.Call("org.bluez.AgentManager1.RequestDefaultAgent", 0, agentObjectPath).Err

	return &agentHandle{conn: conn, path: agentObjectPath}, nil
}

func (a *agentHandle) release() {
	mgr := a.conn.Object(bluezDest, bluezRoot)
	_ = mgr.Call("org.bluez.AgentManager1.UnregisterAgent", 0, a.path).Err
	_ = a.conn.Export(nil, a.path, "org.bluez.Agent1")
}

// profileHandle is a registered RFCOMM server (or client) profile.
// Inbound connections arrive on connections, fed by the exported
// org.bluez.Profile1.NewConnection method.
type profileHandle struct {
	conn        *dbus.Conn
	path        dbus.ObjectPath
	connections chan *os.File
}

type profileServer struct {
	h *profileHandle
}

func (p *profileServer) Release() *dbus.Error { return nil }

func (p *profileServer) NewConnection(device dbus.ObjectPath, fdIdx dbus.UnixFD, props map[string]dbus.Variant) *dbus.Error {
	f := os.NewFile(uintptr(fdIdx), string(device))
	select {
	case p.h.connections <- f:
	default:
	}
	return nil
}

func (p *profileServer) RequestDisconnection(device dbus.ObjectPath) *dbus.Error { return nil }

// registerProfile registers a server-role RFCOMM profile for uuid on
// channel, requiring no auth/authorization.
func registerProfile(conn *dbus.Conn, objPath dbus.ObjectPath, uuid string, channel uint16) (*profileHandle, error) {
	h := &profileHandle{conn: conn, path: objPath, connections: make(chan *os.File, 1)}

	if err := conn.Export(&profileServer{h: h}, objPath, "org.bluez.Profile1"); err != nil {
		return nil, fmt.Errorf("%w: export profile: %v", ErrProfileRegisterFailed, err)
	}

	opts := map[string]dbus.Variant{
		"Role":                  dbus.MakeVariant("server"),
		"Channel":               dbus.MakeVariant(channel),
		"RequireAuthentication": dbus.MakeVariant(false),
		"RequireAuthorization":  dbus.MakeVariant(false),
	}

	mgr := conn.Object(bluezDest, bluezRoot)
	if err := mgr.Call("org.bluez.ProfileManager1.RegisterProfile", 0, objPath, uuid, opts).Err; err != nil {
		_ = conn.Export(nil, objPath, "org.bluez.Profile1")
		return nil, fmt.Errorf("%w: %v", ErrProfileRegisterFailed, err)
	}

	return h, nil
}

func (p *profileHandle) release() {
	mgr := p.conn.Object(bluezDest, bluezRoot)
	_ = mgr.Call("org.bluez.ProfileManager1.UnregisterProfile", 0, p.path).Err
	_ = p.conn.Export(nil, p.path, "org.bluez.Profile1")
}

// connectProfile initiates an outbound connection from device to the
// profile identified by uuid (used for the dongle-mode HSP connect).
func connectProfile(conn *dbus.Conn, device dbus.ObjectPath, uuid string) error {
	obj := conn.Object(bluezDest, device)
	return obj.Call("org.bluez.Device1.ConnectProfile", 0, uuid).Err
}

// bondedDevices lists every device object BlueZ reports as paired, for the
// dongle-mode "any" outbound-connect fan-out.
func bondedDevices(conn *dbus.Conn) ([]dbus.ObjectPath, error) {
	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	root := conn.Object(bluezDest, bluezRoot)
	if err := root.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&managed); err != nil {
		return nil, err
	}
	var devices []dbus.ObjectPath
	for path, ifaces := range managed {
		props, ok := ifaces["org.bluez.Device1"]
		if !ok {
			continue
		}
		if paired, ok := props["Paired"].Value().(bool); ok && paired {
			devices = append(devices, path)
		}
	}
	return devices, nil
}
