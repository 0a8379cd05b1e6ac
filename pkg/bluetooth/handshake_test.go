package bluetooth

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aawireless/aawg-bridge/pkg/btproto"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunHandshakeHappyPath(t *testing.T) {
	ours, phone := net.Pipe()
	defer ours.Close()
	defer phone.Close()

	cfg := WifiConfig{
		IPAddr: "192.168.64.1",
		Port:   5288,
		SSID:   "AA-Wifi",
		WPAKey: "hunter22!",
		BSSID:  "aa:bb:cc:dd:ee:ff",
	}

	errc := make(chan error, 1)
	go func() { errc <- RunHandshake(ours, cfg, discardLogger()) }()

	_, _, _, err := btproto.Recv(phone, 1, btproto.WifiStartRequest, time.Now())
	require.NoError(t, err)

	_, err = btproto.Send(phone, 2, btproto.WifiInfoRequest, nil)
	require.NoError(t, err)

	_, _, _, err = btproto.Recv(phone, 3, btproto.WifiInfoResponse, time.Now())
	require.NoError(t, err)

	_, err = btproto.Send(phone, 4, btproto.WifiStartResponse, nil)
	require.NoError(t, err)

	_, err = btproto.Send(phone, 5, btproto.WifiConnectStatus, []byte{0x08, 0x00})
	require.NoError(t, err)

	require.NoError(t, <-errc)
}

func TestRunHandshakeWrongStageFails(t *testing.T) {
	ours, phone := net.Pipe()
	defer ours.Close()
	defer phone.Close()

	errc := make(chan error, 1)
	go func() { errc <- RunHandshake(ours, WifiConfig{}, discardLogger()) }()

	_, _, _, err := btproto.Recv(phone, 1, btproto.WifiStartRequest, time.Now())
	require.NoError(t, err)

	_, err = btproto.Send(phone, 2, btproto.WifiStartResponse, nil)
	require.NoError(t, err)

	var mismatch *btproto.ProtocolMismatchError
	require.ErrorAs(t, <-errc, &mismatch)
}

func TestRunHandshakePhoneCannotJoinFails(t *testing.T) {
	ours, phone := net.Pipe()
	defer ours.Close()
	defer phone.Close()

	cfg := WifiConfig{SSID: "AA-Wifi", WPAKey: "hunter22!"}

	errc := make(chan error, 1)
	go func() { errc <- RunHandshake(ours, cfg, discardLogger()) }()

	_, _, _, err := btproto.Recv(phone, 1, btproto.WifiStartRequest, time.Now())
	require.NoError(t, err)
	_, err = btproto.Send(phone, 2, btproto.WifiInfoRequest, nil)
	require.NoError(t, err)
	_, _, _, err = btproto.Recv(phone, 3, btproto.WifiInfoResponse, time.Now())
	require.NoError(t, err)
	_, err = btproto.Send(phone, 4, btproto.WifiStartResponse, nil)
	require.NoError(t, err)
	_, err = btproto.Send(phone, 5, btproto.WifiConnectStatus,
		[]byte{0x08, 0xFD, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	require.NoError(t, err)

	require.ErrorIs(t, <-errc, btproto.ErrPhoneWifiJoinFailed)
}
