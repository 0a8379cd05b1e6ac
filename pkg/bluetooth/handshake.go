package bluetooth

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aawireless/aawg-bridge/pkg/btproto"
)

// WifiConfig is the immutable-for-session bundle sent to the phone during
// the handshake: IPAddr and Port in stage 1, the network credentials in
// stage 3.
type WifiConfig struct {
	IPAddr string
	Port   uint16
	SSID   string
	WPAKey string
	BSSID  string
}

// RunHandshake drives the fixed 5-stage exchange over stream (an accepted
// RFCOMM connection) using cfg. Every stage transition is logged with its
// stage number and elapsed time since the handshake began.
func RunHandshake(stream io.ReadWriter, cfg WifiConfig, log *slog.Logger) error {
	started := time.Now()

	startBody, err := btproto.Marshal(btproto.WifiStartRequestBody{
		IPAddress: cfg.IPAddr,
		Port:      int32(cfg.Port),
	})
	if err != nil {
		return fmt.Errorf("handshake: marshal stage 1: %w", err)
	}
	if _, err := btproto.Send(stream, 1, btproto.WifiStartRequest, startBody); err != nil {
		return fmt.Errorf("handshake: stage 1 send: %w", err)
	}
	log.Info("handshake stage complete", "stage", 1, "elapsed", time.Since(started))

	if _, _, elapsed, err := btproto.Recv(stream, 2, btproto.WifiInfoRequest, started); err != nil {
		return fmt.Errorf("handshake: stage 2 recv: %w", err)
	} else {
		log.Info("handshake stage complete", "stage", 2, "elapsed", elapsed)
	}

	infoBody, err := btproto.Marshal(btproto.WifiInfoResponseBody{
		SSID:            cfg.SSID,
		Key:             cfg.WPAKey,
		BSSID:           cfg.BSSID,
		SecurityMode:    btproto.SecurityModeWPA2Personal,
		AccessPointType: btproto.AccessPointTypeDynamic,
	})
	if err != nil {
		return fmt.Errorf("handshake: marshal stage 3: %w", err)
	}
	if _, err := btproto.Send(stream, 3, btproto.WifiInfoResponse, infoBody); err != nil {
		return fmt.Errorf("handshake: stage 3 send: %w", err)
	}
	log.Info("handshake stage complete", "stage", 3, "elapsed", time.Since(started))

	if _, _, elapsed, err := btproto.Recv(stream, 4, btproto.WifiStartResponse, started); err != nil {
		return fmt.Errorf("handshake: stage 4 recv: %w", err)
	} else {
		log.Info("handshake stage complete", "stage", 4, "elapsed", elapsed)
	}

	if _, _, elapsed, err := btproto.Recv(stream, 5, btproto.WifiConnectStatus, started); err != nil {
		return fmt.Errorf("handshake: stage 5 recv: %w", err)
	} else {
		log.Info("handshake stage complete", "stage", 5, "elapsed", elapsed)
	}

	log.Info("handshake complete", "total_elapsed", time.Since(started))
	return nil
}
