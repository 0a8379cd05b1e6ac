package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultBundleIsValidOnceWifiFilledIn(t *testing.T) {
	cfg := DefaultBundle()
	cfg.Wifi = WifiConfig{
		IPAddr: "192.168.64.1",
		Port:   5288,
		SSID:   "AA-Wifi",
		WPAKey: "hunter22!",
		BSSID:  "aa:bb:cc:dd:ee:ff",
	}
	require.NoError(t, Validate(cfg))
}

func TestValidateRejectsMissingWifi(t *testing.T) {
	cfg := DefaultBundle()
	require.Error(t, Validate(cfg))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultBundle()
	cfg.Wifi = WifiConfig{
		IPAddr: "192.168.64.1",
		Port:   5288,
		SSID:   "AA-Wifi",
		WPAKey: "hunter22!",
		BSSID:  "aa:bb:cc:dd:ee:ff",
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Wifi, loaded.Wifi)
	require.Equal(t, cfg.TCPServerPort, loaded.TCPServerPort)
}
