// Package config handles configuration loading and management for the
// bridge's full option set.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default config file locations, checked in order when no explicit path
// is given.
var configPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./aawgbridge.yaml",
	"./aawgbridge.yml",
	"~/.config/aawgbridge/config.yaml",
	"/etc/aawgbridge/config.yaml",
}

// WifiConfig is the credential bundle handed to the Bluetooth handshake
// once per session.
type WifiConfig struct {
	IPAddr string `yaml:"ip_addr" validate:"required,ip4_addr"`
	Port   uint16 `yaml:"port" validate:"required"`
	SSID   string `yaml:"ssid" validate:"required"`
	WPAKey string `yaml:"wpa_key" validate:"required,min=8"`
	BSSID  string `yaml:"bssid" validate:"required,mac"`
}

// MITMConfig groups the man-in-the-middle rewrite toggles applied to
// projection traffic by an external filter. Parsed and validated here, but
// toSupervisorConfig does not yet translate it into a supervisor.Config.Filter,
// so every toggle is currently inert; a real filter wiring is not yet scoped.
type MITMConfig struct {
	Enabled              bool `yaml:"mitm"`
	DPI                  bool `yaml:"dpi"`
	DeveloperMode        bool `yaml:"developer_mode"`
	DisableMediaSink     bool `yaml:"disable_media_sink"`
	DisableTTSSink       bool `yaml:"disable_tts_sink"`
	RemoveTapRestriction bool `yaml:"remove_tap_restriction"`
	VideoInMotion        bool `yaml:"video_in_motion"`
	HexdumpLevel         int  `yaml:"hex_requested" validate:"gte=0,lte=3"`
}

// Bundle is the complete recognized configuration surface,
// covering the Bluetooth bring-up, Wi-Fi credentials, endpoint mode, and
// proxy behavior.
type Bundle struct {
	Wifi WifiConfig `yaml:"wifi" validate:"required"`

	Advertise  bool   `yaml:"advertise"`
	DongleMode bool   `yaml:"dongle_mode"`
	BTAlias    string `yaml:"btalias"`
	Connect    string `yaml:"connect"`
	Keepalive  bool   `yaml:"keepalive"`

	BTTimeout     time.Duration `yaml:"bt_timeout" validate:"required"`
	StatsInterval time.Duration `yaml:"stats_interval"`
	ReadTimeout   time.Duration `yaml:"read_timeout" validate:"required"`

	Wired bool `yaml:"wired"`
	DHU   bool `yaml:"dhu"`

	TCPServerPort    int    `yaml:"tcp_server_port" validate:"required"`
	TCPDHUPort       int    `yaml:"tcp_dhu_port"`
	USBAccessoryPath string `yaml:"usb_accessory_path"`

	MITM MITMConfig `yaml:"mitm_rules"`

	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the ambient logger (pkg/logger).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// MetricsConfig configures the Prometheus exporter (pkg/metrics).
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Endpoint string `yaml:"endpoint"`
}

// Load loads configuration from path, or the default search list when
// path is empty, falling back to DefaultBundle if nothing is found.
func Load(path string) (*Bundle, error) {
	if path != "" {
		return loadFile(path)
	}

	for _, p := range configPaths {
		if p[0] == '~' {
			home, err := os.UserHomeDir()
			if err == nil {
				p = filepath.Join(home, p[2:])
			}
		}
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}

	return DefaultBundle(), nil
}

func loadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultBundle()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Bundle) error {
	return validator.New().Struct(cfg)
}

// Save writes cfg as YAML to path, creating parent directories as needed.
func Save(path string, cfg *Bundle) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0o644)
}

// DefaultBundle returns the bridge's default configuration: wireless
// mode, no MITM, no metrics, opportunistic defaults for timeouts.
func DefaultBundle() *Bundle {
	return &Bundle{
		Advertise:         true,
		BTTimeout:         5 * time.Second,
		ReadTimeout:       10 * time.Second,
		TCPServerPort:     5288,
		TCPDHUPort:        5289,
		USBAccessoryPath:  "/dev/usb_accessory",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Address:  "127.0.0.1:9090",
			Endpoint: "/metrics",
		},
	}
}
