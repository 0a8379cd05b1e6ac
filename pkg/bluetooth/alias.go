package bluetooth

import (
	"os"
	"strings"
)

const serialNumberPath = "/sys/firmware/devicetree/base/serial-number"

// deriveAlias returns override if non-empty; otherwise it reads the
// device-tree CPU serial number and builds "WirelessAADongle-<suffix>"
// from its last 6 characters. If the file is unreadable or its contents
// aren't exactly 17 characters, the suffix is omitted and the bare prefix
// is returned.
func deriveAlias(override string) string {
	if override != "" {
		return override
	}

	const prefix = "WirelessAADongle"
	raw, err := os.ReadFile(serialNumberPath)
	if err != nil || len(raw) != 17 {
		return prefix
	}

	serial := strings.TrimRight(string(raw), "\x00\n")
	return prefix + "-" + serial[len(serial)-6:]
}
