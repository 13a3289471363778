package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/blank-marketing/blank/internal/daemon"
)

// openDaemon loads the configuration and wires the store without serving.
// Logs stay quiet unless --verbose is set, so they don't mix with output.
func openDaemon() (*daemon.Daemon, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	} else if cfg.Logging.File == "" {
		cfg.Logging.Level = "warn"
	}
	cfg.Logging.Format = "console"

	log, err := daemon.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return daemon.NewWithConfig(cfg, log)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatXP renders n with thousands separators: 12345 → "12,345".
func formatXP(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
