package main

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func configureLogOutput(dst *os.File) {
	if dst == nil {
		return
	}
	log.SetOutput(&colorLogWriter{
		dst:     dst,
		enabled: shouldEnableLogColor(dst.Fd()),
	})
}

type colorLogWriter struct {
	dst     io.Writer
	enabled bool
}

func (w *colorLogWriter) Write(p []byte) (int, error) {
	if !w.enabled {
		return w.dst.Write(p)
	}
	if _, err := io.WriteString(w.dst, colorizeLogLine(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}

func shouldEnableLogColor(fd uintptr) bool {
	if enabled, ok := boolFromEnv("MTP_LOG_COLOR"); ok {
		return enabled
	}
	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return false
	}
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func boolFromEnv(key string) (bool, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

func colorizeLogLine(line string) string {
	color := colorForLine(line)
	if color == "" {
		return line
	}
	return color + line + ansiReset
}

// eventColors covers events whose outcome the suffix alone does not tell.
var eventColors = map[string]string{
	"heartbeat_tick":              ansiCyan,
	"heartbeat_started":           ansiBlue,
	"home_mounted":                ansiBlue,
	"metrics_started":             ansiBlue,
	"otp_requested":               ansiBlue,
	"otp_resent":                  ansiBlue,
	"heartbeat_stopped":           ansiMagenta,
	"home_unmounted":              ansiMagenta,
	"heartbeat_disabled":          ansiYellow,
	"heartbeat_start_skipped":     ansiYellow,
	"heartbeat_immediate_skipped": ansiYellow,
	"session_credentials_cleared": ansiYellow,
	"logout_completed":            ansiYellow,
	"shutdown_step_timeout":       ansiRed,
}

var suffixColors = map[string]string{
	"failed":    ansiRed,
	"completed": ansiGreen,
	"loaded":    ansiGreen,
}

func colorForLine(line string) string {
	event := eventFromLogLine(line)
	if event == "" {
		return ""
	}
	if color, ok := eventColors[event]; ok {
		return color
	}
	if i := strings.LastIndexByte(event, '_'); i >= 0 {
		return suffixColors[event[i+1:]]
	}
	return ""
}

func eventFromLogLine(line string) string {
	i := strings.Index(line, "event=")
	if i < 0 {
		return ""
	}
	raw := line[i+len("event="):]
	if end := strings.IndexAny(raw, " \t\r\n"); end >= 0 {
		raw = raw[:end]
	}
	return strings.TrimSpace(raw)
}
