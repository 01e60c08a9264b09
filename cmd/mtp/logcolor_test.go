package main

import (
	"bytes"
	"testing"
)

func TestEventFromLogLine(t *testing.T) {
	t.Parallel()

	line := `2026/02/27 01:23:45 event=heartbeat_report_failed trigger=timer err="timeout"`
	got := eventFromLogLine(line)
	if got != "heartbeat_report_failed" {
		t.Fatalf("eventFromLogLine() = %q, want %q", got, "heartbeat_report_failed")
	}
}

func TestColorForLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "failed suffix is red",
			line: "event=heartbeat_report_failed trigger=timer",
			want: ansiRed,
		},
		{
			name: "completed suffix is green",
			line: "event=login_completed user_id=7",
			want: ansiGreen,
		},
		{
			name: "loaded suffix is green",
			line: "event=conversations_loaded count=2 failed=0",
			want: ansiGreen,
		},
		{
			name: "logout is yellow despite completed suffix",
			line: "event=logout_completed session=abc",
			want: ansiYellow,
		},
		{
			name: "debounce skip is yellow",
			line: "event=heartbeat_immediate_skipped cycle=1 reason=debounce",
			want: ansiYellow,
		},
		{
			name: "credentials cleared is yellow",
			line: "event=session_credentials_cleared reason=unauthorized",
			want: ansiYellow,
		},
		{
			name: "mount is blue",
			line: "event=home_mounted heartbeat_owner=true",
			want: ansiBlue,
		},
		{
			name: "otp request is blue",
			line: "event=otp_requested mobile=******3210",
			want: ansiBlue,
		},
		{
			name: "unmount is magenta",
			line: "event=home_unmounted",
			want: ansiMagenta,
		},
		{
			name: "tick is cyan",
			line: "event=heartbeat_tick cycle=1",
			want: ansiCyan,
		},
		{
			name: "shutdown timeout is red",
			line: "event=shutdown_step_timeout step=session_close",
			want: ansiRed,
		},
		{
			name: "unknown event no color",
			line: "event=app_opened session=abc",
			want: "",
		},
		{
			name: "no event no color",
			line: "plain text log",
			want: "",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := colorForLine(tc.line); got != tc.want {
				t.Fatalf("colorForLine(%q) = %q, want %q", tc.line, got, tc.want)
			}
		})
	}
}

func TestColorLogWriter(t *testing.T) {
	t.Parallel()

	line := "event=heartbeat_report_failed trigger=timer\n"
	var colored bytes.Buffer
	w := &colorLogWriter{dst: &colored, enabled: true}
	n, err := w.Write([]byte(line))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(line) {
		t.Fatalf("Write() n = %d, want %d", n, len(line))
	}
	if colored.String() != ansiRed+line+ansiReset {
		t.Fatalf("Write() output = %q, want colorized line", colored.String())
	}

	var plain bytes.Buffer
	w = &colorLogWriter{dst: &plain}
	if _, err := w.Write([]byte(line)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if plain.String() != line {
		t.Fatalf("Write() output = %q, want untouched line", plain.String())
	}
}

func TestBoolFromEnvValue(t *testing.T) {
	t.Setenv("MTP_LOG_COLOR", "true")
	if got, ok := boolFromEnv("MTP_LOG_COLOR"); !ok || !got {
		t.Fatalf("boolFromEnv(true) = (%v, %v), want (true, true)", got, ok)
	}
	t.Setenv("MTP_LOG_COLOR", "off")
	if got, ok := boolFromEnv("MTP_LOG_COLOR"); !ok || got {
		t.Fatalf("boolFromEnv(off) = (%v, %v), want (false, true)", got, ok)
	}
	t.Setenv("MTP_LOG_COLOR", "invalid")
	if got, ok := boolFromEnv("MTP_LOG_COLOR"); ok || got {
		t.Fatalf("boolFromEnv(invalid) = (%v, %v), want (false, false)", got, ok)
	}
}

func TestShouldEnableLogColorOverride(t *testing.T) {
	t.Setenv("MTP_LOG_COLOR", "1")
	t.Setenv("NO_COLOR", "1")
	if !shouldEnableLogColor(^uintptr(0)) {
		t.Fatal("shouldEnableLogColor() = false, want forced on by MTP_LOG_COLOR")
	}
	t.Setenv("MTP_LOG_COLOR", "")
	if shouldEnableLogColor(^uintptr(0)) {
		t.Fatal("shouldEnableLogColor() = true, want NO_COLOR to disable")
	}
}
