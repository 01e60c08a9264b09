// Package view renders API records as terminal text.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/meetthepeople/mtp/internal/api"
)

const (
	previewMaxRunes = 30
	notSet          = "Not set"
)

// FormatRelative renders ts relative to now: "Just now", "5m ago", "3h ago",
// or the calendar date once a day has passed.
func FormatRelative(ts time.Time, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return ts.Format("1/2/2006")
	}
}

// LastMessagePreview is the one-line summary of a conversation's last message.
func LastMessagePreview(c api.Communication) string {
	if c.LastMessageContent == "" {
		return "No messages yet"
	}
	prefix := ""
	if c.IsLastMessageFromMe {
		prefix = "You: "
	}
	switch c.LastMessageType {
	case api.MessageImage:
		return prefix + "📷 Image"
	case api.MessageVoice:
		return prefix + "🎤 Voice message"
	default:
		return prefix + truncate(c.LastMessageContent, previewMaxRunes)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// FormatDate renders a date as "January 2, 2006", or "Not set" for zero.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return notSet
	}
	return t.Format("January 2, 2006")
}

func OrNotSet(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSet
	}
	return s
}

// Initial is the avatar letter for name.
func Initial(name string) string {
	for _, r := range strings.TrimSpace(name) {
		return strings.ToUpper(string(r))
	}
	return "U"
}

func OnlineDot(status string) string {
	if strings.EqualFold(strings.TrimSpace(status), "online") {
		return "●"
	}
	return "○"
}

// FileSize renders a byte count in megabytes with two decimals.
func FileSize(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
}

// FirstHobby returns the first comma-separated entry of hobbies.
func FirstHobby(hobbies string) string {
	first, _, _ := strings.Cut(hobbies, ",")
	return strings.TrimSpace(first)
}
