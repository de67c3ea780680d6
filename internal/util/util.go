// Package util holds small formatting helpers shared by the server and the agent.
package util

import (
	"fmt"
	"time"
)

// FormatDuration formats duration into human readable format (e.g., "1h30m", "5m10s", "45s").
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	}

	if duration < time.Hour {
		m := int(duration.Minutes())
		s := int(duration.Seconds()) % 60

		return fmt.Sprintf("%dm%ds", m, s)
	}

	h := int(duration.Hours())
	m := int(duration.Minutes()) % 60

	return fmt.Sprintf("%dh%dm", h, m)
}

// FormatRemaining renders the time left until endsAt, or "until stopped" for an open-ended session.
func FormatRemaining(endsAt *time.Time, now time.Time) string {
	if endsAt == nil {
		return "until stopped"
	}

	return FormatDuration(endsAt.Sub(now))
}
