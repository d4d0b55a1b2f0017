package prison

import (
	"fmt"
	"strings"
	"time"
)

// FormatRemaining renders a lockout TTL as the human-readable fragment used
// in lockout responses, e.g. "1 hour 30 minutes". Durations under a minute
// come back as "1 minute" so the message never reads as zero.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 && m == 0 {
		m = 1
	}

	var parts []string
	if h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m > 0 {
		parts = append(parts, plural(m, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
