package utils

import (
	"fmt"
	"time"
)

// Remaining renders the time left until exp, or "expired"
func Remaining(now, exp time.Time) string {
	d := exp.Sub(now)
	if d <= 0 {
		return "expired"
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	if days > 0 {
		return fmt.Sprintf("%dd%s", days, d.Truncate(time.Minute))
	}
	return d.Truncate(time.Second).String()
}
