package identity

import (
	"regexp"
	"strconv"
	"time"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	// ResetCodeTTL is the fixed lifetime of a password reset code.
	ResetCodeTTL = time.Hour
)

var ttlPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseTTL parses a `<integer><unit>` lifetime string where the unit is one
// of s, m, h or d. Unrecognized input falls back to the given default rather
// than failing, so a misconfigured TTL never blocks token issuance.
func ParseTTL(raw string, fallback time.Duration) time.Duration {
	m := ttlPattern.FindStringSubmatch(raw)
	if m == nil {
		return fallback
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		return fallback
	}
	switch m[2] {
	case "s":
		return time.Duration(value) * time.Second
	case "m":
		return time.Duration(value) * time.Minute
	case "h":
		return time.Duration(value) * time.Hour
	case "d":
		return time.Duration(value) * 24 * time.Hour
	}
	return fallback
}
