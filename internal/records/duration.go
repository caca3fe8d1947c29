package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseBanDuration turns a duration token like "1h", "2w" or "30" into
// the unix expiry timestamp counted from now. Supported units are
// m (minutes), h (hours), d (days), w (weeks) and y (years); a bare
// number means days.
func ParseBanDuration(token string, now time.Time) (int64, error) {
	token = strings.TrimSpace(strings.ToLower(token))
	if token == "" {
		return 0, fmt.Errorf("empty duration")
	}

	split := len(token)
	for i, r := range token {
		if !unicode.IsDigit(r) {
			split = i
			break
		}
	}

	amount, err := strconv.ParseInt(token[:split], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", token)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", token)
	}

	var unit int64
	switch token[split:] {
	case "m":
		unit = 60
	case "h":
		unit = 3600
	case "", "d":
		unit = 86400
	case "w":
		unit = 604800
	case "y":
		unit = 31536000
	default:
		return 0, fmt.Errorf("unknown duration unit in %q", token)
	}

	return now.Unix() + amount*unit, nil
}

// DescribeBanDuration renders the token the way confirmations show it.
func DescribeBanDuration(token string) string {
	token = strings.TrimSpace(strings.ToLower(token))
	switch {
	case strings.HasSuffix(token, "m"):
		return token + " minute(s)"
	case strings.HasSuffix(token, "h"):
		return token + " hour(s)"
	case strings.HasSuffix(token, "d"):
		return token + " day(s)"
	case strings.HasSuffix(token, "w"):
		return token + " week(s)"
	case strings.HasSuffix(token, "y"):
		return token + " year(s)"
	default:
		return token + " day(s)"
	}
}
