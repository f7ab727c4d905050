package units

import (
	"fmt"
	"math"
	"time"
)

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// FormatUnixSeconds renders fractional Unix seconds as RFC 3339 with
// milliseconds in the given timezone. An empty timezone means UTC.
func FormatUnixSeconds(s float64, tz string) (string, error) {
	sec, frac := math.Modf(s)
	t := time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
	if tz != "" && tz != "UTC" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return "", fmt.Errorf("failed to load timezone %s: %w", tz, err)
		}
		t = t.In(loc)
	}
	return t.Format("2006-01-02T15:04:05.000Z07:00"), nil
}
