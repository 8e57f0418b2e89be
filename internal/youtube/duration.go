package youtube

import (
	"fmt"
	"regexp"
	"strconv"
)

// isoDuration matches the subset of ISO 8601 durations the Data API returns,
// e.g. "PT4M5S", "PT1H2M", "P1DT2H".
var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration converts an ISO 8601 duration to whole seconds.
func ParseDuration(s string) (int64, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	units := [...]int64{86400, 3600, 60, 1}
	var total int64
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		total += n * unit
	}
	return total, nil
}
