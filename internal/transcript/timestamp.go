package transcript

import (
	"fmt"
	"math"
)

// zeroTimestamp is returned for any input that cannot be rendered.
const zeroTimestamp = "00:00:00.000"

// FormatTimestamp renders seconds as HH:MM:SS.mmm. Milliseconds round
// half-up, carrying into the seconds field when they land on 1000. Hours
// pad to two digits but grow unbounded past 99. NaN, infinite, negative,
// or absurdly large inputs render as 00:00:00.000; the formatter never
// panics.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 || seconds >= math.MaxInt64 {
		return zeroTimestamp
	}

	whole := int64(seconds)
	ms := int64(math.Floor((seconds-float64(whole))*1000 + 0.5))
	if ms >= 1000 {
		whole++
		ms -= 1000
	}

	hrs := whole / 3600
	mins := (whole % 3600) / 60
	secs := whole % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hrs, mins, secs, ms)
}
