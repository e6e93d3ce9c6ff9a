package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// Sensor values arrive in a thousands-dot, decimal-comma convention,
// e.g. "4.758.439 kbit/s". The first numeric token followed by a bit-rate
// unit is taken; everything else in the string is ignored.
var trafficPattern = regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]+)*)\s*([kmgt])bit(?:/s)?`)

// ParseTrafficValue extracts a traffic reading from a sensor's free-text
// value and normalizes it to Mbit/s. It returns false when no recognizable
// value is present; malformed input is never an error.
func ParseTrafficValue(s string) (float64, bool) {
	m := trafficPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	num := strings.ReplaceAll(m[1], ".", "")
	num = strings.ReplaceAll(num, ",", ".")

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}

	switch strings.ToLower(m[2]) {
	case "k":
		value /= 1000
	case "m":
		// already Mbit/s
	case "g":
		value *= 1000
	case "t":
		value *= 1000000
	}

	return value, true
}
