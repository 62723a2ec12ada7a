package wrfout

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// parseTimeStrings parses the WRF Times character variable.
func parseTimeStrings(v any) ([]time.Time, error) {
	var raw []string
	switch v := v.(type) {
	case string:
		raw = []string{v}
	case []string:
		raw = v
	case []byte:
		raw = []string{string(v)}
	case [][]byte:
		for _, b := range v {
			raw = append(raw, string(b))
		}
	default:
		return nil, fmt.Errorf("%s: unsupported value type %T", timesVarName, v)
	}

	ts := make([]time.Time, len(raw))
	for i, s := range raw {
		t, err := time.Parse(wrfTimeLayout, strings.TrimRight(s, "\x00 "))
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", timesVarName, i, err)
		}
		ts[i] = t
	}
	return ts, nil
}

var epochLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02_15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

var unitDurations = map[string]time.Duration{
	"seconds": time.Second,
	"minutes": time.Minute,
	"hours":   time.Hour,
	"days":    24 * time.Hour,
}

// parseOffsets converts CF-style offsets ("minutes since 2023-08-21 00:00:00")
// into timestamps.
func parseOffsets(offsets []float64, units string) ([]time.Time, error) {
	unit, since, ok := strings.Cut(units, " since ")
	if !ok {
		return nil, fmt.Errorf("unsupported time units %q", units)
	}
	d, ok := unitDurations[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return nil, fmt.Errorf("unsupported time unit %q", unit)
	}
	since = strings.TrimSpace(since)
	var epoch time.Time
	var err error
	for _, layout := range epochLayouts {
		if epoch, err = time.Parse(layout, since); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("unsupported time epoch %q", since)
	}

	ts := make([]time.Time, len(offsets))
	for i, o := range offsets {
		// Native offsets are float32 and may carry rounding noise; keep
		// second precision and leave the cleanup to the time index.
		secs := math.Round(o * d.Seconds())
		ts[i] = epoch.Add(time.Duration(secs) * time.Second)
	}
	return ts, nil
}
