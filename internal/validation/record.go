package validation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/danilshahmanov/Infotecs/config"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

// =============================================================================
// Record Validation
// =============================================================================

// FieldCount is the number of fields in a measurement row.
const FieldCount = 3

const (
	fieldStartTime = iota
	fieldDuration
	fieldIndicator
)

// MinMeasurementTime is the earliest accepted start time.
var MinMeasurementTime = mustParseTime(config.MinMeasurementTimeRFC3339)

// RecordValidator decides whether a raw row is a valid measurement.
//
// Rules, in order: exactly three fields, positive integer duration, positive
// finite indicator ("." or "," as decimal separator), start time in
// YYYY-MM-DD_hh-mm-ss, start time between MinTime and Now().
type RecordValidator struct {
	MinTime time.Time
	Now     func() time.Time
}

// NewRecordValidator returns a validator using the wall clock.
func NewRecordValidator() *RecordValidator {
	return &RecordValidator{
		MinTime: MinMeasurementTime,
		Now:     time.Now,
	}
}

// ShouldSkip reports whether the row must be dropped.
func (v *RecordValidator) ShouldSkip(fields []string) bool {
	_, ok := v.Parse("", fields)
	return !ok
}

// Parse converts a raw row into a Measurement for fileID.
// ok is false when any rule fails; Parse never panics on malformed input.
func (v *RecordValidator) Parse(fileID string, fields []string) (m types.Measurement, ok bool) {
	if len(fields) != FieldCount {
		return m, false
	}

	duration, ok := ParseDuration(fields[fieldDuration])
	if !ok {
		return m, false
	}

	indicator, ok := ParseIndicator(fields[fieldIndicator])
	if !ok {
		return m, false
	}

	start, ok := ParseStartTime(fields[fieldStartTime])
	if !ok {
		return m, false
	}

	if start.Before(v.minTime()) || start.After(v.now()) {
		return m, false
	}

	return types.Measurement{
		FileID:         fileID,
		StartTime:      start,
		Duration:       duration,
		IndicatorValue: indicator,
	}, true
}

func (v *RecordValidator) minTime() time.Time {
	if v.MinTime.IsZero() {
		return MinMeasurementTime
	}
	return v.MinTime
}

func (v *RecordValidator) now() time.Time {
	if v.Now == nil {
		return time.Now().UTC()
	}
	return v.Now().UTC()
}

// ParseDuration parses a positive 32-bit integer number of seconds.
func ParseDuration(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseIndicator parses a positive finite real. A comma decimal separator is
// accepted in place of the dot.
func ParseIndicator(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			return 0, false
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// ParseStartTime parses the start time column as UTC.
func ParseStartTime(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(config.MeasurementTimeLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func mustParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
