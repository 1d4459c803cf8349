// Package aggregate computes per-file statistics while a file streams
// through ingestion.
//
// An Accumulator is created for one ingestion session and discarded with
// it. Updates are associative, so the result does not depend on how the
// file was split into buffers. The median is not tracked online; Finalize
// asks the store for it once all measurements are persisted.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

// MedianFunc returns the median indicator value of the count persisted
// measurements of fileID.
type MedianFunc func(ctx context.Context, fileID string, count int64) (float64, error)

// Accumulator maintains running statistics for a single file.
// It is not safe for concurrent use.
type Accumulator struct {
	count int64

	durationSum int64
	minDuration int64
	maxDuration int64

	indicatorSum float64
	minIndicator float64
	maxIndicator float64

	firstStart time.Time
	lastStart  time.Time

	// DDSketch for percentiles (nil if disabled)
	sketch *ddsketch.DDSketch
}

// New creates an empty Accumulator without percentiles.
func New() *Accumulator {
	return &Accumulator{
		minDuration:  math.MaxInt64,
		maxDuration:  math.MinInt64,
		minIndicator: math.MaxFloat64,
		maxIndicator: -math.MaxFloat64,
	}
}

// NewWithPercentiles creates an Accumulator that also tracks approximate
// P90/P95/P99 with the given relative accuracy.
func NewWithPercentiles(accuracy float64) (*Accumulator, error) {
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return nil, fmt.Errorf("create sketch: %w", err)
	}
	a := New()
	a.sketch = sketch
	return a, nil
}

// Update folds a buffer of measurements into the running statistics.
func (a *Accumulator) Update(batch []types.Measurement) {
	for i := range batch {
		a.add(&batch[i])
	}
}

func (a *Accumulator) add(m *types.Measurement) {
	a.count++

	a.durationSum += m.Duration
	if m.Duration < a.minDuration {
		a.minDuration = m.Duration
	}
	if m.Duration > a.maxDuration {
		a.maxDuration = m.Duration
	}

	a.indicatorSum += m.IndicatorValue
	if m.IndicatorValue < a.minIndicator {
		a.minIndicator = m.IndicatorValue
	}
	if m.IndicatorValue > a.maxIndicator {
		a.maxIndicator = m.IndicatorValue
	}

	if a.firstStart.IsZero() || m.StartTime.Before(a.firstStart) {
		a.firstStart = m.StartTime
	}
	if m.StartTime.After(a.lastStart) {
		a.lastStart = m.StartTime
	}

	if a.sketch != nil {
		// Indicator values are validated positive, which the sketch accepts.
		_ = a.sketch.Add(m.IndicatorValue)
	}
}

// Merge combines another accumulator into this one.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil || other.count == 0 {
		return
	}

	a.count += other.count
	a.durationSum += other.durationSum
	a.indicatorSum += other.indicatorSum

	if other.minDuration < a.minDuration {
		a.minDuration = other.minDuration
	}
	if other.maxDuration > a.maxDuration {
		a.maxDuration = other.maxDuration
	}
	if other.minIndicator < a.minIndicator {
		a.minIndicator = other.minIndicator
	}
	if other.maxIndicator > a.maxIndicator {
		a.maxIndicator = other.maxIndicator
	}

	if a.firstStart.IsZero() || other.firstStart.Before(a.firstStart) {
		a.firstStart = other.firstStart
	}
	if other.lastStart.After(a.lastStart) {
		a.lastStart = other.lastStart
	}

	if a.sketch != nil && other.sketch != nil {
		_ = a.sketch.MergeWith(other.sketch)
	}
}

// Count returns the number of measurements folded in so far.
func (a *Accumulator) Count() int64 {
	return a.count
}

// IsEmpty returns true if no measurements have been added.
func (a *Accumulator) IsEmpty() bool {
	return a.count == 0
}

// Finalize produces the summary for fileID. The median is obtained through
// median, which must see every measurement folded into this accumulator.
func (a *Accumulator) Finalize(ctx context.Context, fileID string, median MedianFunc) (types.FileSummary, error) {
	if a.count == 0 {
		return types.FileSummary{}, errors.ErrEmptyAccumulator
	}

	med, err := median(ctx, fileID, a.count)
	if err != nil {
		return types.FileSummary{}, fmt.Errorf("median: %w", err)
	}

	summary := types.FileSummary{
		FileID:           fileID,
		FirstStart:       a.firstStart,
		LastStart:        a.lastStart,
		MinDuration:      a.minDuration,
		MaxDuration:      a.maxDuration,
		AverageDuration:  a.durationSum / a.count,
		MinIndicator:     a.minIndicator,
		MaxIndicator:     a.maxIndicator,
		AverageIndicator: a.indicatorSum / float64(a.count),
		MedianIndicator:  med,
		Count:            a.count,
	}

	// Summation error can push the mean a hair outside [min, max].
	summary.AverageIndicator = math.Min(math.Max(summary.AverageIndicator, a.minIndicator), a.maxIndicator)

	if a.sketch != nil {
		summary.P90 = a.quantile(0.90)
		summary.P95 = a.quantile(0.95)
		summary.P99 = a.quantile(0.99)
	}

	return summary, nil
}

func (a *Accumulator) quantile(q float64) *float64 {
	v, err := a.sketch.GetValueAtQuantile(q)
	if err != nil {
		return nil
	}
	return &v
}
