package types

import "time"

// Measurement is a single validated row of an uploaded file.
type Measurement struct {
	FileID string

	// StartTime is the measurement start, always UTC.
	StartTime time.Time

	// Duration in seconds, strictly positive.
	Duration int64

	// IndicatorValue is strictly positive and finite.
	IndicatorValue float64
}

// Row projects the measurement onto the exported shape.
func (m *Measurement) Row() MeasurementRow {
	return MeasurementRow{
		StartTime:      m.StartTime,
		Duration:       m.Duration,
		IndicatorValue: m.IndicatorValue,
	}
}

// MeasurementRow is what the export endpoints return for each measurement.
type MeasurementRow struct {
	StartTime      time.Time `json:"startDateTime"`
	Duration       int64     `json:"duration"`
	IndicatorValue float64   `json:"indicatorValue"`
}

// MeasurementBatch is a fixed-capacity buffer of measurements.
type MeasurementBatch struct {
	Items []Measurement
	cap   int
}

// NewMeasurementBatch creates a new batch with the given capacity.
func NewMeasurementBatch(capacity int) *MeasurementBatch {
	return &MeasurementBatch{
		Items: make([]Measurement, 0, capacity),
		cap:   capacity,
	}
}

// Add appends a measurement to the batch.
func (b *MeasurementBatch) Add(m Measurement) {
	b.Items = append(b.Items, m)
}

// Len returns the number of measurements in the batch.
func (b *MeasurementBatch) Len() int {
	return len(b.Items)
}

// Full reports whether the batch reached its capacity.
func (b *MeasurementBatch) Full() bool {
	return len(b.Items) >= b.cap
}

// Clear resets the batch for reuse.
func (b *MeasurementBatch) Clear() {
	b.Items = b.Items[:0]
}
