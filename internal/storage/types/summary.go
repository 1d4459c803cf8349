package types

import "time"

// FileSummary holds the statistics of one ingested file.
//
// When Count > 0: MinDuration <= AverageDuration <= MaxDuration,
// MinIndicator <= AverageIndicator <= MaxIndicator and FirstStart <= LastStart.
type FileSummary struct {
	FileID string `json:"fileId"`

	FirstStart time.Time `json:"firstStartTime"`
	LastStart  time.Time `json:"lastStartTime"`

	MinDuration     int64 `json:"minDuration"`
	MaxDuration     int64 `json:"maxDuration"`
	AverageDuration int64 `json:"averageDuration"`

	MinIndicator     float64 `json:"minIndicatorValue"`
	MaxIndicator     float64 `json:"maxIndicatorValue"`
	AverageIndicator float64 `json:"averageIndicatorValue"`
	MedianIndicator  float64 `json:"medianIndicatorValue"`

	Count int64 `json:"measurementCount"`

	// Approximate percentiles, present only when the sketch is enabled.
	P90 *float64 `json:"p90IndicatorValue,omitempty"`
	P95 *float64 `json:"p95IndicatorValue,omitempty"`
	P99 *float64 `json:"p99IndicatorValue,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// TimeSpan returns the time between the first and last measurement start.
func (s *FileSummary) TimeSpan() time.Duration {
	return s.LastStart.Sub(s.FirstStart)
}

// StoredFile describes the raw bytes kept for an uploaded file.
type StoredFile struct {
	FileID     string    `json:"fileId"`
	Author     string    `json:"authorName"`
	UploadedAt time.Time `json:"uploadedAt"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256"`
}
