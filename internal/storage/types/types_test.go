package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMeasurementRow(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	m := Measurement{FileID: "a.csv", StartTime: start, Duration: 15, IndicatorValue: 2.5}

	row := m.Row()
	if !row.StartTime.Equal(start) {
		t.Errorf("expected %v, got %v", start, row.StartTime)
	}
	if row.Duration != 15 {
		t.Errorf("expected duration 15, got %d", row.Duration)
	}
	if row.IndicatorValue != 2.5 {
		t.Errorf("expected indicator 2.5, got %v", row.IndicatorValue)
	}
}

func TestMeasurementRowJSON(t *testing.T) {
	row := MeasurementRow{
		StartTime:      time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Duration:       15,
		IndicatorValue: 2.5,
	}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for _, key := range []string{`"startDateTime"`, `"duration"`, `"indicatorValue"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}

func TestMeasurementBatch(t *testing.T) {
	batch := NewMeasurementBatch(2)

	if batch.Len() != 0 {
		t.Errorf("expected empty batch")
	}

	batch.Add(Measurement{FileID: "f", Duration: 1, IndicatorValue: 1})
	if batch.Full() {
		t.Errorf("batch should not be full with 1 of 2 items")
	}
	batch.Add(Measurement{FileID: "f", Duration: 2, IndicatorValue: 2})

	if !batch.Full() {
		t.Errorf("expected batch to be full")
	}

	batch.Clear()
	if batch.Len() != 0 {
		t.Errorf("expected empty batch after clear")
	}
	if cap(batch.Items) != 2 {
		t.Errorf("expected capacity kept after clear, got %d", cap(batch.Items))
	}
}

func TestFileSummaryTimeSpan(t *testing.T) {
	s := FileSummary{
		FirstStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LastStart:  time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
	}
	if s.TimeSpan() != time.Hour {
		t.Errorf("expected 1h, got %v", s.TimeSpan())
	}
}

func TestFileSummaryPercentilesOmitted(t *testing.T) {
	data, err := json.Marshal(FileSummary{FileID: "x"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "p90IndicatorValue") {
		t.Errorf("expected percentiles to be omitted, got %s", data)
	}
}
