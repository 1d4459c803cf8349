package parquet

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// PageBufferSize is the target page size in bytes
	PageBufferSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// String returns the config name of the compression.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionGzip:
		return "gzip"
	default:
		return "none"
	}
}

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:    CompressionZstd,
		PageBufferSize: 1024 * 1024, // 1MB
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(s) {
	case "snappy":
		return CompressionSnappy, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "gzip":
		return CompressionGzip, nil
	case "none", "":
		return CompressionNone, nil
	default:
		return CompressionZstd, fmt.Errorf("unknown compression %q", s)
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// MeasurementRow is a measurement in Parquet format.
type MeasurementRow struct {
	StartTimeMs    int64   `parquet:"start_time_ms"`
	Duration       int64   `parquet:"duration"`
	IndicatorValue float64 `parquet:"indicator_value"`
}

// ToRow converts an exported measurement to its Parquet row.
func ToRow(m *types.MeasurementRow) MeasurementRow {
	return MeasurementRow{
		StartTimeMs:    m.StartTime.UnixMilli(),
		Duration:       m.Duration,
		IndicatorValue: m.IndicatorValue,
	}
}

// FromRow converts a Parquet row back to an exported measurement.
func FromRow(r *MeasurementRow) types.MeasurementRow {
	return types.MeasurementRow{
		StartTime:      time.UnixMilli(r.StartTimeMs).UTC(),
		Duration:       r.Duration,
		IndicatorValue: r.IndicatorValue,
	}
}

// MeasurementWriter streams measurements into a Parquet file.
type MeasurementWriter struct {
	mu       sync.Mutex
	writer   *parquet.GenericWriter[MeasurementRow]
	rows     []MeasurementRow
	rowCount int64
	closed   bool
}

// NewMeasurementWriter creates a writer that emits to w. Nothing is valid
// Parquet until Close returns.
func NewMeasurementWriter(w io.Writer, opts Options) *MeasurementWriter {
	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}
	if opts.PageBufferSize > 0 {
		writerOpts = append(writerOpts, parquet.PageBufferSize(opts.PageBufferSize))
	}

	return &MeasurementWriter{
		writer: parquet.NewGenericWriter[MeasurementRow](w, writerOpts...),
	}
}

// Write appends one page of measurements.
func (w *MeasurementWriter) Write(page []types.MeasurementRow) error {
	if len(page) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	w.rows = w.rows[:0]
	for i := range page {
		w.rows = append(w.rows, ToRow(&page[i]))
	}

	n, err := w.writer.Write(w.rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Flush ends the current row group so its bytes reach the destination.
func (w *MeasurementWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	return w.writer.Flush()
}

// Close writes the footer. It does not close the destination.
func (w *MeasurementWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// RowCount returns the number of rows written.
func (w *MeasurementWriter) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")
