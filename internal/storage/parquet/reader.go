package parquet

import (
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

// MeasurementReader reads measurements from a Parquet file.
type MeasurementReader struct {
	reader *parquet.GenericReader[MeasurementRow]
}

// NewMeasurementReader opens the Parquet data in r.
func NewMeasurementReader(r io.ReaderAt, size int64) (*MeasurementReader, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	return &MeasurementReader{
		reader: parquet.NewGenericReader[MeasurementRow](f),
	}, nil
}

// Read reads up to n measurements. It returns an empty slice at the end.
func (r *MeasurementReader) Read(n int) ([]types.MeasurementRow, error) {
	rows := make([]MeasurementRow, n)
	count, err := r.reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	out := make([]types.MeasurementRow, count)
	for i := 0; i < count; i++ {
		out[i] = FromRow(&rows[i])
	}

	return out, nil
}

// ReadAll reads all measurements.
func (r *MeasurementReader) ReadAll() ([]types.MeasurementRow, error) {
	return r.Read(int(r.reader.NumRows()))
}

// NumRows returns the total number of rows in the file.
func (r *MeasurementReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *MeasurementReader) Close() error {
	return r.reader.Close()
}
