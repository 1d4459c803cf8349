// Package export reads stored measurements back in fixed-size pages
// ordered by start time and streams them as JSON or Parquet.
//
// Only one page is held in memory at a time.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/danilshahmanov/Infotecs/config"
	"github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/logging"
	"github.com/danilshahmanov/Infotecs/internal/metrics"
	"github.com/danilshahmanov/Infotecs/internal/storage/parquet"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

// Formats served by the exporter.
const (
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

// Store is the read access the exporter needs.
type Store interface {
	MeasurementPage(ctx context.Context, fileID string, offset, limit int) ([]types.MeasurementRow, error)
	SummaryExists(ctx context.Context, fileID string) (bool, error)
}

// Flusher is implemented by writers that can push buffered bytes to the
// client, such as http.ResponseWriter.
type Flusher interface {
	Flush()
}

// Exporter serves measurements page by page.
type Exporter struct {
	store    Store
	pageSize int
	parquet  parquet.Options
	metrics  *metrics.Collector
	log      *slog.Logger
}

// New creates an exporter. A non-positive pageSize selects the default.
func New(store Store, pageSize int, parquetOpts parquet.Options, collector *metrics.Collector) *Exporter {
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}
	return &Exporter{
		store:    store,
		pageSize: pageSize,
		parquet:  parquetOpts,
		metrics:  collector,
		log:      logging.Component("export"),
	}
}

// PageSize returns the number of rows per page.
func (e *Exporter) PageSize() int {
	return e.pageSize
}

// FetchPage returns page pageIndex (zero-based) of fileID's measurements
// ordered by start time. Past the last row it returns an empty page.
func (e *Exporter) FetchPage(ctx context.Context, fileID string, pageIndex, pageSize int) ([]types.MeasurementRow, error) {
	if pageIndex < 0 {
		return nil, errors.NewValidation("page index", "must be >= 0")
	}
	if pageSize <= 0 {
		return nil, errors.NewValidation("page size", "must be > 0")
	}
	return e.store.MeasurementPage(ctx, fileID, pageIndex*pageSize, pageSize)
}

// Each calls fn for every non-empty page until the first empty one.
func (e *Exporter) Each(ctx context.Context, fileID string, fn func(page []types.MeasurementRow) error) (int, error) {
	total := 0
	for pageIndex := 0; ; pageIndex++ {
		page, err := e.FetchPage(ctx, fileID, pageIndex, e.pageSize)
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			return total, nil
		}
		if err := fn(page); err != nil {
			return total, err
		}
		total += len(page)
	}
}

// CheckExists returns ErrFileNotFound when fileID has no summary.
func (e *Exporter) CheckExists(ctx context.Context, fileID string) error {
	exists, err := e.store.SummaryExists(ctx, fileID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("file '%s': %w", fileID, errors.ErrFileNotFound)
	}
	return nil
}

// WriteJSON streams all measurements of fileID as one JSON array. The
// writer is flushed after every page when it implements Flusher.
func (e *Exporter) WriteJSON(ctx context.Context, fileID string, w io.Writer) (int, error) {
	if _, err := io.WriteString(w, "["); err != nil {
		return 0, err
	}

	first := true
	n, err := e.Each(ctx, fileID, func(page []types.MeasurementRow) error {
		for i := range page {
			if !first {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			first = false

			data, err := json.Marshal(&page[i])
			if err != nil {
				return fmt.Errorf("encode measurement: %w", err)
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
		}
		flush(w)
		return nil
	})
	if err != nil {
		return n, err
	}

	if _, err := io.WriteString(w, "]"); err != nil {
		return n, err
	}
	flush(w)

	e.metrics.ObserveExport(FormatJSON, n)
	e.log.Debug("json export completed", "file_id", fileID, "rows", n)
	return n, nil
}

// WriteParquet streams all measurements of fileID as a Parquet file.
func (e *Exporter) WriteParquet(ctx context.Context, fileID string, w io.Writer) (int, error) {
	pw := parquet.NewMeasurementWriter(w, e.parquet)

	n, err := e.Each(ctx, fileID, func(page []types.MeasurementRow) error {
		if err := pw.Write(page); err != nil {
			return err
		}
		if err := pw.Flush(); err != nil {
			return err
		}
		flush(w)
		return nil
	})
	if err != nil {
		pw.Close()
		return n, err
	}

	if err := pw.Close(); err != nil {
		return n, err
	}
	flush(w)

	e.metrics.ObserveExport(FormatParquet, n)
	e.log.Debug("parquet export completed", "file_id", fileID, "rows", n)
	return n, nil
}

func flush(w io.Writer) {
	if f, ok := w.(Flusher); ok {
		f.Flush()
	}
}
