// Package reader streams measurement rows out of an uploaded file.
//
// Rows are validated one at a time and collected into a fixed-capacity
// buffer. Whenever the buffer fills, and once more at the end of the input,
// the buffer is handed to a FlushFunc. Memory use is bounded by the buffer
// capacity regardless of the file size.
package reader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/danilshahmanov/Infotecs/config"
	"github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
	"github.com/danilshahmanov/Infotecs/internal/validation"
)

// Delimiter separates the fields of a row.
const Delimiter = ";"

// MaxLineLength bounds a single input line, terminator included.
const MaxLineLength = 1 << 20

const initialLineBuffer = 64 * 1024

// FlushFunc receives a full (or final partial) buffer. The slice is only
// valid for the duration of the call; Read reuses it afterwards.
type FlushFunc func(ctx context.Context, batch []types.Measurement) error

// Options controls a Reader.
type Options struct {
	// MinAccepted is the fewest valid rows the input must contain.
	MinAccepted int

	// MaxAccepted stops reading once this many rows were accepted.
	MaxAccepted int

	// BufferCapacity is the number of rows per flush.
	BufferCapacity int

	// Validator decides which rows are kept. Nil means the wall-clock default.
	Validator *validation.RecordValidator
}

// DefaultOptions returns options with the service defaults.
func DefaultOptions() Options {
	return Options{
		MinAccepted:    config.DefaultMinAccepted,
		MaxAccepted:    config.DefaultMaxAccepted,
		BufferCapacity: config.DefaultBufferCapacity,
	}
}

// Validate checks the option bounds.
func (o *Options) Validate() error {
	errs := errors.NewValidationErrors()
	if o.MinAccepted < 0 {
		errs.AddField("min_accepted", "must be >= 0")
	}
	if o.MaxAccepted < 1 {
		errs.AddField("max_accepted", "must be >= 1")
	}
	if o.MinAccepted > o.MaxAccepted {
		errs.AddField("min_accepted", "must not exceed max_accepted")
	}
	if o.BufferCapacity < 1 {
		errs.AddField("buffer_capacity", "must be >= 1")
	}
	return errs.Err()
}

// Stats describes one pass over an input.
type Stats struct {
	RowsRead       int64
	RowsAccepted   int64
	RowsSkipped    int64
	BuffersFlushed int64

	// Truncated is set when a non-blank row remained after MaxAccepted rows
	// were accepted.
	Truncated bool
}

// Reader turns a semicolon-delimited stream into validated measurement batches.
type Reader struct {
	opts      Options
	fileID    string
	validator *validation.RecordValidator
}

// New creates a reader for rows belonging to fileID.
func New(fileID string, opts Options) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	v := opts.Validator
	if v == nil {
		v = validation.NewRecordValidator()
	}
	return &Reader{
		opts:      opts,
		fileID:    fileID,
		validator: v,
	}, nil
}

// Read consumes src and calls onBufferFull for each full buffer and for the
// final partial one. Each call completes before the next row is read.
//
// Rows failing validation are skipped. A row with fewer than three fields
// fails the read with ErrMalformedRow. After the last flush, fewer than
// MinAccepted accepted rows fail the read with ErrTooFewRows.
func (r *Reader) Read(ctx context.Context, src io.Reader, onBufferFull FlushFunc) (Stats, error) {
	var stats Stats
	batch := types.NewMeasurementBatch(r.opts.BufferCapacity)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := onBufferFull(ctx, batch.Items); err != nil {
			return err
		}
		stats.BuffersFlushed++
		batch.Clear()
		return nil
	}

	err := r.scan(ctx, src, &stats, func(m types.Measurement) error {
		batch.Add(m)
		if batch.Full() {
			return flush()
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err := flush(); err != nil {
		return stats, err
	}

	return stats, r.checkMinimum(stats)
}

// scan splits src into lines and calls accept for every valid row until the
// input ends or MaxAccepted rows were accepted. Fields are taken verbatim
// between delimiters; quotes carry no meaning. A leading byte order mark is
// dropped, and a UTF-16 one switches decoding to UTF-16.
func (r *Reader) scan(ctx context.Context, src io.Reader, stats *Stats, accept func(types.Measurement) error) error {
	sc := bufio.NewScanner(transform.NewReader(src, unicode.BOMOverride(transform.Nop)))
	sc.Buffer(make([]byte, 0, initialLineBuffer), MaxLineLength)

	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}

		text := sc.Text()
		blank := strings.TrimSpace(text) == ""

		if int(stats.RowsAccepted) >= r.opts.MaxAccepted {
			if blank {
				continue
			}
			stats.Truncated = true
			return nil
		}

		stats.RowsRead++
		if blank {
			stats.RowsSkipped++
			continue
		}

		fields := strings.Split(text, Delimiter)
		if len(fields) < validation.FieldCount {
			return fmt.Errorf("line %d has %d of %d fields: %w",
				line, len(fields), validation.FieldCount, errors.ErrMalformedRow)
		}

		m, ok := r.validator.Parse(r.fileID, fields)
		if !ok {
			stats.RowsSkipped++
			continue
		}

		stats.RowsAccepted++
		if err := accept(m); err != nil {
			return err
		}
	}

	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("line %d is longer than %d bytes: %w",
				line+1, MaxLineLength, errors.ErrMalformedRow)
		}
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (r *Reader) checkMinimum(stats Stats) error {
	if int(stats.RowsAccepted) < r.opts.MinAccepted {
		return fmt.Errorf("file must contain at least %d valid rows, found %d: %w",
			r.opts.MinAccepted, stats.RowsAccepted, errors.ErrTooFewRows)
	}
	return nil
}
