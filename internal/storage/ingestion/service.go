// Package ingestion turns an uploaded measurement file into stored
// measurements, a summary and the preserved raw bytes.
//
// One call to ProcessFile is one ingestion session. Everything the session
// writes happens inside one store transaction: a session either replaces
// all data of the file or leaves the previous data untouched.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/danilshahmanov/Infotecs/config"
	"github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/logging"
	"github.com/danilshahmanov/Infotecs/internal/metrics"
	"github.com/danilshahmanov/Infotecs/internal/storage/aggregate"
	"github.com/danilshahmanov/Infotecs/internal/storage/reader"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
	"github.com/danilshahmanov/Infotecs/internal/store"
	"github.com/danilshahmanov/Infotecs/internal/validation"
)

// Store is the persistence the service needs.
type Store interface {
	Transaction(ctx context.Context, fn func(*store.Tx) error) error
}

// Options configures the ingestion pipeline.
type Options struct {
	MinAccepted    int
	MaxAccepted    int
	BufferCapacity int

	// Pipelined overlaps reading the next buffer with persisting the
	// current one.
	Pipelined bool

	// PercentilesEnabled adds approximate P90/P95/P99 to summaries.
	PercentilesEnabled bool
	PercentileAccuracy float64

	// Clock is the time source for validation and timestamps. Nil means
	// time.Now.
	Clock func() time.Time
}

// DefaultOptions returns options with the service defaults.
func DefaultOptions() Options {
	return Options{
		MinAccepted:        config.DefaultMinAccepted,
		MaxAccepted:        config.DefaultMaxAccepted,
		BufferCapacity:     config.DefaultBufferCapacity,
		PercentileAccuracy: config.DefaultPercentileAccuracy,
	}
}

// Validate checks the option bounds.
func (o *Options) Validate() error {
	errs := errors.NewValidationErrors()
	if o.MinAccepted < 1 {
		errs.AddField("min_accepted", "must be >= 1")
	}
	ro := o.readerOptions()
	if err := ro.Validate(); err != nil {
		errs.Add(err)
	}
	if o.PercentilesEnabled && (o.PercentileAccuracy <= 0 || o.PercentileAccuracy >= 1) {
		errs.AddField("percentile_accuracy", "must be in (0, 1)")
	}
	return errs.Err()
}

func (o *Options) now() time.Time {
	if o.Clock == nil {
		return time.Now().UTC()
	}
	return o.Clock().UTC()
}

func (o *Options) readerOptions() reader.Options {
	return reader.Options{
		MinAccepted:    o.MinAccepted,
		MaxAccepted:    o.MaxAccepted,
		BufferCapacity: o.BufferCapacity,
		Validator: &validation.RecordValidator{
			MinTime: validation.MinMeasurementTime,
			Now:     o.now,
		},
	}
}

// Request is one uploaded file.
type Request struct {
	FileID string
	Author string

	// Source is read once for measurements, then rewound and stored.
	Source io.ReadSeeker
}

// Result describes a successful ingestion.
type Result struct {
	SessionID string
	Summary   types.FileSummary
	File      types.StoredFile
	Rows      reader.Stats

	// Replaced is set when an earlier upload of the same file was replaced.
	Replaced bool
}

// Stats holds ingestion statistics across sessions.
type Stats struct {
	FilesReceived atomic.Int64
	FilesIngested atomic.Int64
	FilesRejected atomic.Int64
	FilesFailed   atomic.Int64
	RowsAccepted  atomic.Int64
	RowsSkipped   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	FilesReceived int64
	FilesIngested int64
	FilesRejected int64
	FilesFailed   int64
	RowsAccepted  int64
	RowsSkipped   int64
}

// Service orchestrates the ingestion pipeline:
// upload → reader → [store buffer, update accumulator] → summary → raw bytes.
type Service struct {
	store   Store
	opts    Options
	metrics *metrics.Collector
	log     *slog.Logger

	stats Stats
}

// New creates an ingestion service. collector may be nil.
func New(st Store, opts Options, collector *metrics.Collector) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("ingestion options: %w", err)
	}
	return &Service{
		store:   st,
		opts:    opts,
		metrics: collector,
		log:     logging.Component("ingestion"),
	}, nil
}

// ProcessFile ingests one file. On any failure nothing of this session is
// persisted and the returned error wraps ErrIngestion together with the
// cause.
func (s *Service) ProcessFile(ctx context.Context, req Request) (*Result, error) {
	s.stats.FilesReceived.Add(1)
	start := time.Now()

	sessionID := uuid.NewString()
	ctx = logging.ContextWithSessionID(ctx, sessionID)
	ctx = logging.ContextWithFileID(ctx, req.FileID)
	log := logging.Enrich(ctx, s.log)

	log.Info("ingestion started", "author", req.Author, "pipelined", s.opts.Pipelined)

	res, err := s.process(ctx, req)
	if res != nil {
		res.SessionID = sessionID
		s.stats.RowsAccepted.Add(res.Rows.RowsAccepted)
		s.stats.RowsSkipped.Add(res.Rows.RowsSkipped)
		s.metrics.ObserveRows(res.Rows.RowsRead, res.Rows.RowsAccepted, res.Rows.RowsSkipped, res.Rows.BuffersFlushed)
	}

	if err != nil {
		outcome := metrics.ResultFailed
		if errors.IsValidation(err) {
			outcome = metrics.ResultRejected
			s.stats.FilesRejected.Add(1)
			log.Warn("ingestion rejected", "error", err)
		} else {
			s.stats.FilesFailed.Add(1)
			log.Error("ingestion failed", "error", err)
		}
		s.metrics.ObserveIngestion(outcome, time.Since(start))
		return nil, fmt.Errorf("%w: %w", errors.ErrIngestion, err)
	}

	s.stats.FilesIngested.Add(1)
	s.metrics.ObserveIngestion(metrics.ResultSuccess, time.Since(start))

	log.Info("ingestion completed",
		"rows_read", res.Rows.RowsRead,
		"rows_accepted", res.Rows.RowsAccepted,
		"rows_skipped", res.Rows.RowsSkipped,
		"buffers", res.Rows.BuffersFlushed,
		"truncated", res.Rows.Truncated,
		"replaced", res.Replaced,
		"bytes", res.File.Size,
		"duration", time.Since(start))

	return res, nil
}

// process runs the session. The returned Result carries row statistics
// even when err is non-nil.
func (s *Service) process(ctx context.Context, req Request) (*Result, error) {
	if err := validation.ValidateFileID(req.FileID); err != nil {
		return nil, err
	}
	if req.Source == nil {
		return nil, fmt.Errorf("no file content: %w", errors.ErrMalformedUpload)
	}

	rd, err := reader.New(req.FileID, s.opts.readerOptions())
	if err != nil {
		return nil, err
	}

	acc, err := s.newAccumulator()
	if err != nil {
		return nil, err
	}

	log := logging.Enrich(ctx, s.log)
	res := &Result{}

	err = s.store.Transaction(ctx, func(tx *store.Tx) error {
		exists, err := tx.SummaryExists(ctx, req.FileID)
		if err != nil {
			return err
		}
		if exists {
			if err := tx.DeleteFileData(ctx, req.FileID); err != nil {
				return err
			}
			res.Replaced = true
			log.Debug("previous upload removed")
		}

		flush := func(ctx context.Context, batch []types.Measurement) error {
			if err := tx.InsertMeasurements(ctx, batch); err != nil {
				return err
			}
			acc.Update(batch)
			log.Debug("buffer flushed", "size", len(batch), "total", acc.Count())
			return nil
		}

		if s.opts.Pipelined {
			res.Rows, err = rd.ReadPipelined(ctx, req.Source, flush)
		} else {
			res.Rows, err = rd.Read(ctx, req.Source, flush)
		}
		if err != nil {
			return err
		}

		summary, err := acc.Finalize(ctx, req.FileID, tx.MedianIndicator)
		if err != nil {
			return err
		}
		summary.CreatedAt = s.opts.now()
		if err := tx.InsertSummary(ctx, &summary); err != nil {
			return err
		}
		res.Summary = summary

		if _, err := req.Source.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind upload: %w", err)
		}

		file, err := tx.WriteFile(ctx, types.StoredFile{
			FileID:     req.FileID,
			Author:     req.Author,
			UploadedAt: s.opts.now(),
		}, req.Source)
		if err != nil {
			return err
		}
		res.File = file

		return nil
	})

	return res, err
}

func (s *Service) newAccumulator() (*aggregate.Accumulator, error) {
	if s.opts.PercentilesEnabled {
		return aggregate.NewWithPercentiles(s.opts.PercentileAccuracy)
	}
	return aggregate.New(), nil
}

// GetStats returns a snapshot of the service counters.
func (s *Service) GetStats() StatsSnapshot {
	return StatsSnapshot{
		FilesReceived: s.stats.FilesReceived.Load(),
		FilesIngested: s.stats.FilesIngested.Load(),
		FilesRejected: s.stats.FilesRejected.Load(),
		FilesFailed:   s.stats.FilesFailed.Load(),
		RowsAccepted:  s.stats.RowsAccepted.Load(),
		RowsSkipped:   s.stats.RowsSkipped.Load(),
	}
}

// Options returns the options the service runs with.
func (s *Service) Options() Options {
	return s.opts
}
