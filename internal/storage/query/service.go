// Package query answers filtered lookups over file summaries.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/logging"
	"github.com/danilshahmanov/Infotecs/internal/metrics"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
	"github.com/danilshahmanov/Infotecs/internal/store"
)

// Store is the read access the query service needs.
type Store interface {
	QuerySummaries(ctx context.Context, filter store.SummaryFilter) ([]types.FileSummary, error)
	GetSummary(ctx context.Context, fileID string) (*types.FileSummary, error)
}

// ErrNoResults is returned by Results when nothing matches.
var ErrNoResults = fmt.Errorf("no results found matching the provided parameters: %w", errors.ErrNotFound)

// Stats holds query statistics.
type Stats struct {
	QueriesExecuted atomic.Int64
	RowsReturned    atomic.Int64
	Rejected        atomic.Int64
	NotFound        atomic.Int64
	Errors          atomic.Int64
	Shared          atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	QueriesExecuted int64
	RowsReturned    int64
	Rejected        int64
	NotFound        int64
	Errors          int64
	Shared          int64
}

// Service provides summary queries.
type Service struct {
	store   Store
	metrics *metrics.Collector
	log     *slog.Logger

	// lookups deduplicates concurrent single-file summary reads.
	lookups singleflight.Group

	stats Stats
}

// New creates a query service. collector may be nil.
func New(st Store, collector *metrics.Collector) *Service {
	return &Service{
		store:   st,
		metrics: collector,
		log:     logging.Component("query"),
	}
}

// Results returns the summaries matching f ordered by file id. An invalid
// combination yields ErrInvalidFilter, an empty result ErrNotFound.
func (s *Service) Results(ctx context.Context, f Filter) ([]types.FileSummary, error) {
	s.stats.QueriesExecuted.Add(1)

	if err := f.Validate(); err != nil {
		s.stats.Rejected.Add(1)
		s.metrics.ObserveQuery(metrics.ResultRejected)
		return nil, err
	}

	summaries, err := s.store.QuerySummaries(ctx, f.storeFilter())
	if err != nil {
		s.stats.Errors.Add(1)
		s.metrics.ObserveQuery(metrics.ResultFailed)
		s.log.Error("summary query failed", "error", err)
		return nil, fmt.Errorf("query summaries: %w", err)
	}

	if len(summaries) == 0 {
		s.stats.NotFound.Add(1)
		s.metrics.ObserveQuery(metrics.ResultNotFound)
		return nil, ErrNoResults
	}

	s.stats.RowsReturned.Add(int64(len(summaries)))
	s.metrics.ObserveQuery(metrics.ResultSuccess)
	return summaries, nil
}

// Summary returns the summary of one file or ErrSummaryNotFound.
// Concurrent calls for the same file share one store read.
func (s *Service) Summary(ctx context.Context, fileID string) (*types.FileSummary, error) {
	s.stats.QueriesExecuted.Add(1)

	// The lookup is shared, so it must outlive the caller that started it.
	lookupCtx := context.WithoutCancel(ctx)
	v, err, shared := s.lookups.Do(fileID, func() (any, error) {
		return s.store.GetSummary(lookupCtx, fileID)
	})
	if shared {
		s.stats.Shared.Add(1)
	}

	switch {
	case err == nil:
	case errors.IsNotFound(err):
		s.stats.NotFound.Add(1)
		s.metrics.ObserveQuery(metrics.ResultNotFound)
		return nil, err
	default:
		s.stats.Errors.Add(1)
		s.metrics.ObserveQuery(metrics.ResultFailed)
		return nil, fmt.Errorf("get summary: %w", err)
	}

	// Callers may modify the result; shared readers get their own copy.
	summary := *v.(*types.FileSummary)
	s.stats.RowsReturned.Add(1)
	s.metrics.ObserveQuery(metrics.ResultSuccess)
	return &summary, nil
}

// GetStats returns query statistics.
func (s *Service) GetStats() StatsSnapshot {
	return StatsSnapshot{
		QueriesExecuted: s.stats.QueriesExecuted.Load(),
		RowsReturned:    s.stats.RowsReturned.Load(),
		Rejected:        s.stats.Rejected.Load(),
		NotFound:        s.stats.NotFound.Load(),
		Errors:          s.stats.Errors.Load(),
		Shared:          s.stats.Shared.Load(),
	}
}
