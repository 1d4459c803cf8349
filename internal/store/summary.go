package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

const summaryColumns = `file_id, first_start, last_start,
	min_duration, max_duration, avg_duration,
	min_indicator, max_indicator, avg_indicator, median_indicator,
	measurement_count, p90_indicator, p95_indicator, p99_indicator, created_at`

// SummaryFilter selects summaries. Nil fields do not constrain the result.
type SummaryFilter struct {
	FileID *string

	MinAverageIndicator *float64
	MaxAverageIndicator *float64

	MinAverageDuration *float64
	MaxAverageDuration *float64
}

// =============================================================================
// Writes (transactional)
// =============================================================================

// SummaryExists reports whether fileID has a summary, as seen by this Tx.
func (t *Tx) SummaryExists(ctx context.Context, fileID string) (bool, error) {
	return summaryExists(ctx, t.tx, fileID)
}

// DeleteFileData removes every artifact of fileID: measurements, summary
// and stored bytes.
func (t *Tx) DeleteFileData(ctx context.Context, fileID string) error {
	for _, table := range []string{"measurements", "file_summaries", "stored_file_chunks", "stored_files"} {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE file_id = ?`, fileID); err != nil {
			return Persistence(err, "delete from "+table)
		}
	}
	return nil
}

// InsertSummary stores the summary of a file.
func (t *Tx) InsertSummary(ctx context.Context, s *types.FileSummary) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := t.tx.ExecContext(ctx, `INSERT INTO file_summaries (`+summaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.FileID, s.FirstStart.UTC(), s.LastStart.UTC(),
		s.MinDuration, s.MaxDuration, s.AverageDuration,
		s.MinIndicator, s.MaxIndicator, s.AverageIndicator, s.MedianIndicator,
		s.Count, nullFloat(s.P90), nullFloat(s.P95), nullFloat(s.P99), s.CreatedAt.UTC())
	if err != nil {
		return Persistence(err, "insert summary")
	}
	return nil
}

// =============================================================================
// Reads
// =============================================================================

func summaryExists(ctx context.Context, q querier, fileID string) (bool, error) {
	var n int64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM file_summaries WHERE file_id = ?`, fileID).Scan(&n)
	if err != nil {
		return false, Persistence(err, "check summary")
	}
	return n > 0, nil
}

// SummaryExists reports whether fileID has a committed summary.
func (s *Store) SummaryExists(ctx context.Context, fileID string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	ctx, cancel := s.readContext(ctx)
	defer cancel()

	return summaryExists(ctx, s.db, fileID)
}

// GetSummary returns the summary of fileID or ErrSummaryNotFound.
func (s *Store) GetSummary(ctx context.Context, fileID string) (*types.FileSummary, error) {
	filter := SummaryFilter{FileID: &fileID}
	summaries, err := s.QuerySummaries(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("file '%s': %w", fileID, ErrSummaryNotFound)
	}
	return &summaries[0], nil
}

// QuerySummaries returns the summaries matching filter ordered by file id.
func (s *Store) QuerySummaries(ctx context.Context, filter SummaryFilter) ([]types.FileSummary, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	ctx, cancel := s.readContext(ctx)
	defer cancel()

	query, args := buildSummaryQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Persistence(err, "query summaries")
	}
	defer rows.Close()

	var out []types.FileSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, Persistence(err, "iterate summaries")
	}

	return out, nil
}

func buildSummaryQuery(filter SummaryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	add := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}

	if filter.FileID != nil {
		add("file_id = ?", *filter.FileID)
	}
	if filter.MinAverageIndicator != nil {
		add("avg_indicator >= ?", *filter.MinAverageIndicator)
	}
	if filter.MaxAverageIndicator != nil {
		add("avg_indicator <= ?", *filter.MaxAverageIndicator)
	}
	if filter.MinAverageDuration != nil {
		add("avg_duration >= ?", *filter.MinAverageDuration)
	}
	if filter.MaxAverageDuration != nil {
		add("avg_duration <= ?", *filter.MaxAverageDuration)
	}

	query := `SELECT ` + summaryColumns + ` FROM file_summaries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY file_id`

	return query, args
}

func scanSummary(rows *sql.Rows) (types.FileSummary, error) {
	var (
		s             types.FileSummary
		p90, p95, p99 sql.NullFloat64
	)

	err := rows.Scan(
		&s.FileID, &s.FirstStart, &s.LastStart,
		&s.MinDuration, &s.MaxDuration, &s.AverageDuration,
		&s.MinIndicator, &s.MaxIndicator, &s.AverageIndicator, &s.MedianIndicator,
		&s.Count, &p90, &p95, &p99, &s.CreatedAt,
	)
	if err != nil {
		return s, Persistence(err, "scan summary")
	}

	s.FirstStart = s.FirstStart.UTC()
	s.LastStart = s.LastStart.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.P90 = floatPtr(p90)
	s.P95 = floatPtr(p95)
	s.P99 = floatPtr(p99)

	return s, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
