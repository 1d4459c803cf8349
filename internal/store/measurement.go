package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/danilshahmanov/Infotecs/internal/storage/aggregate"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

// maxMeasurementsPerInsert bounds the rows of one multi-row INSERT.
// 4 columns * 250 rows = 1000 parameters per statement.
const maxMeasurementsPerInsert = 250

// =============================================================================
// Writes (transactional)
// =============================================================================

// InsertMeasurements appends a buffer of measurements.
func (t *Tx) InsertMeasurements(ctx context.Context, batch []types.Measurement) error {
	for i := 0; i < len(batch); i += maxMeasurementsPerInsert {
		end := i + maxMeasurementsPerInsert
		if end > len(batch) {
			end = len(batch)
		}

		query, args := buildMeasurementInsert(batch[i:end])
		if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
			return Persistence(err, "insert measurements")
		}
	}
	return nil
}

// buildMeasurementInsert builds one multi-row INSERT statement.
func buildMeasurementInsert(batch []types.Measurement) (string, []any) {
	const columnsPerRow = 4

	args := make([]any, 0, len(batch)*columnsPerRow)

	var query strings.Builder
	query.Grow(96 + len(batch)*10)

	query.WriteString(`INSERT INTO measurements (file_id, start_time, duration, indicator_value) VALUES `)

	for i := range batch {
		if i > 0 {
			query.WriteByte(',')
		}
		query.WriteString("(?,?,?,?)")

		m := &batch[i]
		args = append(args, m.FileID, m.StartTime.UTC(), m.Duration, m.IndicatorValue)
	}

	return query.String(), args
}

// MedianIndicator returns the median indicator value of the count
// measurements persisted for fileID, including those written in this Tx.
func (t *Tx) MedianIndicator(ctx context.Context, fileID string, count int64) (float64, error) {
	return medianIndicator(ctx, t.tx, fileID, count)
}

func medianIndicator(ctx context.Context, q querier, fileID string, count int64) (float64, error) {
	if count <= 0 {
		return 0, fmt.Errorf("median of %d values", count)
	}

	left, right := aggregate.Midpoints(count)
	query := fmt.Sprintf(`
		SELECT indicator_value
		FROM measurements
		WHERE file_id = ?
		ORDER BY indicator_value, id
		LIMIT %d OFFSET %d`, right-left+1, left)

	rows, err := q.QueryContext(ctx, query, fileID)
	if err != nil {
		return 0, Persistence(err, "query median")
	}
	defer rows.Close()

	values := make([]float64, 0, 2)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return 0, Persistence(err, "scan median")
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return 0, Persistence(err, "iterate median")
	}

	if int64(len(values)) != right-left+1 {
		return 0, fmt.Errorf("median: expected %d middle values for %d rows, got %d",
			right-left+1, count, len(values))
	}

	return aggregate.MedianOfSorted(values), nil
}

// =============================================================================
// Reads
// =============================================================================

// MeasurementPage returns up to limit measurements of fileID ordered by
// start time, skipping the first offset. Rows with equal start times keep
// their insertion order.
func (s *Store) MeasurementPage(ctx context.Context, fileID string, offset, limit int) ([]types.MeasurementRow, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("invalid page offset=%d limit=%d", offset, limit)
	}

	ctx, cancel := s.readContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT start_time, duration, indicator_value
		FROM measurements
		WHERE file_id = ?
		ORDER BY start_time, id
		LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, Persistence(err, "query measurements")
	}
	defer rows.Close()

	page := make([]types.MeasurementRow, 0, limit)
	for rows.Next() {
		var r types.MeasurementRow
		if err := rows.Scan(&r.StartTime, &r.Duration, &r.IndicatorValue); err != nil {
			return nil, Persistence(err, "scan measurement")
		}
		r.StartTime = r.StartTime.UTC()
		page = append(page, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Persistence(err, "iterate measurements")
	}

	return page, nil
}

// CountMeasurements returns the number of stored measurements of fileID.
func (s *Store) CountMeasurements(ctx context.Context, fileID string) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	ctx, cancel := s.readContext(ctx)
	defer cancel()

	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM measurements WHERE file_id = ?`, fileID).Scan(&n)
	if err != nil {
		return 0, Persistence(err, "count measurements")
	}
	return n, nil
}

