package store

import (
	"context"
	"database/sql"
	"fmt"
)

// =============================================================================
// Schema Migration
// =============================================================================

// migrate creates the tables if they are missing. It is idempotent.
//
// The tables carry no PRIMARY KEY or UNIQUE constraints: DuckDB checks them
// against rows deleted earlier in the same transaction, which breaks the
// delete-then-reinsert of a re-upload. Uniqueness per file_id is maintained
// by always deleting before inserting inside one Tx.
func migrate(ctx context.Context, db *sql.DB) error {
	migrations := []struct {
		name string
		sql  string
	}{
		{
			name: "measurement_seq",
			sql:  `CREATE SEQUENCE IF NOT EXISTS measurement_seq START 1`,
		},
		{
			name: "measurements",
			sql: `CREATE TABLE IF NOT EXISTS measurements (
				id              BIGINT DEFAULT nextval('measurement_seq'),
				file_id         VARCHAR NOT NULL,
				start_time      TIMESTAMP NOT NULL,
				duration        BIGINT NOT NULL,
				indicator_value DOUBLE NOT NULL
			)`,
		},
		{
			name: "file_summaries",
			sql: `CREATE TABLE IF NOT EXISTS file_summaries (
				file_id           VARCHAR NOT NULL,
				first_start       TIMESTAMP NOT NULL,
				last_start        TIMESTAMP NOT NULL,
				min_duration      BIGINT NOT NULL,
				max_duration      BIGINT NOT NULL,
				avg_duration      BIGINT NOT NULL,
				min_indicator     DOUBLE NOT NULL,
				max_indicator     DOUBLE NOT NULL,
				avg_indicator     DOUBLE NOT NULL,
				median_indicator  DOUBLE NOT NULL,
				measurement_count BIGINT NOT NULL,
				p90_indicator     DOUBLE,
				p95_indicator     DOUBLE,
				p99_indicator     DOUBLE,
				created_at        TIMESTAMP NOT NULL
			)`,
		},
		{
			name: "stored_files",
			sql: `CREATE TABLE IF NOT EXISTS stored_files (
				file_id     VARCHAR NOT NULL,
				author      VARCHAR NOT NULL,
				uploaded_at TIMESTAMP NOT NULL,
				size_bytes  BIGINT NOT NULL,
				sha256      VARCHAR NOT NULL
			)`,
		},
		{
			name: "stored_file_chunks",
			sql: `CREATE TABLE IF NOT EXISTS stored_file_chunks (
				file_id VARCHAR NOT NULL,
				seq     INTEGER NOT NULL,
				data    BLOB NOT NULL
			)`,
		},
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		log.Debug("migration applied", "name", m.name)
	}

	log.Debug("schema migration completed", "migrations", len(migrations))
	return nil
}
