// Package config provides configuration defaults for labstatd.
//
// Every value here can be overridden in config.yaml; the comment on each
// constant names the key.
package config

import "time"

// =============================================================================
// Network Defaults
// =============================================================================

const (
	// DefaultListenAddress is the default HTTP listen address.
	// Override via config: server.listen
	DefaultListenAddress = "0.0.0.0:8080"

	// DefaultMaxUploadSize caps the multipart body accepted by the upload route.
	// Override via config: server.max_upload_size
	DefaultMaxUploadSize = 64 * 1024 * 1024

	// DefaultMultipartMemory is how much of a multipart upload is held in
	// memory before the rest spills to a temporary file.
	// Override via config: server.multipart_memory
	DefaultMultipartMemory = 1 * 1024 * 1024

	// DefaultReadHeaderTimeout bounds how long a client may take to send headers.
	// Override via config: server.read_header_timeout
	DefaultReadHeaderTimeout = 10 * time.Second
)

// =============================================================================
// Ingestion Defaults
// =============================================================================

const (
	// DefaultMinAccepted is the fewest valid rows a file must contain.
	// Override via config: ingestion.min_accepted
	DefaultMinAccepted = 1

	// DefaultMaxAccepted is the row cap; reading stops once it is reached.
	// Override via config: ingestion.max_accepted
	DefaultMaxAccepted = 10000

	// DefaultBufferCapacity is the number of rows handed to the store per flush.
	// Range: 1-100000
	// Override via config: ingestion.buffer_capacity
	DefaultBufferCapacity = 1000

	// MaxBufferCapacity is the upper bound accepted by config validation.
	MaxBufferCapacity = 100000

	// MinMeasurementTimeRFC3339 is the earliest accepted start time (UTC).
	MinMeasurementTimeRFC3339 = "2000-01-01T00:00:00Z"

	// MeasurementTimeLayout is the on-disk format of the start time column.
	MeasurementTimeLayout = "2006-01-02_15-04-05"
)

// =============================================================================
// Store Defaults
// =============================================================================

const (
	// DefaultStorePath is the DuckDB database file.
	// Override via config: store.path
	DefaultStorePath = "data/labstat.duckdb"

	// DefaultQueryTimeout bounds individual store queries.
	// Override via config: store.query_timeout
	DefaultQueryTimeout = 30 * time.Second

	// DefaultBlobChunkSize is the size of one stored_file_chunks row.
	// Override via config: store.blob_chunk_size
	DefaultBlobChunkSize = 1024 * 1024

	// DefaultMaxOpenConns is the connection pool size.
	// Override via config: store.max_open_conns
	DefaultMaxOpenConns = 10
)

// =============================================================================
// Export Defaults
// =============================================================================

const (
	// DefaultPageSize is the number of measurements fetched per export page.
	// Override via config: export.page_size
	DefaultPageSize = 1000

	// DefaultParquetCompression is used for parquet exports.
	// Override via config: export.parquet_compression
	DefaultParquetCompression = "zstd"
)

// =============================================================================
// Feature Defaults
// =============================================================================

const (
	// DefaultPercentileAccuracy is the DDSketch relative accuracy.
	// Override via config: features.percentile.accuracy
	DefaultPercentileAccuracy = 0.01
)

// =============================================================================
// Shutdown Defaults
// =============================================================================

const (
	// DefaultShutdownTimeout is how long in-flight requests get to finish.
	// Override via config: server.shutdown_timeout
	DefaultShutdownTimeout = 30 * time.Second
)
