// Package loader - Configuration Types
//
// Defines the YAML configuration structure for labstatd.
//
//	server:      HTTP listener, upload limit, shutdown behavior
//	store:       DuckDB file, connection pool, blob chunking
//	ingestion:   row bounds, buffer capacity, pipelining
//	export:      page size, parquet compression
//	features:    optional summary extras (percentiles)
//	logging:     level and format
package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danilshahmanov/Infotecs/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for labstatd.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Export    ExportConfig    `yaml:"export"`
	Features  FeaturesConfig  `yaml:"features"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// =============================================================================
// Server Configuration
// =============================================================================

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Listen is the HTTP listen address.
	// Default: "0.0.0.0:8080"
	Listen string `yaml:"listen"`

	// MaxUploadSize caps the multipart upload body.
	// Default: 64MB
	MaxUploadSize ByteSize `yaml:"max_upload_size"`

	// MultipartMemory is the in-memory part of an upload; the rest goes to
	// a temporary file.
	// Default: 1MB
	MultipartMemory ByteSize `yaml:"multipart_memory"`

	// ReadHeaderTimeout bounds header reads.
	// Default: 10s
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`

	// ShutdownTimeout is how long in-flight requests get on shutdown.
	// Default: 30s
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// =============================================================================
// Store Configuration (DuckDB)
// =============================================================================

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path is the DuckDB database file. Empty means in-memory.
	// Default: "data/labstat.duckdb"
	Path string `yaml:"path"`

	// MaxOpenConns is the max open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the max idle connections in the pool.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime is the max lifetime of a connection.
	// Default: 5m
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`

	// QueryTimeout is the default read query timeout.
	// Default: 30s
	QueryTimeout Duration `yaml:"query_timeout"`

	// BlobChunkSize is the size of one stored file chunk.
	// Default: 1MB
	BlobChunkSize ByteSize `yaml:"blob_chunk_size"`
}

// =============================================================================
// Ingestion Configuration
// =============================================================================

// IngestionConfig holds the streaming reader bounds.
type IngestionConfig struct {
	// MinAccepted is the fewest valid rows a file must contain.
	// Default: 1
	MinAccepted int `yaml:"min_accepted"`

	// MaxAccepted is the row cap; reading stops once reached.
	// Default: 10000
	MaxAccepted int `yaml:"max_accepted"`

	// BufferCapacity is the number of rows persisted per flush.
	// Default: 1000
	BufferCapacity int `yaml:"buffer_capacity"`

	// Pipelined reads the next buffer while the current one is stored.
	// Default: false
	Pipelined bool `yaml:"pipelined"`
}

// =============================================================================
// Export Configuration
// =============================================================================

// ExportConfig holds read-back settings.
type ExportConfig struct {
	// PageSize is the number of measurements per page.
	// Default: 1000
	PageSize int `yaml:"page_size"`

	// ParquetCompression is one of none, snappy, zstd, lz4, gzip.
	// Default: "zstd"
	ParquetCompression string `yaml:"parquet_compression"`
}

// =============================================================================
// Features Configuration
// =============================================================================

// FeaturesConfig toggles optional behavior.
type FeaturesConfig struct {
	Percentile PercentileConfig `yaml:"percentile"`
}

// PercentileConfig enables approximate P90/P95/P99 in summaries.
type PercentileConfig struct {
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Accuracy is the DDSketch relative accuracy.
	// Default: 0.01
	Accuracy float64 `yaml:"accuracy"`
}

// =============================================================================
// Logging Configuration
// =============================================================================

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	// Default: "info"
	Level string `yaml:"level"`

	// JSON switches from text to JSON output.
	// Default: false
	JSON bool `yaml:"json"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:            config.DefaultListenAddress,
			MaxUploadSize:     ByteSize(config.DefaultMaxUploadSize),
			MultipartMemory:   ByteSize(config.DefaultMultipartMemory),
			ReadHeaderTimeout: Duration(config.DefaultReadHeaderTimeout),
			ShutdownTimeout:   Duration(config.DefaultShutdownTimeout),
		},
		Store: StoreConfig{
			Path:            config.DefaultStorePath,
			MaxOpenConns:    config.DefaultMaxOpenConns,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(5 * time.Minute),
			QueryTimeout:    Duration(config.DefaultQueryTimeout),
			BlobChunkSize:   ByteSize(config.DefaultBlobChunkSize),
		},
		Ingestion: IngestionConfig{
			MinAccepted:    config.DefaultMinAccepted,
			MaxAccepted:    config.DefaultMaxAccepted,
			BufferCapacity: config.DefaultBufferCapacity,
		},
		Export: ExportConfig{
			PageSize:           config.DefaultPageSize,
			ParquetCompression: config.DefaultParquetCompression,
		},
		Features: FeaturesConfig{
			Percentile: PercentileConfig{
				Accuracy: config.DefaultPercentileAccuracy,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// Custom Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int (seconds)
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ByteSize is a size in bytes that can be unmarshaled from YAML.
// Supports: "100MB", "1GB", "500KB", or plain bytes.
type ByteSize int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		var i int64
		if err := unmarshal(&i); err != nil {
			return err
		}
		*b = ByteSize(i)
		return nil
	}
	size, err := parseByteSize(s)
	if err != nil {
		return err
	}
	*b = ByteSize(size)
	return nil
}

// byteUnits is ordered so longer suffixes match first.
var byteUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// parseByteSize parses a size string like "100MB" or "1GB".
func parseByteSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}

	for _, unit := range byteUnits {
		if numStr, ok := strings.CutSuffix(s, unit.suffix); ok {
			n, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("parse byte size %q: %w", s, err)
			}
			return n * unit.multiplier, nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse byte size %q: %w", s, err)
	}
	return n, nil
}

// Bytes returns the size in bytes.
func (b ByteSize) Bytes() int64 {
	return int64(b)
}
