// Package loader handles configuration file loading, validation, and
// conversion into the options of each component.
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Validating every section
//   - Converting YAML sections into component options
package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/danilshahmanov/Infotecs/config"
	"github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/logging"
	"github.com/danilshahmanov/Infotecs/internal/server"
	"github.com/danilshahmanov/Infotecs/internal/storage/ingestion"
	"github.com/danilshahmanov/Infotecs/internal/storage/parquet"
	"github.com/danilshahmanov/Infotecs/internal/store"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration after expanding ${ENV} references.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	// Server validation
	if cfg.Server.Listen == "" {
		errs.AddMissing("server.listen")
	}
	if cfg.Server.MaxUploadSize <= 0 {
		errs.AddField("server.max_upload_size", "must be > 0")
	}
	if cfg.Server.MultipartMemory <= 0 {
		errs.AddField("server.multipart_memory", "must be > 0")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs.AddField("server.shutdown_timeout", "cannot be negative")
	}

	// Store validation
	if cfg.Store.MaxOpenConns < 1 {
		errs.AddField("store.max_open_conns", "must be >= 1")
	}
	if cfg.Store.MaxIdleConns < 0 {
		errs.AddField("store.max_idle_conns", "cannot be negative")
	}
	if cfg.Store.BlobChunkSize <= 0 {
		errs.AddField("store.blob_chunk_size", "must be > 0")
	}

	// Ingestion validation
	if cfg.Ingestion.MinAccepted < 1 {
		errs.AddField("ingestion.min_accepted", "must be >= 1")
	}
	if cfg.Ingestion.MaxAccepted < cfg.Ingestion.MinAccepted {
		errs.AddField("ingestion.max_accepted", "must be >= ingestion.min_accepted")
	}
	if cfg.Ingestion.BufferCapacity < 1 || cfg.Ingestion.BufferCapacity > config.MaxBufferCapacity {
		errs.AddField("ingestion.buffer_capacity", fmt.Sprintf("must be in 1-%d", config.MaxBufferCapacity))
	}

	// Export validation
	if cfg.Export.PageSize < 1 {
		errs.AddField("export.page_size", "must be >= 1")
	}
	if _, err := parquet.ParseCompressionType(cfg.Export.ParquetCompression); err != nil {
		errs.AddField("export.parquet_compression", err.Error())
	}

	// Features validation
	if p := cfg.Features.Percentile; p.Enabled && (p.Accuracy <= 0 || p.Accuracy >= 1) {
		errs.AddField("features.percentile.accuracy", "must be in (0, 1)")
	}

	// Logging validation
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs.AddField("logging.level", err.Error())
	}

	return errs.Err()
}

// EnsureDirectories creates the directory holding the database file.
func EnsureDirectories(cfg *Config) error {
	if cfg.Store.Path == "" || cfg.Store.Path == store.MemoryDSN {
		return nil
	}
	dir := filepath.Dir(cfg.Store.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// Conversion: Config → component options
// =============================================================================

// ToStoreConfig converts the store section.
func ToStoreConfig(cfg *StoreConfig) store.Config {
	return store.Config{
		DSN:             cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime.Duration(),
		QueryTimeout:    cfg.QueryTimeout.Duration(),
		BlobChunkSize:   int(cfg.BlobChunkSize.Bytes()),
	}
}

// ToIngestionOptions converts the ingestion and percentile sections.
func ToIngestionOptions(cfg *Config) ingestion.Options {
	opts := ingestion.DefaultOptions()
	opts.MinAccepted = cfg.Ingestion.MinAccepted
	opts.MaxAccepted = cfg.Ingestion.MaxAccepted
	opts.BufferCapacity = cfg.Ingestion.BufferCapacity
	opts.Pipelined = cfg.Ingestion.Pipelined
	opts.PercentilesEnabled = cfg.Features.Percentile.Enabled
	opts.PercentileAccuracy = cfg.Features.Percentile.Accuracy
	return opts
}

// ToServerConfig converts the server section.
func ToServerConfig(cfg *ServerConfig) server.Config {
	return server.Config{
		ListenAddress:     cfg.Listen,
		MaxUploadSize:     cfg.MaxUploadSize.Bytes(),
		MultipartMemory:   cfg.MultipartMemory.Bytes(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration(),
		ShutdownTimeout:   cfg.ShutdownTimeout.Duration(),
	}
}

// ToParquetOptions converts the export section's compression setting.
func ToParquetOptions(cfg *ExportConfig) (parquet.Options, error) {
	opts := parquet.DefaultOptions()
	compression, err := parquet.ParseCompressionType(cfg.ParquetCompression)
	if err != nil {
		return opts, err
	}
	opts.Compression = compression
	return opts, nil
}

// LogLevel returns the configured slog level.
func LogLevel(cfg *LoggingConfig) slog.Level {
	level, _ := logging.ParseLevel(cfg.Level)
	return level
}
