// Package parquet implements Parquet encoding of exported measurements.
//
// The package provides:
//   - MeasurementWriter, streaming rows to any io.Writer page by page
//   - MeasurementReader, reading an exported file back
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
package parquet
