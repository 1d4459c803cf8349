// Package types defines the core data types shared by the ingestion, export
// and query layers.
//
// Key types:
//   - Measurement: one validated row of an uploaded file
//   - MeasurementBatch: a reusable buffer of measurements
//   - FileSummary: statistics computed once per ingested file
//   - StoredFile: metadata of the raw uploaded bytes
//   - MeasurementRow: the export projection of a measurement
package types
