// Package storage groups the ingestion pipeline of labstatd.
//
// Architecture:
//
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│   Reader    │────▶│  Ingestion  │────▶│    Store    │
//	│ (validate,  │     │   Service   │     │  (DuckDB)   │
//	│   buffer)   │     └─────────────┘     └─────────────┘
//	└─────────────┘            │                   │
//	                           ▼                   ▼
//	                    ┌─────────────┐     ┌─────────────┐
//	                    │  Aggregate  │     │   Export /  │
//	                    │ Accumulator │     │    Query    │
//	                    └─────────────┘     └─────────────┘
//
// Subpackages:
//   - reader: bounded-memory row reader with buffered flushes
//   - aggregate: per-file running statistics and median rule
//   - ingestion: one upload, one transaction
//   - export: paged read-back as JSON or Parquet
//   - query: filtered summary lookups
//   - parquet: Parquet encoding of measurement pages
//   - types: shared data model
package storage
