// Package metrics exposes Halyard's Prometheus collectors: HTTP traffic by
// route template, feed ingestion and document job outcomes.
package metrics
