// Package metrics exposes Prometheus instrumentation for sealing,
// tamper detection, consensus checks and federated publication.
//
// Collectors are package-level and registered once via promauto; the
// recorder structs are nil-safe so instrumentation can be omitted in
// tests.
package metrics
