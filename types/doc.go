// Package types defines the core data model of the evidence integrity
// ledger: evidence records, hash-linked blocks, and the hash helpers
// shared by the other packages.
//
// The JSON field names on Block are the at-rest and on-wire
// representation. They are load-bearing: independent implementations must
// produce byte-identical canonical JSON to verify block hashes.
package types
