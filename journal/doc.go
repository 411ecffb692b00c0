// Package journal persists sealed blocks to an append-only file so a
// ledger's chain can be replayed after a restart or shipped to another
// party.
//
// Each frame is a 4-byte big-endian length prefix, the block's wire JSON,
// and a CRC32 checksum. Replay stops at the first corrupt frame.
package journal
