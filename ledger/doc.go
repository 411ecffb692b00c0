// Package ledger implements the evidence integrity ledger: an append-only
// hash-chained block store with proof-of-work sealing.
//
// Evidence producers enqueue records into a pending queue; Seal batches
// them into a candidate block, mines a nonce satisfying the difficulty,
// validates the result against the current tip and appends it. The nonce
// search runs without the chain lock so producers and readers are never
// blocked by mining; a separate seal mutex enforces the single-writer
// discipline on the chain.
package ledger
