package types

import (
	"time"
)

// GenesisPreviousHash is the previous_hash of the genesis block.
const GenesisPreviousHash = "0"

// Block is an immutable, hash-linked batch of evidence records.
//
// The JSON tags define the export format; field names and order must not
// change, or hashes become unverifiable across implementations.
type Block struct {
	Index        uint64   `json:"index"`
	Timestamp    string   `json:"timestamp"`
	Evidence     []Record `json:"evidence"`
	PreviousHash string   `json:"previous_hash"`
	Nonce        uint64   `json:"nonce"`
	Hash         string   `json:"hash"`
}

// blockHeader is the hash pre-image: every Block field except Hash itself,
// in wire order.
type blockHeader struct {
	Index        uint64   `json:"index"`
	Timestamp    string   `json:"timestamp"`
	Evidence     []Record `json:"evidence"`
	PreviousHash string   `json:"previous_hash"`
	Nonce        uint64   `json:"nonce"`
}

// ComputeHash recomputes the block's hash from its contents. The stored
// Hash field does not participate.
func (b *Block) ComputeHash() string {
	hdr := blockHeader{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Evidence:     b.Evidence,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
	}
	h, err := HashJSON(hdr)
	if err != nil {
		panic("types: block not marshalable: " + err.Error())
	}
	return h
}

// Seal recomputes and stores the block's hash.
func (b *Block) Seal() {
	b.Hash = b.ComputeHash()
}

// NewBlock creates an unsealed candidate block linked to the given parent.
func NewBlock(index uint64, previousHash string, evidence []Record, now time.Time) *Block {
	return &Block{
		Index:        index,
		Timestamp:    now.UTC().Format(time.RFC3339Nano),
		Evidence:     CopyRecords(evidence),
		PreviousHash: previousHash,
	}
}

// GenesisBlock creates the fixed first block of a chain.
func GenesisBlock(now time.Time) *Block {
	b := &Block{
		Index:        0,
		Timestamp:    now.UTC().Format(time.RFC3339Nano),
		Evidence:     []Record{},
		PreviousHash: GenesisPreviousHash,
	}
	b.Seal()
	return b
}

// Copy returns a deep copy of the block.
func (b *Block) Copy() *Block {
	if b == nil {
		return nil
	}
	c := *b
	c.Evidence = CopyRecords(b.Evidence)
	return &c
}

// ParseTimestamp parses the block timestamp.
func (b *Block) ParseTimestamp() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, b.Timestamp)
}
