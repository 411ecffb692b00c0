package ledger

import (
	"github.com/blockberries/ledgerberry/types"
)

// SearchHit is an evidence record together with its block provenance.
type SearchHit struct {
	Record         types.Record `json:"record"`
	BlockIndex     uint64       `json:"block_index"`
	BlockHash      string       `json:"block_hash"`
	BlockTimestamp string       `json:"block_timestamp"`
}

// Search scans the chain from the most recent block backward and collects
// evidence records matching evidenceType, stopping once limit hits are
// found. An empty evidenceType matches everything; limit <= 0 means no
// limit.
func (l *Ledger) Search(evidenceType string, limit int) []SearchHit {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var hits []SearchHit
	for i := len(l.chain) - 1; i >= 0; i-- {
		b := l.chain[i]
		for _, rec := range b.Evidence {
			if evidenceType != "" && rec.Type != evidenceType {
				continue
			}
			hits = append(hits, SearchHit{
				Record:         rec.Copy(),
				BlockIndex:     b.Index,
				BlockHash:      b.Hash,
				BlockTimestamp: b.Timestamp,
			})
			if limit > 0 && len(hits) >= limit {
				return hits
			}
		}
	}
	return hits
}

// EvidenceByFingerprint scans the chain from genesis forward and returns
// the first evidence record whose content fingerprint matches, with its
// provenance. The fingerprint is the record's content hash, not a block
// hash.
func (l *Ledger) EvidenceByFingerprint(fingerprint string) (SearchHit, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, b := range l.chain {
		for _, rec := range b.Evidence {
			if rec.Fingerprint() == fingerprint {
				return SearchHit{
					Record:         rec.Copy(),
					BlockIndex:     b.Index,
					BlockHash:      b.Hash,
					BlockTimestamp: b.Timestamp,
				}, true
			}
		}
	}
	return SearchHit{}, false
}
