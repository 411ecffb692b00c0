package types

import (
	"time"
)

// Kind classifies an evidence record. The set is closed: payloads carrying
// an unrecognized type tag are still accepted but classified as KindOpaque,
// so producers can introduce new kinds without breaking older ledgers.
type Kind string

const (
	KindTestReport    Kind = "test_report"
	KindScanFinding   Kind = "scan_finding"
	KindBuildArtifact Kind = "build_artifact"
	KindBenchmark     Kind = "benchmark"
	KindOpaque        Kind = "opaque"
)

// KindOf maps a raw evidence type tag to a known Kind.
func KindOf(typeTag string) Kind {
	switch Kind(typeTag) {
	case KindTestReport, KindScanFinding, KindBuildArtifact, KindBenchmark:
		return Kind(typeTag)
	default:
		return KindOpaque
	}
}

// Record is a single piece of compliance/quality evidence. The ledger only
// inspects Type and Timestamp; Payload is opaque to it beyond hashing.
type Record struct {
	ID        string                 `json:"id,omitempty"`
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// NewRecord creates a Record stamped with the current time.
func NewRecord(typeTag string, payload map[string]interface{}) Record {
	return Record{
		Type:      typeTag,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}
}

// Kind returns the classified kind of the record.
func (r Record) Kind() Kind {
	return KindOf(r.Type)
}

// Fingerprint computes the content hash of the record over its canonical
// JSON encoding. This is the evidence identity used for lookups; it is
// unrelated to block hashes.
func (r Record) Fingerprint() string {
	h, err := HashJSON(r)
	if err != nil {
		// Payload values come from encoding/json-compatible sources;
		// a marshal failure indicates a programming error.
		panic("types: record not marshalable: " + err.Error())
	}
	return h
}

// Copy returns a deep copy of the record.
func (r Record) Copy() Record {
	c := r
	if r.Payload != nil {
		c.Payload = copyPayload(r.Payload)
	}
	return c
}

func copyPayload(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyPayload(t)
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, e := range t {
			s[i] = copyValue(e)
		}
		return s
	default:
		return v
	}
}

// CopyRecords deep-copies a slice of records.
func CopyRecords(recs []Record) []Record {
	if recs == nil {
		return nil
	}
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = r.Copy()
	}
	return out
}
