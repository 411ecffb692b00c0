package network

import (
	"sort"

	"github.com/blockberries/ledgerberry/types"
)

// PrivacyLevel controls how much of a published evidence record's detail is
// retained. The tiers are ordered: private retains the least, anonymized the
// most.
type PrivacyLevel string

const (
	// PrivacyPrivate publishes only the fact that evidence exists. All
	// metrics and patterns are stripped.
	PrivacyPrivate PrivacyLevel = "private"

	// PrivacyAggregated retains a small fixed subset of quality metrics.
	PrivacyAggregated PrivacyLevel = "aggregated"

	// PrivacyAnonymized retains all numeric metrics except identifying
	// keys, plus pattern tags.
	PrivacyAnonymized PrivacyLevel = "anonymized"
)

// Valid reports whether the level is one of the three known tiers.
func (l PrivacyLevel) Valid() bool {
	switch l {
	case PrivacyPrivate, PrivacyAggregated, PrivacyAnonymized:
		return true
	}
	return false
}

// AnonymizedEvidence is a published evidence summary. It is read-only once
// published; the raw record it was derived from never leaves the publishing
// organization.
type AnonymizedEvidence struct {
	EvidenceID     string             `json:"evidence_id"`
	EvidenceType   string             `json:"evidence_type"`
	QualityMetrics map[string]float64 `json:"quality_metrics"`
	Patterns       []string           `json:"patterns,omitempty"`
	Timestamp      string             `json:"timestamp"`
	SourceHash     string             `json:"source_hash"`
	PrivacyLevel   PrivacyLevel       `json:"privacy_level"`
}

// Copy returns a deep copy of the published record.
func (e *AnonymizedEvidence) Copy() *AnonymizedEvidence {
	c := *e
	if e.QualityMetrics != nil {
		c.QualityMetrics = make(map[string]float64, len(e.QualityMetrics))
		for k, v := range e.QualityMetrics {
			c.QualityMetrics[k] = v
		}
	}
	if e.Patterns != nil {
		c.Patterns = append([]string(nil), e.Patterns...)
	}
	return &c
}

// Redactor removes sensitive fields from an evidence record before the
// privacy-level projection runs. Implementations must not modify the input.
type Redactor interface {
	Redact(rec types.Record, level PrivacyLevel) types.Record
}

// KeyRedactor drops payload keys from a configured deny list. It is the
// default Redactor.
type KeyRedactor struct {
	Keys []string
}

// identifyingKeys are payload keys that tie evidence back to a specific
// organization, person, or code location.
var identifyingKeys = []string{
	"source",
	"repo",
	"repository",
	"file_path",
	"path",
	"author",
	"committer",
	"host",
	"url",
	"branch",
	"org",
	"organization",
}

// DefaultRedactor returns a KeyRedactor with the standard identifying-key
// deny list.
func DefaultRedactor() *KeyRedactor {
	return &KeyRedactor{Keys: append([]string(nil), identifyingKeys...)}
}

// Redact returns a copy of the record with the deny-listed keys removed from
// its payload.
func (r *KeyRedactor) Redact(rec types.Record, _ PrivacyLevel) types.Record {
	out := rec.Copy()
	for _, k := range r.Keys {
		delete(out.Payload, k)
	}
	return out
}

// aggregatedMetricKeys is the fixed metric subset retained at the
// aggregated privacy level.
var aggregatedMetricKeys = map[string]struct{}{
	"complexity":    {},
	"coverage":      {},
	"quality_score": {},
	"test_count":    {},
	"finding_count": {},
}

// project builds the published summary from an already-redacted record.
// sourceHash is the one-way hash standing in for the publishing org.
func project(rec types.Record, level PrivacyLevel, sourceHash string) *AnonymizedEvidence {
	out := &AnonymizedEvidence{
		EvidenceID:     evidenceID(rec),
		EvidenceType:   rec.Type,
		QualityMetrics: make(map[string]float64),
		Timestamp:      rec.Timestamp,
		SourceHash:     sourceHash,
		PrivacyLevel:   level,
	}

	if level == PrivacyPrivate {
		// Presence only.
		return out
	}

	for key, value := range rec.Payload {
		n, ok := numeric(value)
		if !ok {
			continue
		}
		if level == PrivacyAggregated {
			if _, keep := aggregatedMetricKeys[key]; !keep {
				continue
			}
		}
		out.QualityMetrics[key] = n
	}

	if level == PrivacyAnonymized {
		out.Patterns = patterns(rec.Payload)
	}
	return out
}

// evidenceID is the caller-supplied record id, falling back to the content
// fingerprint.
func evidenceID(rec types.Record) string {
	if rec.ID != "" {
		return rec.ID
	}
	return rec.Fingerprint()
}

// numeric extracts a float64 from the payload value forms produced by
// encoding/json and by in-process callers.
func numeric(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	default:
		return 0, false
	}
}

// patterns collects string tags from the payload's "patterns" entry.
func patterns(payload map[string]interface{}) []string {
	raw, ok := payload["patterns"]
	if !ok {
		return nil
	}

	var tags []string
	switch t := raw.(type) {
	case []string:
		tags = append(tags, t...)
	case []interface{}:
		for _, e := range t {
			if s, ok := e.(string); ok {
				tags = append(tags, s)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// sourceHashLen truncates the org identity hash. Collision resistance at
// federation scale does not need the full digest.
const sourceHashLen = 16

// hashOrgID derives the one-way source hash for an organization id.
func hashOrgID(orgID string) string {
	return types.HashBytes([]byte(orgID))[:sourceHashLen]
}
