package network

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blockberries/ledgerberry/metrics"
	"github.com/blockberries/ledgerberry/quorum"
	"github.com/blockberries/ledgerberry/types"
)

// Errors
var (
	ErrAlreadyMember   = errors.New("organization is already a member")
	ErrNotAMember      = errors.New("organization is not a member")
	ErrEmptyOrgID      = errors.New("empty organization id")
	ErrBadPrivacyLevel = errors.New("unknown privacy level")
	ErrBadConfidence   = errors.New("confidence outside [0,1]")
	ErrInvalidConfig   = errors.New("invalid network config")
)

// Node is a member organization of the federation.
type Node struct {
	OrganizationID   string            `json:"organization_id"`
	EvidenceEndpoint string            `json:"evidence_endpoint"`
	PublicKey        ed25519.PublicKey `json:"public_key,omitempty"`
	ReputationScore  float64           `json:"reputation_score"`
	JoinedAt         time.Time         `json:"joined_at"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

func (n *Node) copy() *Node {
	c := *n
	if n.Metadata != nil {
		c.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Config holds federation configuration.
type Config struct {
	// Name identifies the network instance in logs and metrics.
	Name string

	// MinVoters is the minimum ballot count before evidence consensus
	// can be reached.
	MinVoters int

	// Threshold is the weighted agreement fraction required for
	// evidence acceptance.
	Threshold float64
}

// Defaults
const (
	DefaultMinVoters = 3
	DefaultThreshold = 0.66
)

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Name:      "federation",
		MinVoters: DefaultMinVoters,
		Threshold: DefaultThreshold,
	}
}

// ValidateBasic performs basic validation of the config.
func (cfg Config) ValidateBasic() error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: empty network name", ErrInvalidConfig)
	}
	if cfg.MinVoters < 1 {
		return fmt.Errorf("%w: min voters below 1", ErrInvalidConfig)
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		return fmt.Errorf("%w: threshold outside (0,1]", ErrInvalidConfig)
	}
	return nil
}

// Network is a federated consensus network instance.
//
// Membership and published evidence live behind mu; ballot handling is
// delegated to the quorum store, which has its own locking.
type Network struct {
	cfg      Config
	redactor Redactor
	log      *zap.Logger
	metrics  *metrics.Network
	votes    *quorum.Store

	mu         sync.RWMutex
	members    map[string]*Node
	published  map[string]*AnonymizedEvidence
	benchmarks map[string]*benchmarkSeries
}

// New creates an empty network. The redactor, logger and metrics recorder
// may be nil; a nil redactor means DefaultRedactor.
func New(cfg Config, redactor Redactor, log *zap.Logger, m *metrics.Network) (*Network, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	if redactor == nil {
		redactor = DefaultRedactor()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Network{
		cfg:        cfg,
		redactor:   redactor,
		log:        log,
		metrics:    m,
		votes:      quorum.NewStore(),
		members:    make(map[string]*Node),
		published:  make(map[string]*AnonymizedEvidence),
		benchmarks: make(map[string]*benchmarkSeries),
	}, nil
}

// Join adds an organization to the federation. New members start at full
// reputation.
func (n *Network) Join(orgID, endpoint string, publicKey ed25519.PublicKey, metadata map[string]string) (*Node, error) {
	if orgID == "" {
		return nil, ErrEmptyOrgID
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.members[orgID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyMember, orgID)
	}

	// Copy on write so the stored node never aliases the caller's map.
	node := (&Node{
		OrganizationID:   orgID,
		EvidenceEndpoint: endpoint,
		PublicKey:        publicKey,
		ReputationScore:  1.0,
		JoinedAt:         time.Now().UTC(),
		Metadata:         metadata,
	}).copy()
	n.members[orgID] = node

	n.log.Info("organization joined",
		zap.String("org", orgID),
		zap.String("endpoint", endpoint),
		zap.Int("members", len(n.members)),
	)
	return node.copy(), nil
}

// Leave removes an organization. It is idempotent and reports whether a
// removal happened. Published evidence and benchmark samples survive the
// departure.
func (n *Network) Leave(orgID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.members[orgID]; !ok {
		return false
	}
	delete(n.members, orgID)
	n.log.Info("organization left", zap.String("org", orgID), zap.Int("members", len(n.members)))
	return true
}

// Member returns a copy of the member node, or false if the org is unknown.
func (n *Network) Member(orgID string) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	node, ok := n.members[orgID]
	if !ok {
		return nil, false
	}
	return node.copy(), true
}

// Members returns copies of all member nodes sorted by organization id.
func (n *Network) Members() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Node, 0, len(n.members))
	for _, node := range n.members {
		out = append(out, node.copy())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OrganizationID < out[j].OrganizationID
	})
	return out
}

// Size returns the number of member organizations.
func (n *Network) Size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.members)
}

// UpdateReputation adjusts a member's reputation by delta, clamped to
// [0,1], and returns the new score.
func (n *Network) UpdateReputation(orgID string, delta float64) (float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	node, ok := n.members[orgID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotAMember, orgID)
	}
	node.ReputationScore = clamp01(node.ReputationScore + delta)
	return node.ReputationScore, nil
}

// Publish redacts and projects an evidence record per the privacy level and
// stores the resulting summary, keyed by the record id (or its content
// fingerprint when no id was supplied). Publishing the same evidence id
// again overwrites the earlier summary.
func (n *Network) Publish(rec types.Record, orgID string, level PrivacyLevel) (*AnonymizedEvidence, error) {
	if !level.Valid() {
		n.metrics.ObservePublish(string(level), ErrBadPrivacyLevel)
		return nil, fmt.Errorf("%w: %q", ErrBadPrivacyLevel, level)
	}

	n.mu.RLock()
	_, member := n.members[orgID]
	n.mu.RUnlock()
	if !member {
		n.metrics.ObservePublish(string(level), ErrNotAMember)
		return nil, fmt.Errorf("%w: %s", ErrNotAMember, orgID)
	}

	redacted := n.redactor.Redact(rec, level)
	summary := project(redacted, level, hashOrgID(orgID))

	n.mu.Lock()
	n.published[summary.EvidenceID] = summary
	n.mu.Unlock()

	n.metrics.ObservePublish(string(level), nil)
	n.log.Info("evidence published",
		zap.String("evidence_id", summary.EvidenceID),
		zap.String("type", summary.EvidenceType),
		zap.String("privacy_level", string(level)),
		zap.String("source_hash", summary.SourceHash),
	)
	return summary.Copy(), nil
}

// Published returns a copy of a published summary by evidence id.
func (n *Network) Published(evidenceID string) (*AnonymizedEvidence, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	e, ok := n.published[evidenceID]
	if !ok {
		return nil, false
	}
	return e.Copy(), true
}

// Query returns all published summaries, optionally filtered by evidence
// type, sorted by evidence id.
func (n *Network) Query(evidenceType string) []*AnonymizedEvidence {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var out []*AnonymizedEvidence
	for _, e := range n.published {
		if evidenceType != "" && e.EvidenceType != evidenceType {
			continue
		}
		out = append(out, e.Copy())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EvidenceID < out[j].EvidenceID
	})
	return out
}

// SubmitValidationVote casts a member's vote on a published evidence record.
// The vote weight is the reporting confidence in [0,1].
func (n *Network) SubmitValidationVote(evidenceID, orgID string, accept bool, confidence float64) error {
	if confidence < 0 || confidence > 1 || confidence != confidence {
		return ErrBadConfidence
	}

	n.mu.RLock()
	_, member := n.members[orgID]
	n.mu.RUnlock()
	if !member {
		return fmt.Errorf("%w: %s", ErrNotAMember, orgID)
	}

	return n.votes.Submit(evidenceID, orgID, accept, confidence)
}

// EvidenceConsensus evaluates federation consensus on a published evidence
// record under the configured quorum parameters.
func (n *Network) EvidenceConsensus(evidenceID string) quorum.Result {
	res := n.votes.Check(evidenceID, n.cfg.MinVoters, n.cfg.Threshold)
	n.metrics.ObserveConsensusCheck(res.HasConsensus)
	return res
}

// EvidenceVotes returns the raw ballot list for a published evidence record.
func (n *Network) EvidenceVotes(evidenceID string) []quorum.Ballot {
	return n.votes.Votes(evidenceID)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
