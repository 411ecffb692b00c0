package quorum

import (
	"errors"
	"sync"
	"time"
)

// Errors
var (
	ErrEmptySubject = errors.New("empty subject id")
	ErrEmptyVoter   = errors.New("empty voter id")
	ErrBadWeight    = errors.New("weight must be non-negative and finite")
)

// epsilon guards the threshold comparison against floating point noise at
// the boundary (e.g. 2/3 agreement checked against a 0.666... threshold).
const epsilon = 1e-9

// ReasonInsufficientVoters is reported when fewer than the required number
// of ballots exist for a subject.
const ReasonInsufficientVoters = "insufficient voters"

// Ballot is a single weighted vote on a subject.
type Ballot struct {
	VoterID string    `json:"voter_id"`
	Accept  bool      `json:"accept"`
	Weight  float64   `json:"weight"`
	CastAt  time.Time `json:"cast_at"`
}

// Result is the outcome of a consensus check. Votes carries the raw ballot
// list for audit logging.
type Result struct {
	HasConsensus bool     `json:"has_consensus"`
	Agreement    float64  `json:"agreement"`
	Votes        []Ballot `json:"votes"`
	Reason       string   `json:"reason,omitempty"`
}

// Store is a ballot book keyed by subject id. Safe for concurrent use;
// appends for the same subject are serialized.
type Store struct {
	mu      sync.RWMutex
	ballots map[string][]Ballot
}

// NewStore creates an empty ballot store.
func NewStore() *Store {
	return &Store{
		ballots: make(map[string][]Ballot),
	}
}

// Submit appends a ballot for the subject. All entries accumulate; there
// is no last-writer-wins.
func (s *Store) Submit(subjectID, voterID string, accept bool, weight float64) error {
	if subjectID == "" {
		return ErrEmptySubject
	}
	if voterID == "" {
		return ErrEmptyVoter
	}
	if weight < 0 || weight != weight || weight > maxWeight {
		return ErrBadWeight
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ballots[subjectID] = append(s.ballots[subjectID], Ballot{
		VoterID: voterID,
		Accept:  accept,
		Weight:  weight,
		CastAt:  time.Now().UTC(),
	})
	return nil
}

// maxWeight rejects pathological weights (including +Inf) that would make
// the agreement fraction meaningless.
const maxWeight = 1e18

// Check evaluates consensus for a subject.
//
// Fewer than minVoters ballots is not an error: it is a valid
// "no result yet" state, reported with ReasonInsufficientVoters.
// When the total weight is zero, every ballot counts as weight 1.0
// (fallback to simple majority).
func (s *Store) Check(subjectID string, minVoters int, threshold float64) Result {
	votes := s.Votes(subjectID)

	if len(votes) < minVoters {
		return Result{
			HasConsensus: false,
			Votes:        votes,
			Reason:       ReasonInsufficientVoters,
		}
	}

	var total, accepted float64
	for _, b := range votes {
		total += b.Weight
		if b.Accept {
			accepted += b.Weight
		}
	}

	if total == 0 {
		total = float64(len(votes))
		accepted = 0
		for _, b := range votes {
			if b.Accept {
				accepted++
			}
		}
	}

	agreement := accepted / total
	return Result{
		HasConsensus: agreement >= threshold-epsilon,
		Agreement:    agreement,
		Votes:        votes,
	}
}

// Votes returns a copy of the ballot list for a subject, in submission
// order. Returns nil if the subject is unknown.
func (s *Store) Votes(subjectID string) []Ballot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.ballots[subjectID]
	if stored == nil {
		return nil
	}
	votes := make([]Ballot, len(stored))
	copy(votes, stored)
	return votes
}

// VoterCount returns the number of ballots cast for a subject.
func (s *Store) VoterCount(subjectID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ballots[subjectID])
}

// Reset discards all ballots for a subject.
func (s *Store) Reset(subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ballots, subjectID)
}

// Subjects returns the ids of all subjects with at least one ballot.
func (s *Store) Subjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ballots))
	for id := range s.ballots {
		out = append(out, id)
	}
	return out
}
