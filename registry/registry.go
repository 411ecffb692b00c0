package registry

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blockberries/ledgerberry/quorum"
)

// Errors
var (
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrUnknownValidator   = errors.New("unknown validator")
	ErrNegativeStake      = errors.New("stake must be non-negative")
	ErrEmptyValidatorID   = errors.New("validator id must not be empty")
)

// Validator is a stake-holding participant voting on block validity.
// Reputation is clamped to [0,1].
type Validator struct {
	ID         string            `json:"validator_id"`
	PublicKey  ed25519.PublicKey `json:"public_key,omitempty"`
	Stake      float64           `json:"stake"`
	Reputation float64           `json:"reputation"`
	JoinedAt   time.Time         `json:"joined_at"`
}

// Registry is the validator book. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]*Validator
	votes      *quorum.Store
	params     ConsensusParams
}

// ConsensusParams tunes block consensus checks.
type ConsensusParams struct {
	// MinVoters is the minimum number of ballots before consensus can be
	// reached.
	MinVoters int
	// Threshold is the required weighted agreement fraction.
	Threshold float64
}

// DefaultConsensusParams returns the default 2/3 block threshold.
func DefaultConsensusParams() ConsensusParams {
	return ConsensusParams{
		MinVoters: 1,
		Threshold: 2.0 / 3.0,
	}
}

// New creates an empty registry with default consensus parameters.
func New() *Registry {
	return NewWithParams(DefaultConsensusParams())
}

// NewWithParams creates an empty registry with the given parameters.
func NewWithParams(params ConsensusParams) *Registry {
	if params.MinVoters < 1 {
		params.MinVoters = 1
	}
	return &Registry{
		validators: make(map[string]*Validator),
		votes:      quorum.NewStore(),
		params:     params,
	}
}

// Register adds a validator. New validators start at full reputation.
func (r *Registry) Register(id string, publicKey ed25519.PublicKey, stake float64) (*Validator, error) {
	if id == "" {
		return nil, ErrEmptyValidatorID
	}
	if stake < 0 {
		return nil, fmt.Errorf("%w: %f", ErrNegativeStake, stake)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.validators[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateValidator, id)
	}

	v := &Validator{
		ID:         id,
		PublicKey:  append(ed25519.PublicKey(nil), publicKey...),
		Stake:      stake,
		Reputation: 1.0,
		JoinedAt:   time.Now().UTC(),
	}
	r.validators[id] = v
	return v.copy(), nil
}

// Deregister removes a validator. Reports whether removal occurred;
// removing an absent validator is not an error.
func (r *Registry) Deregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.validators[id]; !exists {
		return false
	}
	delete(r.validators, id)
	return true
}

// Get returns a copy of a validator.
func (r *Registry) Get(id string) (*Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.validators[id]
	if !ok {
		return nil, false
	}
	return v.copy(), true
}

// List returns all validators sorted by id.
func (r *Registry) List() []*Validator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Validator, 0, len(r.validators))
	for _, v := range r.validators {
		out = append(out, v.copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Size returns the number of registered validators.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.validators)
}

// SetStake updates a validator's stake.
func (r *Registry) SetStake(id string, stake float64) error {
	if stake < 0 {
		return fmt.Errorf("%w: %f", ErrNegativeStake, stake)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.validators[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownValidator, id)
	}
	v.Stake = stake
	return nil
}

// AdjustReputation applies a delta to a validator's reputation, clamped to
// [0,1].
func (r *Registry) AdjustReputation(id string, delta float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.validators[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownValidator, id)
	}

	v.Reputation = clamp01(v.Reputation + delta)
	return v.Reputation, nil
}

// TotalStake returns the sum of all validator stakes.
func (r *Registry) TotalStake() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total float64
	for _, v := range r.validators {
		total += v.Stake
	}
	return total
}

func (v *Validator) copy() *Validator {
	c := *v
	c.PublicKey = append(ed25519.PublicKey(nil), v.PublicKey...)
	return &c
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
