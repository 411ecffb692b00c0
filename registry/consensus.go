package registry

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/blockberries/ledgerberry/quorum"
)

// ErrBadSignature is returned when a signed vote does not verify against
// the validator's registered public key.
var ErrBadSignature = errors.New("vote signature verification failed")

// ErrNoPublicKey is returned when a signed vote is submitted for a
// validator that registered without a key.
var ErrNoPublicKey = errors.New("validator has no public key")

// SubmitBlockVote records a validator's vote on a block hash. The ballot
// weight is the validator's current stake; if every voter has zero stake
// the quorum store falls back to an unweighted majority.
func (r *Registry) SubmitBlockVote(blockHash, validatorID string, accept bool) error {
	r.mu.RLock()
	v, ok := r.validators[validatorID]
	var stake float64
	if ok {
		stake = v.Stake
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownValidator, validatorID)
	}

	return r.votes.Submit(blockHash, validatorID, accept, stake)
}

// SubmitSignedBlockVote verifies an ed25519 signature over the vote
// payload before recording it. The signed message is the concatenation
// produced by VoteMessage.
func (r *Registry) SubmitSignedBlockVote(blockHash, validatorID string, accept bool, sig []byte) error {
	r.mu.RLock()
	v, ok := r.validators[validatorID]
	var key ed25519.PublicKey
	if ok {
		key = v.PublicKey
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownValidator, validatorID)
	}
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: %s", ErrNoPublicKey, validatorID)
	}
	if !ed25519.Verify(key, VoteMessage(blockHash, validatorID, accept), sig) {
		return fmt.Errorf("%w: %s", ErrBadSignature, validatorID)
	}

	return r.SubmitBlockVote(blockHash, validatorID, accept)
}

// VoteMessage builds the canonical byte payload a validator signs when
// voting on a block hash.
func VoteMessage(blockHash, validatorID string, accept bool) []byte {
	verdict := byte(0)
	if accept {
		verdict = 1
	}
	msg := make([]byte, 0, len(blockHash)+len(validatorID)+2)
	msg = append(msg, blockHash...)
	msg = append(msg, '/')
	msg = append(msg, validatorID...)
	msg = append(msg, verdict)
	return msg
}

// BlockConsensus evaluates consensus on a block hash with the registry's
// configured parameters.
func (r *Registry) BlockConsensus(blockHash string) quorum.Result {
	r.mu.RLock()
	params := r.params
	r.mu.RUnlock()
	return r.votes.Check(blockHash, params.MinVoters, params.Threshold)
}

// ResetBlockVotes discards all ballots for a block hash.
func (r *Registry) ResetBlockVotes(blockHash string) {
	r.votes.Reset(blockHash)
}

// BlockVotes returns the raw ballots for a block hash, for audit logging.
func (r *Registry) BlockVotes(blockHash string) []quorum.Ballot {
	return r.votes.Votes(blockHash)
}
