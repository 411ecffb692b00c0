package registry

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndDeregister(t *testing.T) {
	r := New()

	v, err := r.Register("val-1", nil, 100)
	require.NoError(t, err)
	require.Equal(t, "val-1", v.ID)
	require.Equal(t, 1.0, v.Reputation)
	require.False(t, v.JoinedAt.IsZero())

	_, err = r.Register("val-1", nil, 50)
	require.ErrorIs(t, err, ErrDuplicateValidator)

	require.True(t, r.Deregister("val-1"))
	require.False(t, r.Deregister("val-1"))
	require.Equal(t, 0, r.Size())
}

func TestRegisterRejectsBadInput(t *testing.T) {
	r := New()

	_, err := r.Register("", nil, 0)
	require.ErrorIs(t, err, ErrEmptyValidatorID)

	_, err = r.Register("val-1", nil, -5)
	require.ErrorIs(t, err, ErrNegativeStake)
}

func TestSetStake(t *testing.T) {
	r := New()
	_, err := r.Register("val-1", nil, 10)
	require.NoError(t, err)

	require.NoError(t, r.SetStake("val-1", 25))
	v, ok := r.Get("val-1")
	require.True(t, ok)
	require.Equal(t, 25.0, v.Stake)

	require.ErrorIs(t, r.SetStake("val-1", -1), ErrNegativeStake)
	require.ErrorIs(t, r.SetStake("missing", 1), ErrUnknownValidator)

	require.Equal(t, 25.0, r.TotalStake())
}

func TestAdjustReputationClamps(t *testing.T) {
	r := New()
	_, err := r.Register("val-1", nil, 10)
	require.NoError(t, err)

	rep, err := r.AdjustReputation("val-1", 10.0)
	require.NoError(t, err)
	require.Equal(t, 1.0, rep)

	rep, err = r.AdjustReputation("val-1", -100.0)
	require.NoError(t, err)
	require.Equal(t, 0.0, rep)

	rep, err = r.AdjustReputation("val-1", 0.4)
	require.NoError(t, err)
	require.InDelta(t, 0.4, rep, 1e-9)

	_, err = r.AdjustReputation("missing", 0.1)
	require.ErrorIs(t, err, ErrUnknownValidator)
}

func TestListSortedAndCopied(t *testing.T) {
	r := New()
	for _, id := range []string{"charlie", "alice", "bob"} {
		_, err := r.Register(id, nil, 1)
		require.NoError(t, err)
	}

	vals := r.List()
	require.Len(t, vals, 3)
	require.Equal(t, "alice", vals[0].ID)
	require.Equal(t, "bob", vals[1].ID)
	require.Equal(t, "charlie", vals[2].ID)

	vals[0].Stake = 999
	stored, _ := r.Get("alice")
	require.Equal(t, 1.0, stored.Stake)
}

func TestStakeWeightedBlockConsensus(t *testing.T) {
	r := New()
	_, err := r.Register("whale", nil, 100)
	require.NoError(t, err)
	_, err = r.Register("v2", nil, 50)
	require.NoError(t, err)
	_, err = r.Register("v3", nil, 50)
	require.NoError(t, err)

	require.NoError(t, r.SubmitBlockVote("hash-1", "whale", false))
	require.NoError(t, r.SubmitBlockVote("hash-1", "v2", true))
	require.NoError(t, r.SubmitBlockVote("hash-1", "v3", true))

	res := r.BlockConsensus("hash-1")
	require.False(t, res.HasConsensus)
	require.InDelta(t, 0.5, res.Agreement, 1e-9)
	require.Len(t, res.Votes, 3)
}

func TestZeroStakeFallback(t *testing.T) {
	r := New()
	for _, id := range []string{"v1", "v2", "v3"} {
		_, err := r.Register(id, nil, 0)
		require.NoError(t, err)
	}

	require.NoError(t, r.SubmitBlockVote("h", "v1", true))
	require.NoError(t, r.SubmitBlockVote("h", "v2", true))
	require.NoError(t, r.SubmitBlockVote("h", "v3", false))

	res := r.BlockConsensus("h")
	require.True(t, res.HasConsensus)
	require.InDelta(t, 2.0/3.0, res.Agreement, 1e-9)
}

func TestSubmitBlockVoteUnknownValidator(t *testing.T) {
	r := New()
	require.ErrorIs(t, r.SubmitBlockVote("h", "ghost", true), ErrUnknownValidator)
}

func TestResetBlockVotes(t *testing.T) {
	r := New()
	_, err := r.Register("v1", nil, 10)
	require.NoError(t, err)
	require.NoError(t, r.SubmitBlockVote("h", "v1", true))

	r.ResetBlockVotes("h")
	require.Empty(t, r.BlockVotes("h"))
}

func TestSignedBlockVote(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	r := New()
	_, err = r.Register("signer", pub, 10)
	require.NoError(t, err)
	_, err = r.Register("keyless", nil, 10)
	require.NoError(t, err)

	sig := ed25519.Sign(priv, VoteMessage("h", "signer", true))
	require.NoError(t, r.SubmitSignedBlockVote("h", "signer", true, sig))

	// Signature over a different verdict must not verify.
	require.ErrorIs(t, r.SubmitSignedBlockVote("h", "signer", false, sig), ErrBadSignature)

	require.ErrorIs(t, r.SubmitSignedBlockVote("h", "keyless", true, sig), ErrNoPublicKey)
	require.ErrorIs(t, r.SubmitSignedBlockVote("h", "ghost", true, sig), ErrUnknownValidator)
}
