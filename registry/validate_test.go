package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledgerberry/types"
)

func sealedBlock(t *testing.T, index uint64, prevHash string) *types.Block {
	t.Helper()
	b := types.NewBlock(index, prevHash, []types.Record{
		types.NewRecord("test_report", map[string]interface{}{"passed": 10.0}),
	}, time.Now())
	b.Seal()
	return b
}

func TestValidateBlockValid(t *testing.T) {
	prev := types.GenesisBlock(time.Now())
	b := sealedBlock(t, 1, prev.Hash)

	res := ValidateBlock(b, prev)
	require.True(t, res.IsValid)
	require.Empty(t, res.Errors)
}

func TestValidateBlockHashMismatch(t *testing.T) {
	b := sealedBlock(t, 1, "prev")
	b.Hash = "forged"

	res := ValidateBlock(b, nil)
	require.False(t, res.IsValid)
	require.Contains(t, res.Errors, ErrStrHashMismatch)
}

func TestValidateBlockChainLinkage(t *testing.T) {
	prev := types.GenesisBlock(time.Now())

	b := sealedBlock(t, 5, "wrong-parent")
	res := ValidateBlock(b, prev)
	require.False(t, res.IsValid)
	require.Contains(t, res.Errors, ErrStrPrevHashMismatch)
	require.Contains(t, res.Errors, ErrStrIndexGap)

	// Without a parent supplied, linkage is not checked.
	res = ValidateBlock(b, nil)
	require.True(t, res.IsValid)
}

func TestValidateBlockNoEvidence(t *testing.T) {
	b := types.NewBlock(1, "prev", nil, time.Now())
	b.Seal()

	res := ValidateBlock(b, nil)
	require.False(t, res.IsValid)
	require.Contains(t, res.Errors, ErrStrNoEvidence)
}

func TestValidateBlockBadTimestamp(t *testing.T) {
	b := sealedBlock(t, 1, "prev")
	b.Timestamp = "yesterday-ish"
	b.Seal()

	res := ValidateBlock(b, nil)
	require.False(t, res.IsValid)
	require.Contains(t, res.Errors, ErrStrBadTimestamp)
}

func TestValidateBlockCollectsAllErrors(t *testing.T) {
	b := &types.Block{
		Index:        7,
		Timestamp:    "garbage",
		PreviousHash: "nope",
		Hash:         "forged",
	}
	prev := types.GenesisBlock(time.Now())

	res := ValidateBlock(b, prev)
	require.False(t, res.IsValid)
	require.ElementsMatch(t, []string{
		ErrStrHashMismatch,
		ErrStrPrevHashMismatch,
		ErrStrIndexGap,
		ErrStrNoEvidence,
		ErrStrBadTimestamp,
	}, res.Errors)
}
