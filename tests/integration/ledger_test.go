package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledgerberry/journal"
	"github.com/blockberries/ledgerberry/ledger"
	"github.com/blockberries/ledgerberry/network"
	"github.com/blockberries/ledgerberry/registry"
	"github.com/blockberries/ledgerberry/signer"
	"github.com/blockberries/ledgerberry/types"
)

type testValidator struct {
	id   string
	keys *signer.KeyPair
}

func setupValidators(t *testing.T, reg *registry.Registry, dir string, ids ...string) []testValidator {
	t.Helper()

	vals := make([]testValidator, 0, len(ids))
	for _, id := range ids {
		kp, err := signer.LoadOrGenerate(filepath.Join(dir, id+"_key.json"))
		require.NoError(t, err)
		_, err = reg.Register(id, kp.PublicKey(), 100)
		require.NoError(t, err)
		vals = append(vals, testValidator{id: id, keys: kp})
	}
	return vals
}

// Full ledger lifecycle: evidence in, sealed block out, signed validator
// votes to consensus, journal restart, tamper scan.
func TestLedgerLifecycle(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "chain.journal")

	jrnl, err := journal.Open(journalPath, true)
	require.NoError(t, err)

	cfg := ledger.DefaultConfig()
	cfg.ChainID = "integration-chain"
	cfg.Difficulty = 2

	reg := registry.New()
	vals := setupValidators(t, reg, dir, "val1", "val2", "val3")

	led, err := ledger.New(cfg, reg, jrnl, nil, nil)
	require.NoError(t, err)

	led.Enqueue(types.NewRecord("test_report", map[string]interface{}{
		"passed": 120.0, "failed": 2.0, "coverage": 87.5,
	}))
	led.Enqueue(types.NewRecord("scan_finding", map[string]interface{}{
		"severity": "high", "rule": "G401",
	}))

	block, err := led.Seal(context.Background())
	require.NoError(t, err)
	require.True(t, types.HasLeadingZeros(block.Hash, cfg.Difficulty))
	require.Equal(t, 0, led.Pending())

	// Each validator signs and submits its verdict on the sealed block.
	for _, v := range vals {
		accept := v.id != "val3"
		sig, err := v.keys.Sign(registry.VoteMessage(block.Hash, v.id, accept))
		require.NoError(t, err)
		require.NoError(t, reg.SubmitSignedBlockVote(block.Hash, v.id, accept, sig))
	}

	res := led.BlockConsensus(block.Hash)
	require.True(t, res.HasConsensus)
	require.InDelta(t, 2.0/3.0, res.Agreement, 1e-9)

	// Forged signature never lands a ballot.
	forged := make([]byte, 64)
	err = reg.SubmitSignedBlockVote(block.Hash, "val1", true, forged)
	require.Error(t, err)
	require.Len(t, reg.BlockVotes(block.Hash), 3)

	require.NoError(t, jrnl.Close())

	// Restart from the journal.
	blocks, err := journal.Replay(journalPath)
	require.NoError(t, err)
	restored, err := ledger.NewFromBlocks(cfg, reg, blocks, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, led.Latest().Hash, restored.Latest().Hash)
	require.NoError(t, restored.VerifyChain())
	require.Empty(t, restored.DetectTampering())

	hits := restored.Search("scan_finding", 0)
	require.Len(t, hits, 1)
	require.Equal(t, block.Index, hits[0].BlockIndex)
}

// Federation flow: members publish redacted evidence, vote with confidence
// weights, and the sealed ledger records the accepted summary.
func TestFederatedEvidenceFlow(t *testing.T) {
	net, err := network.New(network.DefaultConfig(), nil, nil, nil)
	require.NoError(t, err)

	for _, org := range []string{"org-a", "org-b", "org-c"} {
		_, err := net.Join(org, "https://"+org+".example/evidence", nil, nil)
		require.NoError(t, err)
	}

	finding := types.NewRecord("scan_finding", map[string]interface{}{
		"complexity": 5.0,
		"coverage":   90.0,
		"source":     "org-a/private-repo",
		"patterns":   []interface{}{"sql_injection"},
	})

	pub, err := net.Publish(finding, "org-a", network.PrivacyAnonymized)
	require.NoError(t, err)
	require.NotContains(t, pub.QualityMetrics, "source")
	require.NotEqual(t, "org-a", pub.SourceHash)

	require.NoError(t, net.SubmitValidationVote(pub.EvidenceID, "org-a", true, 0.95))
	require.NoError(t, net.SubmitValidationVote(pub.EvidenceID, "org-b", true, 0.8))
	require.NoError(t, net.SubmitValidationVote(pub.EvidenceID, "org-c", false, 0.3))

	res := net.EvidenceConsensus(pub.EvidenceID)
	require.True(t, res.HasConsensus)

	// Accepted summaries feed the shared ledger.
	cfg := ledger.DefaultConfig()
	cfg.ChainID = "federation-chain"
	cfg.Difficulty = 1
	led, err := ledger.New(cfg, registry.New(), nil, nil, nil)
	require.NoError(t, err)

	shared := types.NewRecord("scan_finding", map[string]interface{}{
		"evidence_id": pub.EvidenceID,
		"source_hash": pub.SourceHash,
		"agreement":   res.Agreement,
	})
	block, err := led.SealBatch(context.Background(), []types.Record{shared})
	require.NoError(t, err)
	require.NoError(t, led.VerifyChain())

	hit, ok := led.EvidenceByFingerprint(shared.Fingerprint())
	require.True(t, ok)
	require.Equal(t, block.Index, hit.BlockIndex)

	// Benchmark aggregates across the federation.
	for org, coverage := range map[string]float64{"org-a": 87.5, "org-b": 92.0, "org-c": 78.0} {
		require.NoError(t, net.ContributeBenchmark(org, map[string]float64{"coverage": coverage}))
	}
	stats, ok := net.BenchmarkStats("coverage")
	require.True(t, ok)
	require.Equal(t, 3, stats.Count)
	require.Equal(t, 87.5, stats.Median)
}
