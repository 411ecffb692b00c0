package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func delta(t *testing.T, collector prometheus.Collector, observe func()) float64 {
	t.Helper()

	before := testutil.ToFloat64(collector)
	observe()
	after := testutil.ToFloat64(collector)
	return after - before
}

func TestLedgerRecords(t *testing.T) {
	m := NewLedger("")
	start := time.Now().Add(-time.Second)

	if inc := delta(t, sealTotal.WithLabelValues("unknown", "success"), func() {
		m.ObserveSeal(nil, 42, start)
	}); inc != 1 {
		t.Fatalf("expected seal success increment, got %v", inc)
	}

	if inc := delta(t, sealTotal.WithLabelValues("unknown", "error"), func() {
		m.ObserveSeal(errors.New("boom"), 0, start)
	}); inc != 1 {
		t.Fatalf("expected seal error increment, got %v", inc)
	}

	if inc := delta(t, tamperFlaggedBlocks.WithLabelValues("unknown"), func() {
		m.ObserveTamperScan(3)
	}); inc != 3 {
		t.Fatalf("expected 3 flagged blocks, got %v", inc)
	}

	if inc := delta(t, consensusChecksTotal.WithLabelValues("block", "consensus"), func() {
		m.ObserveConsensusCheck(true)
	}); inc != 1 {
		t.Fatalf("expected block consensus increment, got %v", inc)
	}
}

func TestNetworkRecords(t *testing.T) {
	m := NewNetwork("fed-1")

	if inc := delta(t, publishTotal.WithLabelValues("fed-1", "anonymized", "success"), func() {
		m.ObservePublish("anonymized", nil)
	}); inc != 1 {
		t.Fatalf("expected publish increment, got %v", inc)
	}

	if inc := delta(t, benchmarkContributionsTotal.WithLabelValues("fed-1", "false"), func() {
		m.ObserveBenchmarkContribution(false)
	}); inc != 1 {
		t.Fatalf("expected rejected contribution increment, got %v", inc)
	}

	if inc := delta(t, consensusChecksTotal.WithLabelValues("network", "no_consensus"), func() {
		m.ObserveConsensusCheck(false)
	}); inc != 1 {
		t.Fatalf("expected network no_consensus increment, got %v", inc)
	}
}

func TestNilRecordersAreNoops(t *testing.T) {
	var l *Ledger
	var n *Network

	l.ObserveSeal(nil, 1, time.Now())
	l.ObserveTamperScan(1)
	l.ObserveConsensusCheck(true)
	n.ObservePublish("private", nil)
	n.ObserveBenchmarkContribution(true)
	n.ObserveConsensusCheck(true)
}
