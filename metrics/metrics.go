package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledgerberry"

var (
	sealTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "seal_total",
		Help:      "Count of block seal attempts.",
	}, []string{"chain", "status"})

	sealDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "seal_duration_seconds",
		Help:      "Duration of block seal attempts including mining.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain", "status"})

	miningIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "mining_iterations",
		Help:      "Nonce candidates tried per seal attempt.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 16),
	}, []string{"chain"})

	tamperScanTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "tamper_scan_total",
		Help:      "Count of tamper detection scans.",
	}, []string{"chain"})

	tamperFlaggedBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "tamper_flagged_blocks_total",
		Help:      "Blocks flagged by tamper detection scans.",
	}, []string{"chain"})

	consensusChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consensus",
		Name:      "checks_total",
		Help:      "Count of consensus checks by outcome.",
	}, []string{"domain", "outcome"})

	publishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "network",
		Name:      "publish_total",
		Help:      "Count of evidence publications by privacy level.",
	}, []string{"network", "privacy_level", "status"})

	benchmarkContributionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "network",
		Name:      "benchmark_contributions_total",
		Help:      "Count of benchmark contributions by acceptance.",
	}, []string{"network", "accepted"})
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Ledger records ledger-side observations. A nil *Ledger is a no-op.
type Ledger struct {
	chain string
}

// NewLedger constructs a ledger recorder labeled with the chain id.
func NewLedger(chain string) *Ledger {
	if chain == "" {
		chain = "unknown"
	}
	return &Ledger{chain: chain}
}

// ObserveSeal records a seal attempt.
func (m *Ledger) ObserveSeal(err error, iterations uint64, start time.Time) {
	if m == nil {
		return
	}
	st := status(err)
	sealTotal.WithLabelValues(m.chain, st).Inc()
	sealDuration.WithLabelValues(m.chain, st).Observe(time.Since(start).Seconds())
	if iterations > 0 {
		miningIterations.WithLabelValues(m.chain).Observe(float64(iterations))
	}
}

// ObserveTamperScan records a tamper detection scan and how many blocks it
// flagged.
func (m *Ledger) ObserveTamperScan(flagged int) {
	if m == nil {
		return
	}
	tamperScanTotal.WithLabelValues(m.chain).Inc()
	if flagged > 0 {
		tamperFlaggedBlocks.WithLabelValues(m.chain).Add(float64(flagged))
	}
}

// ObserveConsensusCheck records a block consensus check outcome.
func (m *Ledger) ObserveConsensusCheck(hasConsensus bool) {
	if m == nil {
		return
	}
	consensusChecksTotal.WithLabelValues("block", outcome(hasConsensus)).Inc()
}

// Network records federation-side observations. A nil *Network is a no-op.
type Network struct {
	network string
}

// NewNetwork constructs a network recorder labeled with the network id.
func NewNetwork(network string) *Network {
	if network == "" {
		network = "unknown"
	}
	return &Network{network: network}
}

// ObservePublish records an evidence publication attempt.
func (m *Network) ObservePublish(privacyLevel string, err error) {
	if m == nil {
		return
	}
	publishTotal.WithLabelValues(m.network, privacyLevel, status(err)).Inc()
}

// ObserveBenchmarkContribution records whether a benchmark sample was
// accepted or rejected as a duplicate.
func (m *Network) ObserveBenchmarkContribution(accepted bool) {
	if m == nil {
		return
	}
	benchmarkContributionsTotal.WithLabelValues(m.network, boolLabel(accepted)).Inc()
}

// ObserveConsensusCheck records a federated consensus check outcome.
func (m *Network) ObserveConsensusCheck(hasConsensus bool) {
	if m == nil {
		return
	}
	consensusChecksTotal.WithLabelValues("network", outcome(hasConsensus)).Inc()
}

func outcome(hasConsensus bool) string {
	if hasConsensus {
		return "consensus"
	}
	return "no_consensus"
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
