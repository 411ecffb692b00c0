package network

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// benchmarkSeries is the sample list for one metric plus the hashed
// identities that have already contributed to it.
type benchmarkSeries struct {
	samples      []float64
	contributors map[string]struct{}
}

// BenchmarkStats summarizes the samples contributed for one metric.
type BenchmarkStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
}

// ContributeBenchmark records one sample per metric for the contributing
// organization. A metric the org's hashed identity has already contributed
// to is skipped, so repeat submissions cannot skew the aggregates.
func (n *Network) ContributeBenchmark(orgID string, values map[string]float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.members[orgID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotAMember, orgID)
	}

	contributor := hashOrgID(orgID)
	for metric, value := range values {
		series, ok := n.benchmarks[metric]
		if !ok {
			series = &benchmarkSeries{contributors: make(map[string]struct{})}
			n.benchmarks[metric] = series
		}
		if _, dup := series.contributors[contributor]; dup {
			n.metrics.ObserveBenchmarkContribution(false)
			n.log.Debug("duplicate benchmark contribution skipped",
				zap.String("metric", metric),
				zap.String("contributor", contributor),
			)
			continue
		}
		series.contributors[contributor] = struct{}{}
		series.samples = append(series.samples, value)
		n.metrics.ObserveBenchmarkContribution(true)
	}
	return nil
}

// BenchmarkStats returns the aggregate for a metric, or false if no samples
// exist for it.
func (n *Network) BenchmarkStats(metric string) (BenchmarkStats, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	series, ok := n.benchmarks[metric]
	if !ok || len(series.samples) == 0 {
		return BenchmarkStats{}, false
	}

	sorted := append([]float64(nil), series.samples...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	count := len(sorted)
	median := sorted[count/2]
	if count%2 == 0 {
		median = (sorted[count/2-1] + sorted[count/2]) / 2
	}

	return BenchmarkStats{
		Count:  count,
		Min:    sorted[0],
		Max:    sorted[count-1],
		Avg:    sum / float64(count),
		Median: median,
	}, true
}

// BenchmarkMetrics returns the names of all metrics with at least one
// sample, sorted.
func (n *Network) BenchmarkMetrics() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]string, 0, len(n.benchmarks))
	for metric, series := range n.benchmarks {
		if len(series.samples) > 0 {
			out = append(out, metric)
		}
	}
	sort.Strings(out)
	return out
}
