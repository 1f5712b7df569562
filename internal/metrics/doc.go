// Package metrics aggregates request outcomes for a load test run.
//
// # Aggregator
//
// The [Aggregator] is shared by every worker of a single run:
//
//	agg := metrics.NewAggregator(metrics.AggregatorOptions{})
//	agg.Record(outcome)
//	stats := agg.Snapshot(elapsed)
//
// Record takes one short critical section per outcome. Latencies go into an
// HDR histogram; the three most recent successful responses are kept as
// 200-byte prefixes for diagnostics.
//
// # Prometheus
//
// [NewPromObserver] registers loadtest_requests_total and
// loadtest_requests_failed on a caller-supplied registry. Pass it as
// [AggregatorOptions.Observer] to mirror every recorded outcome.
package metrics
