// Package metrics exposes Prometheus collectors for the estimator
// families, mirroring the PrometheusCollectors() convention used elsewhere
// in the wider codebase this module was grown alongside.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "wssmrc"

// Estimator groups the counters and gauges shared by every estimator
// family (Olken++, SHARDS++ fixed-rate/fixed-size, CounterStacks++). The
// estimators do not reference or update it.
type Estimator struct {
	labels prometheus.Labels

	cardinalityEstimate *prometheus.GaugeVec
	evictions           *prometheus.CounterVec
	promotions          *prometheus.CounterVec
	merges              *prometheus.CounterVec
	thresholdShrinks    *prometheus.CounterVec
	requestsProcessed   *prometheus.CounterVec
}

// NewEstimator builds a collector set labeled by estimator family (e.g.
// "olken", "shards_fixed_rate", "shards_fixed_size", "counterstacks") and
// an instance name distinguishing concurrent runs against the same family.
func NewEstimator(family, instance string) *Estimator {
	labelNames := []string{"family", "instance"}
	labels := prometheus.Labels{"family": family, "instance": instance}

	e := &Estimator{
		labels: labels,
		cardinalityEstimate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "cardinality_estimate",
			Help:      "Current distinct-key cardinality estimate reported by the estimator.",
		}, labelNames),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "evictions_total",
			Help:      "TTL or capacity evictions performed by the estimator.",
		}, labelNames),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "promotions_total",
			Help:      "CounterStacks++ counter promotions (open accumulator retired into the bank).",
		}, labelNames),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "merges_total",
			Help:      "CounterStacks++ fork-join merge operations performed.",
		}, labelNames),
		thresholdShrinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "threshold_shrinks_total",
			Help:      "SHARDS++ fixed-size sampling-threshold shrink events.",
		}, labelNames),
		requestsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "requests_processed_total",
			Help:      "Total requests seen by the estimator, sampled or not.",
		}, labelNames),
	}
	return e
}

func (e *Estimator) SetCardinality(v float64) {
	e.cardinalityEstimate.With(e.labels).Set(v)
}

func (e *Estimator) IncEvictions(n int)        { e.evictions.With(e.labels).Add(float64(n)) }
func (e *Estimator) IncPromotions()            { e.promotions.With(e.labels).Inc() }
func (e *Estimator) IncMerges(n int)           { e.merges.With(e.labels).Add(float64(n)) }
func (e *Estimator) IncThresholdShrinks()      { e.thresholdShrinks.With(e.labels).Inc() }
func (e *Estimator) IncRequestsProcessed(n int) { e.requestsProcessed.With(e.labels).Add(float64(n)) }

// PrometheusCollectors returns every collector owned by this Estimator, for
// registration against a prometheus.Registerer.
func (e *Estimator) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		e.cardinalityEstimate,
		e.evictions,
		e.promotions,
		e.merges,
		e.thresholdShrinks,
		e.requestsProcessed,
	}
}
