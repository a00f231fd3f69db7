package scraping

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dev.hon.one/routewatch/common"
	"dev.hon.one/routewatch/util"
)

// Collection results, as metric label values.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics - Collection metrics. A nil *Metrics records nothing.
type Metrics struct {
	collections        *prometheus.CounterVec
	collectionDuration *prometheus.HistogramVec
	probes             *prometheus.CounterVec
	cycleDuration      prometheus.Gauge
	cycleTimestamp     prometheus.Gauge
	cycleDevices       prometheus.Gauge
	cycleFailures      prometheus.Gauge
}

// NewMetrics - Create and register collection metrics.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	namespace := common.PrometheusNamespace
	return &Metrics{
		collections:        util.NewCounterVec(registry, namespace, "collector", "collections_total", "Device collections by snapshot kind and result.", "kind", "result"),
		collectionDuration: util.NewHistogramVec(registry, namespace, "collector", "collection_duration_seconds", "Device collection duration by snapshot kind.", "kind"),
		probes:             util.NewCounterVec(registry, namespace, "collector", "probes_total", "Reachability probes by result.", "result"),
		cycleDuration:      util.NewGauge(registry, namespace, "scheduler", "cycle_duration_seconds", "Duration of the last collection cycle.", nil),
		cycleTimestamp:     util.NewGauge(registry, namespace, "scheduler", "cycle_timestamp_seconds", "Completion time of the last collection cycle.", nil),
		cycleDevices:       util.NewGauge(registry, namespace, "scheduler", "cycle_devices", "Devices enumerated in the last collection cycle.", nil),
		cycleFailures:      util.NewGauge(registry, namespace, "scheduler", "cycle_failures", "Failed device collections in the last collection cycle.", nil),
	}
}

func (metrics *Metrics) observeCollection(kind common.SnapshotKind, duration time.Duration, err error) {
	if metrics == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	metrics.collections.WithLabelValues(string(kind), result).Inc()
	metrics.collectionDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

func (metrics *Metrics) observeProbe(reachable bool) {
	if metrics == nil {
		return
	}
	result := resultSuccess
	if !reachable {
		result = resultFailure
	}
	metrics.probes.WithLabelValues(result).Inc()
}

func (metrics *Metrics) observeCycle(result CycleResult) {
	if metrics == nil {
		return
	}
	metrics.cycleDuration.Set(result.Duration.Seconds())
	metrics.cycleTimestamp.Set(float64(result.Start.Add(result.Duration).Unix()))
	metrics.cycleDevices.Set(float64(result.Devices))
	metrics.cycleFailures.Set(float64(result.Failures))
}
