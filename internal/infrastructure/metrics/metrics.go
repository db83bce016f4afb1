// Package metrics exposes the agent's Prometheus collectors.
//
// Every recording method is safe on a nil *Metrics so components can run
// without instrumentation in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartfarm"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Metrics struct {
	Registry *prometheus.Registry

	sensorValue      *prometheus.GaugeVec
	alarms           *prometheus.CounterVec
	actuations       *prometheus.CounterVec
	dispatchMisses   *prometheus.CounterVec
	thresholdUpdates *prometheus.CounterVec
	coordinatorRuns  *prometheus.CounterVec
	exports          *prometheus.CounterVec
	nodes            prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		sensorValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_value",
			Help:      "Last filtered sensor reading.",
		}, []string{"node_id", "device_id"}),
		alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_total",
			Help:      "Monitoring ticks that found a sensor in alarm, by channel.",
		}, []string{"node_id", "device_id", "channel"}),
		actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuations_total",
			Help:      "Actuator state changes issued by the automation dispatcher.",
		}, []string{"node_id", "actuator_id"}),
		dispatchMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_target_missing_total",
			Help:      "Automation targets that could not be found in the registry.",
		}, []string{"target"}),
		thresholdUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threshold_updates_total",
			Help:      "Recipe applications pushed by the threshold coordinator.",
		}, []string{"node_id", "result"}),
		coordinatorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coordinator_cycles_total",
			Help:      "Threshold coordinator evaluation cycles.",
		}, []string{"result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Snapshot exports per sink.",
		}, []string{"sink", "result"}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_nodes",
			Help:      "Nodes in the registry.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sensorValue,
		m.alarms,
		m.actuations,
		m.dispatchMisses,
		m.thresholdUpdates,
		m.coordinatorRuns,
		m.exports,
		m.nodes,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) SetSensorValue(nodeID, deviceID string, v float64) {
	if m == nil {
		return
	}
	m.sensorValue.WithLabelValues(nodeID, deviceID).Set(v)
}

func (m *Metrics) IncAlarm(nodeID, deviceID string, low, high bool) {
	if m == nil {
		return
	}
	if low {
		m.alarms.WithLabelValues(nodeID, deviceID, "low").Inc()
	}
	if high {
		m.alarms.WithLabelValues(nodeID, deviceID, "high").Inc()
	}
}

func (m *Metrics) IncActuation(nodeID, actuatorID string) {
	if m == nil {
		return
	}
	m.actuations.WithLabelValues(nodeID, actuatorID).Inc()
}

func (m *Metrics) IncDispatchMiss(target string) {
	if m == nil {
		return
	}
	m.dispatchMisses.WithLabelValues(target).Inc()
}

func (m *Metrics) IncThresholdUpdate(nodeID string, ok bool) {
	if m == nil {
		return
	}
	m.thresholdUpdates.WithLabelValues(nodeID, result(ok)).Inc()
}

func (m *Metrics) IncCoordinatorCycle(ok bool) {
	if m == nil {
		return
	}
	m.coordinatorRuns.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) IncExport(sink string, ok bool) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(sink, result(ok)).Inc()
}

func (m *Metrics) SetNodes(n int) {
	if m == nil {
		return
	}
	m.nodes.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}
