package metrics

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "op_bridge"

type Metricer interface {
	RecordInfo(version string)
	RecordUp()

	RecordTransfer(amount, fee *uint256.Int)
	RecordTransferFailure(code string)
	RecordInbound(route string)
	RecordInboundFailure(code string)
	RecordDecodeFailure()
	RecordUnlock(amount *uint256.Int)
	RecordCustodyBalance(balance *uint256.Int)
	RecordPaused(paused bool)
}

type Metrics struct {
	ns       string
	registry *prometheus.Registry

	info *prometheus.GaugeVec
	up   prometheus.Gauge

	transfers        prometheus.Counter
	transferredValue prometheus.Counter
	feesCollected    prometheus.Counter
	transferFailures *prometheus.CounterVec

	inbound         *prometheus.CounterVec
	inboundFailures *prometheus.CounterVec
	decodeFailures  prometheus.Counter
	unlockedValue   prometheus.Counter

	custodyBalance prometheus.Gauge
	paused         prometheus.Gauge
}

var _ Metricer = (*Metrics)(nil)

func NewMetrics(procName string) *Metrics {
	if procName == "" {
		procName = "default"
	}
	ns := Namespace + "_" + procName

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &Metrics{
		ns:       ns,
		registry: registry,

		info: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "info",
			Help:      "Pseudo-metric tracking version and config info",
		}, []string{
			"version",
		}),
		up: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "up",
			Help:      "1 if the op-bridge has finished starting up",
		}),

		transfers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transfers_total",
			Help:      "Number of outbound transfers delivered to the queue",
		}),
		transferredValue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transferred_value_total",
			Help:      "Sum of outbound transfer amounts, as a float approximation",
		}),
		feesCollected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fees_total",
			Help:      "Sum of outbound fees, as a float approximation",
		}),
		transferFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transfer_failures_total",
			Help:      "Number of rejected outbound transfers by error code",
		}, []string{"code"}),

		inbound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "inbound_total",
			Help:      "Number of inbound messages applied per route",
		}, []string{"route"}),
		inboundFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "inbound_failures_total",
			Help:      "Number of rejected inbound messages by error code",
		}, []string{"code"}),
		decodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "decode_failures_total",
			Help:      "Number of inbound payloads that failed to decode",
		}),
		unlockedValue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "unlocked_value_total",
			Help:      "Sum of values released from custody, as a float approximation",
		}),

		custodyBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "custody_balance",
			Help:      "Balance of the custody account, as a float approximation",
		}),
		paused: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "paused",
			Help:      "1 if outbound transfers are paused",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordInfo(version string) {
	m.info.WithLabelValues(version).Set(1)
}

func (m *Metrics) RecordUp() {
	m.up.Set(1)
}

func (m *Metrics) RecordTransfer(amount, fee *uint256.Int) {
	m.transfers.Inc()
	m.transferredValue.Add(toFloat(amount))
	m.feesCollected.Add(toFloat(fee))
}

func (m *Metrics) RecordTransferFailure(code string) {
	m.transferFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) RecordInbound(route string) {
	m.inbound.WithLabelValues(route).Inc()
}

func (m *Metrics) RecordInboundFailure(code string) {
	m.inboundFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) RecordDecodeFailure() {
	m.decodeFailures.Inc()
}

func (m *Metrics) RecordUnlock(amount *uint256.Int) {
	m.unlockedValue.Add(toFloat(amount))
}

func (m *Metrics) RecordCustodyBalance(balance *uint256.Int) {
	m.custodyBalance.Set(toFloat(balance))
}

func (m *Metrics) RecordPaused(paused bool) {
	if paused {
		m.paused.Set(1)
	} else {
		m.paused.Set(0)
	}
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	if v.IsUint64() {
		return float64(v.Uint64())
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

type noopMetrics struct{}

func (noopMetrics) RecordInfo(string) {}
func (noopMetrics) RecordUp() {}
func (noopMetrics) RecordTransfer(_, _ *uint256.Int) {}
func (noopMetrics) RecordTransferFailure(string) {}
func (noopMetrics) RecordInbound(string) {}
func (noopMetrics) RecordInboundFailure(string) {}
func (noopMetrics) RecordDecodeFailure() {}
func (noopMetrics) RecordUnlock(*uint256.Int) {}
func (noopMetrics) RecordCustodyBalance(*uint256.Int) {}
func (noopMetrics) RecordPaused(bool) {}

var NoopMetrics Metricer = noopMetrics{}
