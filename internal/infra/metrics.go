package infra

import (
	"math"
	"sync/atomic"
	"time"

	"order_actor/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the book did. It is an OrderSink: Record only touches
// atomics, so the book never waits on it.
type Metrics struct {
	// Counters
	ordersProcessed    atomic.Uint64
	ordersAccepted     atomic.Uint64
	ordersRejected     atomic.Uint64
	repliesUndelivered atomic.Uint64
	sinkDrops          atomic.Uint64

	// Latency tracking (request creation to processed)
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges, stored as float64 bits
	totalInvested atomic.Uint64
	available     atomic.Uint64
}

// Record implements domain.OrderSink.
func (m *Metrics) Record(order domain.ProcessedOrder) {
	m.ordersProcessed.Add(1)
	if order.Accepted() {
		m.ordersAccepted.Add(1)
	} else {
		m.ordersRejected.Add(1)
	}
	if !order.Delivered {
		m.repliesUndelivered.Add(1)
	}
	m.latencySumNs.Add(order.LatencyNs)
	m.latencyCount.Add(1)

	invested, _ := order.TotalInvested.Float64()
	available, _ := order.Available.Float64()
	m.totalInvested.Store(math.Float64bits(invested))
	m.available.Store(math.Float64bits(available))
}

// RecordSinkDrop counts a processed order a sink had to discard.
func (m *Metrics) RecordSinkDrop() {
	m.sinkDrops.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	OrdersProcessed    uint64    `json:"orders_processed"`
	OrdersAccepted     uint64    `json:"orders_accepted"`
	OrdersRejected     uint64    `json:"orders_rejected"`
	RepliesUndelivered uint64    `json:"replies_undelivered"`
	SinkDrops          uint64    `json:"sink_drops"`
	AvgLatencyNs       int64     `json:"avg_latency_ns"`
	TotalInvested      float64   `json:"total_invested"`
	Available          float64   `json:"available"`
	Timestamp          time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		OrdersProcessed:    m.ordersProcessed.Load(),
		OrdersAccepted:     m.ordersAccepted.Load(),
		OrdersRejected:     m.ordersRejected.Load(),
		RepliesUndelivered: m.repliesUndelivered.Load(),
		SinkDrops:          m.sinkDrops.Load(),
		AvgLatencyNs:       avgLatency,
		TotalInvested:      math.Float64frombits(m.totalInvested.Load()),
		Available:          math.Float64frombits(m.available.Load()),
		Timestamp:          time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ordersProcessed.Store(0)
	m.ordersAccepted.Store(0)
	m.ordersRejected.Store(0)
	m.repliesUndelivered.Store(0)
	m.sinkDrops.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.totalInvested.Store(0)
	m.available.Store(0)
}

var (
	descProcessed = prometheus.NewDesc("order_actor_orders_processed_total",
		"Orders handled by the book.", nil, nil)
	descOutcome = prometheus.NewDesc("order_actor_orders_total",
		"Orders handled by the book, by outcome.", []string{"status"}, nil)
	descUndelivered = prometheus.NewDesc("order_actor_replies_undelivered_total",
		"Replies dropped because the producer had gone.", nil, nil)
	descSinkDrops = prometheus.NewDesc("order_actor_sink_drops_total",
		"Processed orders dropped by a full sink.", nil, nil)
	descLatency = prometheus.NewDesc("order_actor_avg_latency_seconds",
		"Average time from request creation to processing.", nil, nil)
	descInvested = prometheus.NewDesc("order_actor_total_invested",
		"Committed capital after the last order.", nil, nil)
	descAvailable = prometheus.NewDesc("order_actor_available_capital",
		"Remaining headroom under the investment cap.", nil, nil)
)

// Collector exposes the metrics to a Prometheus registry.
func (m *Metrics) Collector() prometheus.Collector {
	return metricsCollector{m: m}
}

type metricsCollector struct {
	m *Metrics
}

func (c metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descProcessed
	ch <- descOutcome
	ch <- descUndelivered
	ch <- descSinkDrops
	ch <- descLatency
	ch <- descInvested
	ch <- descAvailable
}

func (c metricsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.m.Snapshot()
	ch <- prometheus.MustNewConstMetric(descProcessed, prometheus.CounterValue, float64(snap.OrdersProcessed))
	ch <- prometheus.MustNewConstMetric(descOutcome, prometheus.CounterValue, float64(snap.OrdersAccepted), domain.ReplySuccess.String())
	ch <- prometheus.MustNewConstMetric(descOutcome, prometheus.CounterValue, float64(snap.OrdersRejected), domain.ReplyFail.String())
	ch <- prometheus.MustNewConstMetric(descUndelivered, prometheus.CounterValue, float64(snap.RepliesUndelivered))
	ch <- prometheus.MustNewConstMetric(descSinkDrops, prometheus.CounterValue, float64(snap.SinkDrops))
	ch <- prometheus.MustNewConstMetric(descLatency, prometheus.GaugeValue, float64(snap.AvgLatencyNs)/float64(time.Second))
	ch <- prometheus.MustNewConstMetric(descInvested, prometheus.GaugeValue, snap.TotalInvested)
	ch <- prometheus.MustNewConstMetric(descAvailable, prometheus.GaugeValue, snap.Available)
}
