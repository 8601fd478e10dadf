package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	opsProcessed     atomic.Uint64
	ordersRedeemed   atomic.Uint64
	volumeSettled    atomic.Uint64
	refererFeesPaid  atomic.Uint64
	errorsTotal      atomic.Uint64

	// Gauges
	openOrders    atomic.Int64
	wsSubscribers atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordOp records a committed settlement operation.
func (m *Metrics) RecordOp() {
	m.opsProcessed.Add(1)
}

// RecordError records a rejected operation.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// RecordRedeem records a redemption and its gross stable volume.
func (m *Metrics) RecordRedeem(gross uint64) {
	m.ordersRedeemed.Add(1)
	m.volumeSettled.Add(gross)
}

// RecordRefererFee records stable value paid out to referers.
func (m *Metrics) RecordRefererFee(amount uint64) {
	m.refererFeesPaid.Add(amount)
}

// OrderOpened increments the open listing gauge.
func (m *Metrics) OrderOpened() {
	m.openOrders.Add(1)
}

// OrderClosed decrements the open listing gauge.
func (m *Metrics) OrderClosed() {
	m.openOrders.Add(-1)
}

// SubscriberConnected increments the websocket subscriber gauge.
func (m *Metrics) SubscriberConnected() {
	m.wsSubscribers.Add(1)
}

// SubscriberDisconnected decrements the websocket subscriber gauge.
func (m *Metrics) SubscriberDisconnected() {
	m.wsSubscribers.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	OpsProcessed    uint64    `json:"ops_processed"`
	OrdersRedeemed  uint64    `json:"orders_redeemed"`
	VolumeSettled   uint64    `json:"volume_settled"`
	RefererFeesPaid uint64    `json:"referer_fees_paid"`
	ErrorsTotal     uint64    `json:"errors_total"`
	OpenOrders      int64     `json:"open_orders"`
	WsSubscribers   int32     `json:"ws_subscribers"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		OpsProcessed:    m.opsProcessed.Load(),
		OrdersRedeemed:  m.ordersRedeemed.Load(),
		VolumeSettled:   m.volumeSettled.Load(),
		RefererFeesPaid: m.refererFeesPaid.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		OpenOrders:      m.openOrders.Load(),
		WsSubscribers:   m.wsSubscribers.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.opsProcessed.Store(0)
	m.ordersRedeemed.Store(0)
	m.volumeSettled.Store(0)
	m.refererFeesPaid.Store(0)
	m.errorsTotal.Store(0)
	m.openOrders.Store(0)
	m.wsSubscribers.Store(0)
}
