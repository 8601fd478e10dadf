package infra

import (
	"testing"
)

func TestMetrics_RecordRedeem(t *testing.T) {
	m := &Metrics{}

	m.RecordRedeem(1000)
	m.RecordRedeem(2000)
	m.RecordRedeem(3000)

	snap := m.Snapshot()

	if snap.OrdersRedeemed != 3 {
		t.Errorf("Expected 3 redemptions, got %d", snap.OrdersRedeemed)
	}
	if snap.VolumeSettled != 6000 {
		t.Errorf("Expected volume 6000, got %d", snap.VolumeSettled)
	}
}

func TestMetrics_OpenOrdersGauge(t *testing.T) {
	m := &Metrics{}

	m.OrderOpened()
	m.OrderOpened()
	m.OrderOpened()

	snap := m.Snapshot()
	if snap.OpenOrders != 3 {
		t.Errorf("Expected 3 open orders, got %d", snap.OpenOrders)
	}

	m.OrderClosed()
	snap = m.Snapshot()
	if snap.OpenOrders != 2 {
		t.Errorf("Expected 2 open orders, got %d", snap.OpenOrders)
	}
}

func TestMetrics_Subscribers(t *testing.T) {
	m := &Metrics{}

	m.SubscriberConnected()
	m.SubscriberConnected()
	m.SubscriberDisconnected()

	snap := m.Snapshot()
	if snap.WsSubscribers != 1 {
		t.Errorf("Expected 1 subscriber, got %d", snap.WsSubscribers)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordOp()
	m.RecordError()
	m.RecordRefererFee(500)
	m.OrderOpened()

	m.Reset()
	snap := m.Snapshot()

	if snap.OpsProcessed != 0 {
		t.Error("Expected 0 ops after reset")
	}
	if snap.ErrorsTotal != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.RefererFeesPaid != 0 {
		t.Error("Expected 0 fees after reset")
	}
	if snap.OpenOrders != 0 {
		t.Error("Expected 0 open orders after reset")
	}
}
