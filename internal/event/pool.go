package event

import "sync"

// Pools for the trade-round hotpath events. Sinks must not retain a
// pooled event past the emit call; the engine releases it afterwards.
var addOrderPool = sync.Pool{
	New: func() interface{} {
		return &AddOrderEvent{}
	},
}

// AcquireAddOrderEvent gets an AddOrderEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireAddOrderEvent() *AddOrderEvent {
	return addOrderPool.Get().(*AddOrderEvent)
}

// ReleaseAddOrderEvent returns an AddOrderEvent to the pool.
func ReleaseAddOrderEvent(ev *AddOrderEvent) {
	if ev == nil {
		return
	}
	*ev = AddOrderEvent{}
	addOrderPool.Put(ev)
}

var redeemOrderPool = sync.Pool{
	New: func() interface{} {
		return &RedeemOrderEvent{}
	},
}

// AcquireRedeemOrderEvent gets a RedeemOrderEvent from the pool.
func AcquireRedeemOrderEvent() *RedeemOrderEvent {
	return redeemOrderPool.Get().(*RedeemOrderEvent)
}

// ReleaseRedeemOrderEvent returns a RedeemOrderEvent to the pool.
func ReleaseRedeemOrderEvent(ev *RedeemOrderEvent) {
	if ev == nil {
		return
	}
	*ev = RedeemOrderEvent{}
	redeemOrderPool.Put(ev)
}

// Warmup pre-allocates a batch of trade-path events so the first burst
// of listings does not pay allocation cost.
func Warmup() {
	const batchSize = 256

	adds := make([]*AddOrderEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		adds = append(adds, AcquireAddOrderEvent())
	}
	for _, ev := range adds {
		ReleaseAddOrderEvent(ev)
	}

	redeems := make([]*RedeemOrderEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		redeems = append(redeems, AcquireRedeemOrderEvent())
	}
	for _, ev := range redeems {
		ReleaseRedeemOrderEvent(ev)
	}
}
