package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lincot/solana-ido/internal/domain"
	"github.com/lincot/solana-ido/internal/engine"
	"github.com/lincot/solana-ido/internal/event"
	"github.com/lincot/solana-ido/internal/infra"
	"github.com/lincot/solana-ido/internal/infra/storage"
	"github.com/lincot/solana-ido/internal/ledger"
	"github.com/lincot/solana-ido/internal/server"
)

// snapshotInterval bounds how stale the persisted record state can get.
// The event log itself is appended synchronously on every operation.
const snapshotInterval = 2 * time.Second

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Ledger  *ledger.Ledger
	Engine  *engine.Settlement
	Hub     *server.Hub
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, DB, ledger,
// engine) and restores persisted state from the previous run.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping settlement service...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Restore the token ledger, creating the configured mints on
	// first boot.
	l := ledger.New()
	if err := store.RestoreLedger(l); err != nil {
		return err
	}
	for _, mint := range []struct {
		name string
		addr domain.Address
	}{
		{"acdm", cfg.AcdmMint()},
		{"usdc", cfg.UsdcMint()},
	} {
		if _, err := l.Mint(mint.addr); err != nil {
			if _, err := l.CreateMint(mint.addr, cfg.Authority()); err != nil {
				return err
			}
			slog.Info("✅ Mint created", slog.String("token", mint.name))
		}
	}
	b.Ledger = l

	// 5. Engine wired to the event sink, then record-state restore.
	b.Hub = server.NewHub()
	b.Engine = engine.New(l, nil, b.sink)

	snap := engine.Snapshot{}
	if snap.Ido, err = store.LoadIdo(); err != nil {
		return err
	}
	if snap.Orders, err = store.LoadOrders(); err != nil {
		return err
	}
	if snap.Members, err = store.LoadMembers(); err != nil {
		return err
	}
	lastSeq, err := store.LastSeq()
	if err != nil {
		return err
	}
	snap.NextSeq = lastSeq + 1
	b.Engine.Load(snap)
	slog.Info("✅ State restored",
		slog.Bool("initialized", snap.Ido != nil),
		slog.Int("orders", len(snap.Orders)),
		slog.Int("members", len(snap.Members)),
		slog.Uint64("last_seq", lastSeq))

	event.Warmup()

	return nil
}

// sink runs synchronously inside the engine's commit path. It must not
// call back into the engine; snapshots are taken by RunPersister.
func (b *Bootstrap) sink(ev event.Event) {
	infra.GlobalMetrics.RecordOp()
	switch e := ev.(type) {
	case *event.AddOrderEvent:
		infra.GlobalMetrics.OrderOpened()
	case *event.RemoveOrderEvent:
		infra.GlobalMetrics.OrderClosed()
	case *event.RedeemOrderEvent:
		infra.GlobalMetrics.RecordRedeem(e.Gross)
	}

	if err := b.Storage.AppendEvent(ev); err != nil {
		slog.Error("Failed to append event",
			slog.String("type", string(ev.GetType())),
			slog.Uint64("seq", ev.GetSeq()),
			slog.Any("error", err))
	}

	// Pooled events are reused once this returns, so marshal before
	// handing anything to subscribers.
	msg, err := json.Marshal(struct {
		Type event.Type `json:"type"`
		Data any        `json:"data"`
	}{Type: ev.GetType(), Data: ev})
	if err != nil {
		slog.Error("Failed to marshal event", slog.Any("error", err))
		return
	}
	b.Hub.Broadcast(msg)
}

// RunPersister periodically writes the engine's record state and token
// balances to storage, and once more on shutdown.
func (b *Bootstrap) RunPersister(ctx context.Context) {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	lastSeq := uint64(0)
	for {
		select {
		case <-ctx.Done():
			b.persist(&lastSeq)
			return
		case <-ticker.C:
			b.persist(&lastSeq)
		}
	}
}

func (b *Bootstrap) persist(lastSeq *uint64) {
	snap := b.Engine.Snapshot()
	if snap.NextSeq == *lastSeq {
		return // nothing committed since the previous snapshot
	}
	if err := b.Storage.SaveSnapshot(snap.Ido, snap.Orders, snap.Members, b.Ledger); err != nil {
		slog.Error("Failed to persist snapshot", slog.Any("error", err))
		return
	}
	*lastSeq = snap.NextSeq
}
