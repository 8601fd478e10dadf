package storage

import (
	"path/filepath"
	"testing"

	"github.com/lincot/solana-ido/internal/domain"
	"github.com/lincot/solana-ido/internal/event"
	"github.com/lincot/solana-ido/internal/ledger"
)

func addr(b byte) domain.Address {
	var a domain.Address
	a[0] = b
	return a
}

func setupTestDB(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return s
}

func TestSaveAndLoadIdo(t *testing.T) {
	s := setupTestDB(t)

	// Before initialize, the record is absent without error.
	ido, err := s.LoadIdo()
	if err != nil {
		t.Fatalf("LoadIdo failed: %v", err)
	}
	if ido != nil {
		t.Fatal("empty db should load a nil record")
	}

	want := &domain.Ido{
		Authority:           addr(1),
		State:               domain.StateTradeRound,
		AcdmMint:            addr(2),
		UsdcMint:            addr(3),
		AcdmPrice:           143_000,
		UsdcTraded:          104_000_000,
		Orders:              3,
		RoundTime:           172800,
		CurrentStateStartTS: 1_700_000_000,
		SaleRoundsStarted:   2,
	}
	if err := s.SaveIdo(want); err != nil {
		t.Fatalf("SaveIdo failed: %v", err)
	}
	got, err := s.LoadIdo()
	if err != nil {
		t.Fatalf("LoadIdo failed: %v", err)
	}
	if got == nil || *got != *want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	// Saving again overwrites the singleton instead of growing rows.
	want.UsdcTraded = 0
	if err := s.SaveIdo(want); err != nil {
		t.Fatalf("second SaveIdo failed: %v", err)
	}
	got, _ = s.LoadIdo()
	if got.UsdcTraded != 0 {
		t.Errorf("overwrite lost: UsdcTraded = %d", got.UsdcTraded)
	}
}

func TestOrdersRoundTrip(t *testing.T) {
	s := setupTestDB(t)

	for id := uint64(0); id < 3; id++ {
		o := domain.Order{ID: id, Authority: addr(10), Price: 130_000 + id}
		if err := s.SaveOrder(&o); err != nil {
			t.Fatalf("SaveOrder failed: %v", err)
		}
	}
	if err := s.DeleteOrder(1); err != nil {
		t.Fatalf("DeleteOrder failed: %v", err)
	}

	orders, err := s.LoadOrders()
	if err != nil {
		t.Fatalf("LoadOrders failed: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != 0 || orders[1].ID != 2 {
		t.Errorf("orders = %+v", orders)
	}
	if orders[1].Price != 130_002 {
		t.Errorf("price = %d, want 130002", orders[1].Price)
	}
}

func TestMembersRoundTrip(t *testing.T) {
	s := setupTestDB(t)

	referer := addr(11)
	members := []domain.Member{
		{Authority: addr(11)},
		{Authority: addr(10), Referer: &referer},
	}
	for i := range members {
		if err := s.SaveMember(&members[i]); err != nil {
			t.Fatalf("SaveMember failed: %v", err)
		}
	}

	loaded, err := s.LoadMembers()
	if err != nil {
		t.Fatalf("LoadMembers failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("members = %d, want 2", len(loaded))
	}
	byAuth := make(map[domain.Address]domain.Member)
	for _, m := range loaded {
		byAuth[m.Authority] = m
	}
	if m := byAuth[addr(11)]; m.Referer != nil {
		t.Errorf("root member should have no referer, got %v", m.Referer)
	}
	if m := byAuth[addr(10)]; m.Referer == nil || *m.Referer != referer {
		t.Errorf("referer lost: %+v", m)
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	s := setupTestDB(t)

	l := ledger.New()
	if _, err := l.CreateMint(addr(2), addr(1)); err != nil {
		t.Fatalf("CreateMint failed: %v", err)
	}
	acct := domain.TokenAddress(addr(10), addr(2))
	if _, err := l.CreateAccount(nil, acct, addr(2), addr(10)); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := l.MintTo(nil, acct, 1234, ledger.SignedBy(addr(1))); err != nil {
		t.Fatalf("MintTo failed: %v", err)
	}
	if err := s.SaveLedger(l); err != nil {
		t.Fatalf("SaveLedger failed: %v", err)
	}

	restored := ledger.New()
	if err := s.RestoreLedger(restored); err != nil {
		t.Fatalf("RestoreLedger failed: %v", err)
	}
	a, err := restored.Account(acct)
	if err != nil {
		t.Fatalf("restored account missing: %v", err)
	}
	if a.Balance() != 1234 || a.Owner != addr(10) {
		t.Errorf("restored account = %+v balance %d", a, a.Balance())
	}
	m, err := restored.Mint(addr(2))
	if err != nil {
		t.Fatalf("restored mint missing: %v", err)
	}
	if m.Supply() != 1234 {
		t.Errorf("restored supply = %d, want 1234", m.Supply())
	}
}

func TestSaveSnapshot_ReplacesState(t *testing.T) {
	s := setupTestDB(t)

	l := ledger.New()
	if _, err := l.CreateMint(addr(2), addr(1)); err != nil {
		t.Fatalf("CreateMint failed: %v", err)
	}
	ido := &domain.Ido{Authority: addr(1), AcdmMint: addr(2), UsdcMint: addr(3), RoundTime: 100, Orders: 2}
	orders := []domain.Order{{ID: 0, Authority: addr(10), Price: 1}, {ID: 1, Authority: addr(10), Price: 2}}
	if err := s.SaveSnapshot(ido, orders, []domain.Member{{Authority: addr(10)}}, l); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	// A later snapshot without listing 0 must remove its row.
	if err := s.SaveSnapshot(ido, orders[1:], []domain.Member{{Authority: addr(10)}}, l); err != nil {
		t.Fatalf("second SaveSnapshot failed: %v", err)
	}
	loaded, err := s.LoadOrders()
	if err != nil {
		t.Fatalf("LoadOrders failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != 1 {
		t.Errorf("orders = %+v, want only listing 1", loaded)
	}
}

func TestEventLog(t *testing.T) {
	s := setupTestDB(t)

	if seq, err := s.LastSeq(); err != nil || seq != 0 {
		t.Fatalf("empty log LastSeq = %d, %v", seq, err)
	}

	events := []event.Event{
		&event.InitializeEvent{BaseEvent: event.BaseEvent{Seq: 1, Ts: 1000}, Authority: addr(1), RoundTime: 100},
		&event.StartSaleRoundEvent{BaseEvent: event.BaseEvent{Seq: 2, Ts: 1001}, AcdmPrice: 100_000, MintedAmount: 10_000},
		&event.BuyAcdmEvent{BaseEvent: event.BaseEvent{Seq: 3, Ts: 1002}, Buyer: addr(10), Amount: 500},
	}
	for _, ev := range events {
		if err := s.AppendEvent(ev); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	stored, err := s.Events(2, 10)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("events from seq 2 = %d, want 2", len(stored))
	}
	if stored[0].Seq != 2 || stored[0].Type != event.TypeStartSaleRound {
		t.Errorf("stored[0] = %+v", stored[0])
	}
	if len(stored[0].Payload) == 0 {
		t.Error("payload should be recorded")
	}

	if seq, err := s.LastSeq(); err != nil || seq != 3 {
		t.Errorf("LastSeq = %d, %v, want 3", seq, err)
	}

	// Duplicate sequence numbers are rejected by the primary key.
	if err := s.AppendEvent(events[0]); err == nil {
		t.Error("duplicate seq should fail")
	}
}
