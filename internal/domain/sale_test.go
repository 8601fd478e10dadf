package domain

import "testing"

func addr(b byte) Address {
	var a Address
	a[0] = b
	return a
}

func newTestIdo(t *testing.T) *Ido {
	t.Helper()
	ido, err := NewIdo(addr(1), addr(2), addr(3), 100, 1000)
	if err != nil {
		t.Fatalf("NewIdo failed: %v", err)
	}
	return ido
}

func TestNewIdo_RejectsBadDuration(t *testing.T) {
	for _, roundTime := range []int64{0, -1} {
		if _, err := NewIdo(addr(1), addr(2), addr(3), roundTime, 1000); err != ErrInvalidRoundDuration {
			t.Errorf("roundTime %d: expected ErrInvalidRoundDuration, got %v", roundTime, err)
		}
	}
}

func TestNewIdo_SeedsVolume(t *testing.T) {
	ido := newTestIdo(t)
	if ido.UsdcTraded != InitialIssue*InitialPrice {
		t.Errorf("seeded volume = %d, want %d", ido.UsdcTraded, InitialIssue*InitialPrice)
	}
	if ido.State != StateNotStarted {
		t.Errorf("state = %v, want not_started", ido.State)
	}
}

func TestStartSaleRound_FirstRound(t *testing.T) {
	ido := newTestIdo(t)

	minted := ido.StartSaleRound(1000)
	if ido.AcdmPrice != InitialPrice {
		t.Errorf("first round price = %d, want %d", ido.AcdmPrice, InitialPrice)
	}
	if minted != InitialIssue {
		t.Errorf("first round mint = %d, want %d", minted, InitialIssue)
	}
	if ido.State != StateSaleRound {
		t.Errorf("state = %v, want sale_round", ido.State)
	}
}

func TestNextSalePrice(t *testing.T) {
	// Second round after the initial 100_000: 100000*103/100 + 40000.
	if got := NextSalePrice(InitialPrice); got != 143_000 {
		t.Errorf("NextSalePrice(100000) = %d, want 143000", got)
	}
	// Truncating division keeps odd inputs exact.
	if got := NextSalePrice(143_000); got != 187_290 {
		t.Errorf("NextSalePrice(143000) = %d, want 187290", got)
	}
}

func TestStartSaleRound_SizingUsesTradedVolume(t *testing.T) {
	ido := newTestIdo(t)
	ido.StartSaleRound(1000)
	ido.StartTradeRound(1100)
	ido.UsdcTraded = 500_000_000

	minted := ido.StartSaleRound(1200)
	if ido.AcdmPrice != 143_000 {
		t.Errorf("second round price = %d, want 143000", ido.AcdmPrice)
	}
	// 500_000_000 / 143_000 truncates.
	if minted != 3496 {
		t.Errorf("second round mint = %d, want 3496", minted)
	}
}

func TestStartTradeRound_ResetsVolume(t *testing.T) {
	ido := newTestIdo(t)
	ido.StartSaleRound(1000)
	ido.StartTradeRound(1100)
	if ido.UsdcTraded != 0 {
		t.Errorf("volume after trade round start = %d, want 0", ido.UsdcTraded)
	}
	if ido.State != StateTradeRound {
		t.Errorf("state = %v, want trade_round", ido.State)
	}
}

func TestTransitions(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*Ido)
		check func(*Ido) error
		want  error
	}{
		{"sale from not started", func(i *Ido) {},
			func(i *Ido) error { return i.CanStartSaleRound(1000) }, nil},
		{"sale from sale", func(i *Ido) { i.StartSaleRound(1000) },
			func(i *Ido) error { return i.CanStartSaleRound(2000) }, ErrRoundAlreadyStarted},
		{"sale from young trade", func(i *Ido) { i.StartSaleRound(1000); i.StartTradeRound(1100) },
			func(i *Ido) error { return i.CanStartSaleRound(1150) }, ErrCannotEndRound},
		{"sale from expired trade", func(i *Ido) { i.StartSaleRound(1000); i.StartTradeRound(1100) },
			func(i *Ido) error { return i.CanStartSaleRound(1200) }, nil},
		{"trade from not started", func(i *Ido) {},
			func(i *Ido) error { return i.CanStartTradeRound(1000, false) }, ErrNotSaleRound},
		{"trade from young sale", func(i *Ido) { i.StartSaleRound(1000) },
			func(i *Ido) error { return i.CanStartTradeRound(1050, false) }, ErrCannotEndRound},
		{"trade from sold out sale", func(i *Ido) { i.StartSaleRound(1000) },
			func(i *Ido) error { return i.CanStartTradeRound(1050, true) }, nil},
		{"trade from expired sale", func(i *Ido) { i.StartSaleRound(1000) },
			func(i *Ido) error { return i.CanStartTradeRound(1100, false) }, nil},
		{"trade from trade", func(i *Ido) { i.StartSaleRound(1000); i.StartTradeRound(1100) },
			func(i *Ido) error { return i.CanStartTradeRound(1300, false) }, ErrRoundAlreadyStarted},
		{"end from not started", func(i *Ido) {},
			func(i *Ido) error { return i.CanEnd(5000) }, ErrNotTradeRound},
		{"end from sale", func(i *Ido) { i.StartSaleRound(1000) },
			func(i *Ido) error { return i.CanEnd(5000) }, ErrNotTradeRound},
		{"end from young trade", func(i *Ido) { i.StartSaleRound(1000); i.StartTradeRound(1100) },
			func(i *Ido) error { return i.CanEnd(1150) }, ErrCannotEndRound},
		{"end from expired trade", func(i *Ido) { i.StartSaleRound(1000); i.StartTradeRound(1100) },
			func(i *Ido) error { return i.CanEnd(1200) }, nil},
		{"nothing after over", func(i *Ido) { i.StartSaleRound(1000); i.StartTradeRound(1100); i.End(1200) },
			func(i *Ido) error { return i.CanStartSaleRound(99999) }, ErrIdoOver},
		{"end after over", func(i *Ido) { i.StartSaleRound(1000); i.StartTradeRound(1100); i.End(1200) },
			func(i *Ido) error { return i.CanEnd(99999) }, ErrIdoOver},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ido := newTestIdo(t)
			tc.setup(ido)
			if got := tc.check(ido); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEnsureRoundGates(t *testing.T) {
	ido := newTestIdo(t)
	if err := ido.EnsureSaleRound(); err != ErrNotSaleRound {
		t.Errorf("EnsureSaleRound before start = %v", err)
	}
	if err := ido.EnsureTradeRound(); err != ErrNotTradeRound {
		t.Errorf("EnsureTradeRound before start = %v", err)
	}

	ido.StartSaleRound(1000)
	if err := ido.EnsureSaleRound(); err != nil {
		t.Errorf("EnsureSaleRound during sale = %v", err)
	}

	ido.StartTradeRound(1100)
	if err := ido.EnsureTradeRound(); err != nil {
		t.Errorf("EnsureTradeRound during trade = %v", err)
	}

	ido.End(1200)
	if err := ido.EnsureSaleRound(); err != ErrIdoOver {
		t.Errorf("EnsureSaleRound after end = %v", err)
	}
	if err := ido.EnsureTradeRound(); err != ErrIdoOver {
		t.Errorf("EnsureTradeRound after end = %v", err)
	}
}
