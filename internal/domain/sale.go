package domain

// IdoState is the phase of the offering.
type IdoState uint8

const (
	StateNotStarted IdoState = iota
	StateSaleRound
	StateTradeRound
	StateOver
)

func (s IdoState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateSaleRound:
		return "sale_round"
	case StateTradeRound:
		return "trade_round"
	case StateOver:
		return "over"
	default:
		return "unknown"
	}
}

const (
	// InitialIssue is the sale-token amount minted for the first sale round.
	InitialIssue uint64 = 10_000
	// InitialPrice is the first sale round's per-unit price in stable units.
	InitialPrice uint64 = 100_000
)

// NextSalePrice is the pricing recurrence applied on every sale round
// after the first. The operation order (multiply, divide by 100, add,
// divide by 5) is fixed; truncating integer division is intentional.
func NextSalePrice(prev uint64) uint64 {
	return prev*103/100 + InitialPrice*2/5
}

// Ido is the singleton sale record. It is mutated only by the
// settlement engine, which works on a copy and commits the copy back
// once every transfer of the operation has succeeded.
type Ido struct {
	Authority Address
	State     IdoState
	AcdmMint  Address
	UsdcMint  Address

	// AcdmPrice is the current sale-round price, set on sale round start.
	AcdmPrice uint64
	// UsdcTraded accumulates stable volume during a round and sizes the
	// next sale round's mint. Seeded so the first round mints InitialIssue.
	UsdcTraded uint64
	// Orders counts listings ever created; it is the next listing id.
	Orders uint64

	// RoundTime is the minimum round length in seconds.
	RoundTime int64
	// CurrentStateStartTS is the Unix second the current state began.
	CurrentStateStartTS int64
	// SaleRoundsStarted selects between the initial price and the recurrence.
	SaleRoundsStarted uint32
}

// NewIdo creates the sale record in NotStarted.
func NewIdo(authority, acdmMint, usdcMint Address, roundTime, now int64) (*Ido, error) {
	if roundTime <= 0 {
		return nil, ErrInvalidRoundDuration
	}
	return &Ido{
		Authority:           authority,
		State:               StateNotStarted,
		AcdmMint:            acdmMint,
		UsdcMint:            usdcMint,
		UsdcTraded:          InitialIssue * InitialPrice,
		RoundTime:           roundTime,
		CurrentStateStartTS: now,
	}, nil
}

func (i *Ido) roundTimeOver(ts int64) error {
	if ts-i.CurrentStateStartTS < i.RoundTime {
		return ErrCannotEndRound
	}
	return nil
}

// CanStartSaleRound checks the transition into SaleRound at ts.
func (i *Ido) CanStartSaleRound(ts int64) error {
	switch i.State {
	case StateNotStarted:
		return nil
	case StateSaleRound:
		return ErrRoundAlreadyStarted
	case StateTradeRound:
		return i.roundTimeOver(ts)
	default:
		return ErrIdoOver
	}
}

// CanStartTradeRound checks the transition into TradeRound at ts.
// soldOut lifts the duration gate: a sold-out sale round may be ended
// at any time.
func (i *Ido) CanStartTradeRound(ts int64, soldOut bool) error {
	switch i.State {
	case StateNotStarted:
		return ErrNotSaleRound
	case StateSaleRound:
		if soldOut {
			return nil
		}
		return i.roundTimeOver(ts)
	case StateTradeRound:
		return ErrRoundAlreadyStarted
	default:
		return ErrIdoOver
	}
}

// CanEnd checks the transition into Over at ts.
func (i *Ido) CanEnd(ts int64) error {
	switch i.State {
	case StateNotStarted, StateSaleRound:
		return ErrNotTradeRound
	case StateTradeRound:
		return i.roundTimeOver(ts)
	default:
		return ErrIdoOver
	}
}

// EnsureSaleRound gates operations legal only during the sale round.
func (i *Ido) EnsureSaleRound() error {
	switch i.State {
	case StateSaleRound:
		return nil
	case StateOver:
		return ErrIdoOver
	default:
		return ErrNotSaleRound
	}
}

// EnsureTradeRound gates operations legal only during the trade round.
func (i *Ido) EnsureTradeRound() error {
	switch i.State {
	case StateTradeRound:
		return nil
	case StateOver:
		return ErrIdoOver
	default:
		return ErrNotTradeRound
	}
}

// StartSaleRound applies the SaleRound transition and returns the
// sale-token amount to mint into the treasury: UsdcTraded / price with
// truncating division. Legality must have been checked already.
func (i *Ido) StartSaleRound(ts int64) (mintAmount uint64) {
	i.State = StateSaleRound
	i.CurrentStateStartTS = ts
	if i.SaleRoundsStarted == 0 {
		i.AcdmPrice = InitialPrice
	} else {
		i.AcdmPrice = NextSalePrice(i.AcdmPrice)
	}
	i.SaleRoundsStarted++
	return i.UsdcTraded / i.AcdmPrice
}

// StartTradeRound applies the TradeRound transition. The caller burns
// any unsold treasury balance; here only the record changes.
func (i *Ido) StartTradeRound(ts int64) {
	i.State = StateTradeRound
	i.CurrentStateStartTS = ts
	i.UsdcTraded = 0
}

// End applies the terminal transition.
func (i *Ido) End(ts int64) {
	i.State = StateOver
	i.CurrentStateStartTS = ts
}
