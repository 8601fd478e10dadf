// Package engine implements the settlement orchestrator: the only
// writer of the sale record, the listings, and the token ledger. Every
// operation validates round legality first, plans all transfers, runs
// them inside a ledger transaction, and commits record mutations only
// after every transfer succeeded, so a failing operation leaves no
// trace.
package engine

import (
	"sync"
	"time"

	"github.com/lincot/solana-ido/internal/domain"
	"github.com/lincot/solana-ido/internal/event"
	"github.com/lincot/solana-ido/internal/infra"
	"github.com/lincot/solana-ido/internal/ledger"
	"github.com/lincot/solana-ido/internal/referral"
	"github.com/lincot/solana-ido/pkg/safe"
)

// Clock supplies the current Unix second. Injected so round gating is
// testable; the host's serialized call model means it is only read at
// operation entry.
type Clock func() int64

// Sink receives every committed operation's event synchronously.
// Pooled events are released after the sink returns; sinks must not
// retain them.
type Sink func(event.Event)

// Settlement owns all mutable offering state. Mutating operations are
// serialized by an internal mutex, matching the single-writer model
// the record layout assumes.
type Settlement struct {
	mu     sync.RWMutex
	ledger *ledger.Ledger
	clock  Clock
	sink   Sink

	ido     *domain.Ido
	orders  map[uint64]*domain.Order
	members map[domain.Address]*domain.Member

	nextSeq uint64

	idoAddr domain.Address
	idoAcdm domain.Address
	idoUsdc domain.Address
}

// New creates a settlement engine over l. A nil clock means wall time.
func New(l *ledger.Ledger, clock Clock, sink Sink) *Settlement {
	if clock == nil {
		clock = func() int64 { return time.Now().Unix() }
	}
	return &Settlement{
		ledger:  l,
		clock:   clock,
		sink:    sink,
		orders:  make(map[uint64]*domain.Order),
		members: make(map[domain.Address]*domain.Member),
		nextSeq: 1,
		idoAddr: domain.IdoAddress(),
	}
}

// memberMap adapts the member index to referral.MemberSource. It is
// only handed out inside operations, under the write lock; external
// readers go through MemberOf.
type memberMap map[domain.Address]*domain.Member

func (m memberMap) Member(record domain.Address) (*domain.Member, bool) {
	mem, ok := m[record]
	return mem, ok
}

func (s *Settlement) stamp(base *event.BaseEvent, ts int64) {
	base.Seq = s.nextSeq
	base.Ts = ts
	s.nextSeq++
}

func (s *Settlement) emit(ev event.Event) {
	if s.sink != nil {
		s.sink(ev)
	}
}

func (s *Settlement) guard(op string) error {
	if s.ido == nil {
		return domain.NewOpError(op, domain.ErrNotInitialized)
	}
	return nil
}

// Initialize creates the sale record in NotStarted and the treasury
// token accounts for both mints. Both mints must already exist.
func (s *Settlement) Initialize(authority, acdmMint, usdcMint domain.Address, roundTime int64) error {
	const op = "initialize"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ido != nil {
		return domain.NewOpError(op, domain.ErrAlreadyInitialized)
	}
	if _, err := s.ledger.Mint(acdmMint); err != nil {
		return domain.NewOpError(op, err)
	}
	if _, err := s.ledger.Mint(usdcMint); err != nil {
		return domain.NewOpError(op, err)
	}

	ts := s.clock()
	ido, err := domain.NewIdo(authority, acdmMint, usdcMint, roundTime, ts)
	if err != nil {
		return domain.NewOpError(op, err)
	}

	idoAcdm := domain.TokenAddress(s.idoAddr, acdmMint)
	idoUsdc := domain.TokenAddress(s.idoAddr, usdcMint)

	tx := s.ledger.Begin()
	defer tx.Rollback()
	if _, err := s.ledger.CreateAccount(tx, idoAcdm, acdmMint, s.idoAddr); err != nil {
		return domain.NewOpError(op, err)
	}
	if _, err := s.ledger.CreateAccount(tx, idoUsdc, usdcMint, s.idoAddr); err != nil {
		return domain.NewOpError(op, err)
	}
	tx.Commit()

	s.ido = ido
	s.idoAcdm = idoAcdm
	s.idoUsdc = idoUsdc

	ev := &event.InitializeEvent{Authority: authority, RoundTime: roundTime}
	s.stamp(&ev.BaseEvent, ts)
	s.emit(ev)
	return nil
}

// RegisterMember records the caller's referral membership. When a
// referer is given the caller must supply the referer's membership
// record address as the first chain account; it is re-derived and must
// exist. The referer is fixed permanently.
func (s *Settlement) RegisterMember(authority domain.Address, referer *domain.Address, accounts []domain.Address) error {
	const op = "register_member"

	s.mu.Lock()
	defer s.mu.Unlock()

	record := domain.MemberAddress(authority)
	if _, ok := s.members[record]; ok {
		return domain.NewOpError(op, domain.ErrMemberExists)
	}

	if referer != nil {
		if len(accounts) < 1 {
			return domain.NewOpError(op, domain.ErrRefererRecordMissing)
		}
		if _, err := referral.VerifyRecord(*referer, accounts[0], memberMap(s.members)); err != nil {
			return domain.NewOpError(op, err)
		}
	}

	s.members[record] = &domain.Member{Authority: authority, Referer: referer}

	ev := &event.RegisterMemberEvent{Authority: authority, Referer: referer}
	s.stamp(&ev.BaseEvent, s.clock())
	s.emit(ev)
	return nil
}

// StartSaleRound prices the round and mints the round's issue into the
// treasury. The caller must be the sale authority and must control the
// sale-token mint.
func (s *Settlement) StartSaleRound(caller domain.Address) error {
	const op = "start_sale_round"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(op); err != nil {
		return err
	}
	if caller != s.ido.Authority {
		return domain.NewOpError(op, domain.ErrUnauthorized)
	}

	ts := s.clock()
	if err := s.ido.CanStartSaleRound(ts); err != nil {
		return domain.NewOpError(op, err)
	}

	next := *s.ido
	mintAmount := next.StartSaleRound(ts)

	tx := s.ledger.Begin()
	defer tx.Rollback()
	if err := s.ledger.MintTo(tx, s.idoAcdm, mintAmount, ledger.SignedBy(caller)); err != nil {
		return domain.NewOpError(op, err)
	}
	tx.Commit()

	*s.ido = next

	ev := &event.StartSaleRoundEvent{AcdmPrice: next.AcdmPrice, MintedAmount: mintAmount}
	s.stamp(&ev.BaseEvent, ts)
	s.emit(ev)
	return nil
}

// BuyAcdm sells amount sale tokens from the treasury to the buyer at
// the round price, routing fees through the buyer's referral chain.
func (s *Settlement) BuyAcdm(buyer domain.Address, amount uint64, accounts []domain.Address) error {
	const op = "buy_acdm"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(op); err != nil {
		return err
	}
	if err := s.ido.EnsureSaleRound(); err != nil {
		return domain.NewOpError(op, err)
	}

	member, ok := s.members[domain.MemberAddress(buyer)]
	if !ok {
		return domain.NewOpError(op, domain.ErrMemberMissing)
	}

	split, err := domain.BuySplit(amount, s.ido.AcdmPrice)
	if err != nil {
		return domain.NewOpError(op, err)
	}
	plan, err := referral.BuildPlan(member, split, accounts, memberMap(s.members), s.ledger)
	if err != nil {
		return domain.NewOpError(op, err)
	}

	buyerUsdc := domain.TokenAddress(buyer, s.ido.UsdcMint)
	buyerAcdm := domain.TokenAddress(buyer, s.ido.AcdmMint)
	buyerAuth := ledger.SignedBy(buyer)

	tx := s.ledger.Begin()
	defer tx.Rollback()
	for _, p := range plan.Payouts {
		if err := s.ledger.Transfer(tx, buyerUsdc, p.To, p.Amount, buyerAuth); err != nil {
			return domain.NewOpError(op, err)
		}
	}
	if err := s.ledger.Transfer(tx, buyerUsdc, s.idoUsdc, plan.Treasury, buyerAuth); err != nil {
		return domain.NewOpError(op, err)
	}
	if err := s.ledger.Transfer(tx, s.idoAcdm, buyerAcdm, amount, ledger.SignedBy(s.idoAddr)); err != nil {
		return domain.NewOpError(op, err)
	}
	tx.Commit()

	for _, p := range plan.Payouts {
		infra.GlobalMetrics.RecordRefererFee(p.Amount)
	}

	ev := &event.BuyAcdmEvent{Buyer: buyer, Amount: amount}
	s.stamp(&ev.BaseEvent, s.clock())
	s.emit(ev)
	return nil
}

// StartTradeRound burns any unsold treasury sale tokens, resets the
// traded volume and enters TradeRound. A sold-out sale round may be
// ended before the minimum duration.
func (s *Settlement) StartTradeRound(caller domain.Address) error {
	const op = "start_trade_round"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(op); err != nil {
		return err
	}
	if caller != s.ido.Authority {
		return domain.NewOpError(op, domain.ErrUnauthorized)
	}

	treasury, err := s.ledger.Account(s.idoAcdm)
	if err != nil {
		return domain.NewOpError(op, err)
	}
	leftover := treasury.Balance()

	ts := s.clock()
	if err := s.ido.CanStartTradeRound(ts, leftover == 0); err != nil {
		return domain.NewOpError(op, err)
	}

	next := *s.ido
	next.StartTradeRound(ts)

	tx := s.ledger.Begin()
	defer tx.Rollback()
	if err := s.ledger.Burn(tx, s.idoAcdm, leftover, ledger.SignedBy(s.idoAddr)); err != nil {
		return domain.NewOpError(op, err)
	}
	tx.Commit()

	*s.ido = next

	ev := &event.StartTradeRoundEvent{BurnedAmount: leftover}
	s.stamp(&ev.BaseEvent, ts)
	s.emit(ev)
	return nil
}

// AddOrder escrows amount sale tokens from the seller into a new
// listing at a fixed unit price and returns the listing id.
func (s *Settlement) AddOrder(seller domain.Address, amount, price uint64) (uint64, error) {
	const op = "add_order"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(op); err != nil {
		return 0, err
	}
	if err := s.ido.EnsureTradeRound(); err != nil {
		return 0, domain.NewOpError(op, err)
	}

	order := &domain.Order{ID: s.ido.Orders, Authority: seller, Price: price}
	escrow := order.EscrowAddress(s.ido.AcdmMint)
	sellerAcdm := domain.TokenAddress(seller, s.ido.AcdmMint)

	tx := s.ledger.Begin()
	defer tx.Rollback()
	if _, err := s.ledger.CreateAccount(tx, escrow, s.ido.AcdmMint, order.RecordAddress()); err != nil {
		return 0, domain.NewOpError(op, err)
	}
	if err := s.ledger.Transfer(tx, sellerAcdm, escrow, amount, ledger.SignedBy(seller)); err != nil {
		return 0, domain.NewOpError(op, err)
	}
	tx.Commit()

	s.orders[order.ID] = order
	s.ido.Orders++

	ev := event.AcquireAddOrderEvent()
	ev.ID = order.ID
	ev.Seller = seller
	ev.Amount = amount
	ev.Price = price
	s.stamp(&ev.BaseEvent, s.clock())
	s.emit(ev)
	event.ReleaseAddOrderEvent(ev)
	return order.ID, nil
}

// RedeemOrder buys amount sale tokens out of a listing's escrow at the
// listing price. Fees are routed through the seller's referral chain;
// the remainder is paid directly from buyer to seller. The escrow
// balance is the sole bound on the redeemable amount.
func (s *Settlement) RedeemOrder(buyer domain.Address, id, amount uint64, accounts []domain.Address) error {
	const op = "redeem_order"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(op); err != nil {
		return err
	}
	if err := s.ido.EnsureTradeRound(); err != nil {
		return domain.NewOpError(op, err)
	}

	order, ok := s.orders[id]
	if !ok {
		return domain.NewOpError(op, domain.ErrOrderNotFound)
	}

	split, err := domain.RedeemSplit(amount, order.Price)
	if err != nil {
		return domain.NewOpError(op, err)
	}
	newVolume, ok := safe.Add(s.ido.UsdcTraded, split.Gross)
	if !ok {
		return domain.NewOpError(op, domain.ErrOverflow)
	}

	sellerMember, ok := s.members[domain.MemberAddress(order.Authority)]
	if !ok {
		return domain.NewOpError(op, domain.ErrMemberMissing)
	}
	plan, err := referral.BuildPlan(sellerMember, split, accounts, memberMap(s.members), s.ledger)
	if err != nil {
		return domain.NewOpError(op, err)
	}

	buyerUsdc := domain.TokenAddress(buyer, s.ido.UsdcMint)
	buyerAcdm := domain.TokenAddress(buyer, s.ido.AcdmMint)
	sellerUsdc := domain.TokenAddress(order.Authority, s.ido.UsdcMint)
	escrow := order.EscrowAddress(s.ido.AcdmMint)
	buyerAuth := ledger.SignedBy(buyer)

	tx := s.ledger.Begin()
	defer tx.Rollback()
	for _, p := range plan.Payouts {
		if err := s.ledger.Transfer(tx, buyerUsdc, p.To, p.Amount, buyerAuth); err != nil {
			return domain.NewOpError(op, err)
		}
	}
	if err := s.ledger.Transfer(tx, buyerUsdc, s.idoUsdc, plan.Treasury, buyerAuth); err != nil {
		return domain.NewOpError(op, err)
	}
	if err := s.ledger.Transfer(tx, buyerUsdc, sellerUsdc, plan.Seller, buyerAuth); err != nil {
		return domain.NewOpError(op, err)
	}
	if err := s.ledger.Transfer(tx, escrow, buyerAcdm, amount, ledger.SignedBy(order.RecordAddress())); err != nil {
		return domain.NewOpError(op, err)
	}
	tx.Commit()

	s.ido.UsdcTraded = newVolume
	for _, p := range plan.Payouts {
		infra.GlobalMetrics.RecordRefererFee(p.Amount)
	}

	ev := event.AcquireRedeemOrderEvent()
	ev.ID = id
	ev.Buyer = buyer
	ev.Amount = amount
	ev.Gross = split.Gross
	s.stamp(&ev.BaseEvent, s.clock())
	s.emit(ev)
	event.ReleaseRedeemOrderEvent(ev)
	return nil
}

// RemoveOrder returns a listing's residual escrow to its owner, closes
// the escrow sub-account and deletes the listing. Legal in any state;
// only the owner may call it.
func (s *Settlement) RemoveOrder(caller domain.Address, id uint64) error {
	const op = "remove_order"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(op); err != nil {
		return err
	}
	order, ok := s.orders[id]
	if !ok {
		return domain.NewOpError(op, domain.ErrOrderNotFound)
	}
	if caller != order.Authority {
		return domain.NewOpError(op, domain.ErrUnauthorized)
	}

	escrow := order.EscrowAddress(s.ido.AcdmMint)
	acct, err := s.ledger.Account(escrow)
	if err != nil {
		return domain.NewOpError(op, err)
	}
	leftover := acct.Balance()
	sellerAcdm := domain.TokenAddress(caller, s.ido.AcdmMint)
	orderAuth := ledger.SignedBy(order.RecordAddress())

	tx := s.ledger.Begin()
	defer tx.Rollback()
	if err := s.ledger.Transfer(tx, escrow, sellerAcdm, leftover, orderAuth); err != nil {
		return domain.NewOpError(op, err)
	}
	if err := s.ledger.CloseAccount(tx, escrow, orderAuth); err != nil {
		return domain.NewOpError(op, err)
	}
	tx.Commit()

	delete(s.orders, id)

	ev := &event.RemoveOrderEvent{ID: id}
	s.stamp(&ev.BaseEvent, s.clock())
	s.emit(ev)
	return nil
}

// WithdrawIdoUsdc transfers the whole stable treasury to a token
// account chosen by the sale authority.
func (s *Settlement) WithdrawIdoUsdc(caller, to domain.Address) error {
	const op = "withdraw_ido_usdc"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(op); err != nil {
		return err
	}
	if caller != s.ido.Authority {
		return domain.NewOpError(op, domain.ErrUnauthorized)
	}

	treasury, err := s.ledger.Account(s.idoUsdc)
	if err != nil {
		return domain.NewOpError(op, err)
	}
	amount := treasury.Balance()

	tx := s.ledger.Begin()
	defer tx.Rollback()
	if err := s.ledger.Transfer(tx, s.idoUsdc, to, amount, ledger.SignedBy(s.idoAddr)); err != nil {
		return domain.NewOpError(op, err)
	}
	tx.Commit()

	ev := &event.WithdrawIdoUsdcEvent{To: to, Amount: amount}
	s.stamp(&ev.BaseEvent, s.clock())
	s.emit(ev)
	return nil
}

// EndIdo moves the offering to its terminal state.
func (s *Settlement) EndIdo(caller domain.Address) error {
	const op = "end_ido"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(op); err != nil {
		return err
	}
	if caller != s.ido.Authority {
		return domain.NewOpError(op, domain.ErrUnauthorized)
	}

	ts := s.clock()
	if err := s.ido.CanEnd(ts); err != nil {
		return domain.NewOpError(op, err)
	}

	s.ido.End(ts)

	ev := &event.EndIdoEvent{}
	s.stamp(&ev.BaseEvent, ts)
	s.emit(ev)
	return nil
}
