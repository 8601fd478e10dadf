package engine

import (
	"sort"

	"github.com/lincot/solana-ido/internal/domain"
)

// Snapshot is a copy of the offering's record state, taken under the
// read lock. Token balances are snapshotted from the ledger.
type Snapshot struct {
	Ido     *domain.Ido
	Orders  []domain.Order
	Members []domain.Member
	NextSeq uint64
}

// Snapshot returns a consistent copy of the record state.
func (s *Settlement) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{NextSeq: s.nextSeq}
	if s.ido != nil {
		ido := *s.ido
		snap.Ido = &ido
	}
	snap.Orders = make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		snap.Orders = append(snap.Orders, *o)
	}
	sort.Slice(snap.Orders, func(i, j int) bool { return snap.Orders[i].ID < snap.Orders[j].ID })
	snap.Members = make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		snap.Members = append(snap.Members, *m)
	}
	return snap
}

// Load installs previously persisted record state. Call once at boot,
// before serving; the ledger must already hold the matching accounts.
func (s *Settlement) Load(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Ido != nil {
		ido := *snap.Ido
		s.ido = &ido
		s.idoAcdm = domain.TokenAddress(s.idoAddr, ido.AcdmMint)
		s.idoUsdc = domain.TokenAddress(s.idoAddr, ido.UsdcMint)
	}
	for i := range snap.Orders {
		o := snap.Orders[i]
		s.orders[o.ID] = &o
	}
	for i := range snap.Members {
		m := snap.Members[i]
		s.members[m.RecordAddress()] = &m
	}
	if snap.NextSeq > 0 {
		s.nextSeq = snap.NextSeq
	}
}

// Ido returns a copy of the sale record, false before initialize.
func (s *Settlement) Ido() (domain.Ido, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ido == nil {
		return domain.Ido{}, false
	}
	return *s.ido, true
}

// Order returns a copy of the listing with the given id.
func (s *Settlement) Order(id uint64) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// MemberOf returns a copy of an identity's membership record.
func (s *Settlement) MemberOf(authority domain.Address) (domain.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[domain.MemberAddress(authority)]
	if !ok {
		return domain.Member{}, false
	}
	return *m, true
}

// EscrowBalance returns a listing's remaining escrowed sale tokens.
func (s *Settlement) EscrowBalance(id uint64) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok || s.ido == nil {
		return 0, false
	}
	acct, err := s.ledger.Account(o.EscrowAddress(s.ido.AcdmMint))
	if err != nil {
		return 0, false
	}
	return acct.Balance(), true
}
