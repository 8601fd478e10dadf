package engine

import (
	"github.com/lincot/solana-ido/internal/domain"
	"github.com/lincot/solana-ido/internal/ledger"
)

// CreateTokenAccount creates the canonical token account for an owner
// and mint and returns its address. Command-surface helper; creating
// an account moves no value.
func (s *Settlement) CreateTokenAccount(owner, mint domain.Address) (domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := domain.TokenAddress(owner, mint)
	if _, err := s.ledger.CreateAccount(nil, addr, mint, owner); err != nil {
		return domain.Address{}, err
	}
	return addr, nil
}

// Airdrop mints amount into owner's canonical token account. The
// caller must be the mint authority. Used to fund participants on
// devnet deployments.
func (s *Settlement) Airdrop(caller, owner, mint domain.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dest := domain.TokenAddress(owner, mint)
	tx := s.ledger.Begin()
	defer tx.Rollback()
	if err := s.ledger.MintTo(tx, dest, amount, ledger.SignedBy(caller)); err != nil {
		return err
	}
	tx.Commit()
	return nil
}

// Balance returns a token account's balance, false when it is missing.
func (s *Settlement) Balance(addr domain.Address) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, err := s.ledger.Account(addr)
	if err != nil {
		return 0, false
	}
	return acct.Balance(), true
}
