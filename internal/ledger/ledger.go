// Package ledger is the in-process token ledger: mints with tracked
// supply and token accounts keyed by derived addresses. Balances are
// unexported; the only way to move value is through the transfer
// primitives, and every debit requires an Authority matching the
// source account's owner (or the mint's authority for issuance).
package ledger

import (
	"errors"

	"github.com/lincot/solana-ido/internal/domain"
	"github.com/lincot/solana-ido/pkg/safe"
)

var (
	// ErrMintNotFound is returned when a mint address resolves to nothing.
	ErrMintNotFound = errors.New("mint not found")
	// ErrAccountNotFound is returned when a token account is missing.
	ErrAccountNotFound = errors.New("token account not found")
	// ErrAccountExists is returned when creating an account at an occupied address.
	ErrAccountExists = errors.New("token account already exists")
	// ErrMintMismatch is returned when a transfer crosses mints.
	ErrMintMismatch = errors.New("accounts have different mints")
	// ErrBadAuthority is returned when the presented authority does not
	// control the debited account or mint.
	ErrBadAuthority = errors.New("authority cannot sign for account")
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAccountNotEmpty is returned when closing an account that still
	// holds a balance.
	ErrAccountNotEmpty = errors.New("token account balance is not zero")
)

// Authority authorizes debits from accounts owned by its address.
// User authorities are constructed by the orchestrator after the
// command layer has authenticated the caller; derived authorities
// (treasury, order escrows) never leave the orchestrator.
type Authority struct {
	key domain.Address
}

// SignedBy returns the authority for an owner address.
func SignedBy(owner domain.Address) Authority {
	return Authority{key: owner}
}

// Mint is a token type with tracked supply.
type Mint struct {
	Addr      domain.Address
	Authority domain.Address
	supply    uint64
}

// Supply returns the mint's outstanding supply.
func (m *Mint) Supply() uint64 { return m.supply }

// Account is a token account. The balance is mutable only through the
// ledger's primitives.
type Account struct {
	Addr    domain.Address
	Mint    domain.Address
	Owner   domain.Address
	balance uint64
}

// Balance returns the account's current balance.
func (a *Account) Balance() uint64 { return a.balance }

// Ledger holds all mints and token accounts. It is not safe for
// concurrent use; the settlement engine serializes access.
type Ledger struct {
	mints    map[domain.Address]*Mint
	accounts map[domain.Address]*Account
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		mints:    make(map[domain.Address]*Mint),
		accounts: make(map[domain.Address]*Account),
	}
}

// CreateMint registers a mint. authority is the only identity allowed
// to issue new supply.
func (l *Ledger) CreateMint(addr, authority domain.Address) (*Mint, error) {
	if _, ok := l.mints[addr]; ok {
		return nil, ErrAccountExists
	}
	m := &Mint{Addr: addr, Authority: authority}
	l.mints[addr] = m
	return m, nil
}

// Mint looks up a mint.
func (l *Ledger) Mint(addr domain.Address) (*Mint, error) {
	m, ok := l.mints[addr]
	if !ok {
		return nil, ErrMintNotFound
	}
	return m, nil
}

// Account looks up a token account.
func (l *Ledger) Account(addr domain.Address) (*Account, error) {
	a, ok := l.accounts[addr]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

// Owner returns the owner of a token account and whether it exists.
func (l *Ledger) Owner(addr domain.Address) (domain.Address, bool) {
	a, ok := l.accounts[addr]
	if !ok {
		return domain.Address{}, false
	}
	return a.Owner, true
}

// CreateAccount creates an empty token account. When tx is non-nil the
// creation is undone on rollback.
func (l *Ledger) CreateAccount(tx *Tx, addr, mint, owner domain.Address) (*Account, error) {
	if _, ok := l.accounts[addr]; ok {
		return nil, ErrAccountExists
	}
	if _, ok := l.mints[mint]; !ok {
		return nil, ErrMintNotFound
	}
	a := &Account{Addr: addr, Mint: mint, Owner: owner}
	l.accounts[addr] = a
	if tx != nil {
		tx.record(func() { delete(l.accounts, addr) })
	}
	return a, nil
}

// Transfer moves amount from one account to another. The authority
// must sign for the source account's owner. A zero amount is a no-op.
func (l *Ledger) Transfer(tx *Tx, from, to domain.Address, amount uint64, auth Authority) error {
	src, ok := l.accounts[from]
	if !ok {
		return ErrAccountNotFound
	}
	dst, ok := l.accounts[to]
	if !ok {
		return ErrAccountNotFound
	}
	if src.Mint != dst.Mint {
		return ErrMintMismatch
	}
	if auth.key != src.Owner {
		return ErrBadAuthority
	}
	if amount == 0 {
		return nil
	}
	if amount > src.balance {
		return ErrInsufficientFunds
	}
	// A validated self-transfer is a net no-op.
	if src == dst {
		return nil
	}
	newDst, ok := safe.Add(dst.balance, amount)
	if !ok {
		return domain.ErrOverflow
	}
	l.setBalance(tx, src, src.balance-amount)
	l.setBalance(tx, dst, newDst)
	return nil
}

// MintTo issues amount into dest. The authority must be the mint's.
func (l *Ledger) MintTo(tx *Tx, dest domain.Address, amount uint64, auth Authority) error {
	dst, ok := l.accounts[dest]
	if !ok {
		return ErrAccountNotFound
	}
	m := l.mints[dst.Mint]
	if auth.key != m.Authority {
		return ErrBadAuthority
	}
	if amount == 0 {
		return nil
	}
	newSupply, ok := safe.Add(m.supply, amount)
	if !ok {
		return domain.ErrOverflow
	}
	newDst, ok := safe.Add(dst.balance, amount)
	if !ok {
		return domain.ErrOverflow
	}
	l.setSupply(tx, m, newSupply)
	l.setBalance(tx, dst, newDst)
	return nil
}

// Burn destroys amount held by from, signed by the account owner.
func (l *Ledger) Burn(tx *Tx, from domain.Address, amount uint64, auth Authority) error {
	src, ok := l.accounts[from]
	if !ok {
		return ErrAccountNotFound
	}
	if auth.key != src.Owner {
		return ErrBadAuthority
	}
	if amount == 0 {
		return nil
	}
	if amount > src.balance {
		return ErrInsufficientFunds
	}
	m := l.mints[src.Mint]
	l.setSupply(tx, m, m.supply-amount)
	l.setBalance(tx, src, src.balance-amount)
	return nil
}

// CloseAccount releases an empty token account.
func (l *Ledger) CloseAccount(tx *Tx, addr domain.Address, auth Authority) error {
	a, ok := l.accounts[addr]
	if !ok {
		return ErrAccountNotFound
	}
	if auth.key != a.Owner {
		return ErrBadAuthority
	}
	if a.balance != 0 {
		return ErrAccountNotEmpty
	}
	delete(l.accounts, addr)
	if tx != nil {
		tx.record(func() { l.accounts[addr] = a })
	}
	return nil
}

// Restore recreates an account with a balance, bypassing transfer
// rules. Used only when rebuilding state from storage.
func (l *Ledger) Restore(addr, mint, owner domain.Address, balance uint64) error {
	if _, err := l.CreateAccount(nil, addr, mint, owner); err != nil {
		return err
	}
	l.accounts[addr].balance = balance
	return nil
}

// RestoreSupply sets a mint's supply when rebuilding from storage.
func (l *Ledger) RestoreSupply(mint domain.Address, supply uint64) error {
	m, ok := l.mints[mint]
	if !ok {
		return ErrMintNotFound
	}
	m.supply = supply
	return nil
}

// Accounts returns a snapshot of every token account.
func (l *Ledger) Accounts() []Account {
	out := make([]Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, *a)
	}
	return out
}

// Mints returns a snapshot of every mint.
func (l *Ledger) Mints() []Mint {
	out := make([]Mint, 0, len(l.mints))
	for _, m := range l.mints {
		out = append(out, *m)
	}
	return out
}

func (l *Ledger) setBalance(tx *Tx, a *Account, v uint64) {
	if tx != nil {
		prev := a.balance
		tx.record(func() { a.balance = prev })
	}
	a.balance = v
}

func (l *Ledger) setSupply(tx *Tx, m *Mint, v uint64) {
	if tx != nil {
		prev := m.supply
		tx.record(func() { m.supply = prev })
	}
	m.supply = v
}
