package domain

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Address is a 32-byte identity or record key. Record addresses are
// derived deterministically from a domain tag plus seed material, so a
// record's location can always be recomputed from its parent identity
// and never has to be trusted from caller input.
type Address [32]byte

// Derivation tags. Each record family gets its own tag so no two
// families' derived addresses can collide.
const (
	tagIdo    = "ido"
	tagOrder  = "order"
	tagMember = "member"
	tagToken  = "token"
)

// Derive computes the address for a domain tag and seed material.
func Derive(tag string, seeds ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, seed := range seeds {
		h.Write([]byte{0})
		h.Write(seed)
	}
	var a Address
	h.Sum(a[:0])
	return a
}

// IdoAddress returns the sale record's singleton address.
func IdoAddress() Address {
	return Derive(tagIdo)
}

// OrderAddress returns the record address for listing id.
func OrderAddress(id uint64) Address {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], id)
	return Derive(tagOrder, le[:])
}

// MemberAddress returns the membership record address for an identity.
func MemberAddress(authority Address) Address {
	return Derive(tagMember, authority[:])
}

// TokenAddress returns the canonical token account address for an
// owner and mint, the analogue of an associated token account.
func TokenAddress(owner, mint Address) Address {
	return Derive(tagToken, owner[:], mint[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// ParseAddress decodes a 64-character hex string.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != len(a) {
		return a, fmt.Errorf("invalid address %q: need %d bytes, got %d", s, len(a), len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// MarshalText implements encoding.TextMarshaler (JSON/YAML as hex).
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer so gorm persists addresses as hex text.
func (a Address) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Address", src)
	}
}
