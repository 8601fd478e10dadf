// Package referral validates referral chains and plans fee payouts.
//
// A value-moving operation carries a trailing account list of 0, 2 or 4
// addresses: [r1 record, r1 payout, r2 record, r2 payout]. Referer
// identities are never taken from that list; they come from the
// originating membership record, and each supplied record address is
// re-derived from the identity it claims to represent. A forged record
// fails before any value moves.
package referral

import "github.com/lincot/solana-ido/internal/domain"

// MemberSource resolves membership records by their derived address.
type MemberSource interface {
	Member(record domain.Address) (*domain.Member, bool)
}

// OwnerSource resolves a token account's owner.
type OwnerSource interface {
	Owner(account domain.Address) (domain.Address, bool)
}

// Payout is a single fee transfer to a proven referer.
type Payout struct {
	To     domain.Address
	Amount uint64
}

// Plan is the outcome of chain validation: at most two tier payouts
// plus whatever remains for the treasury.
type Plan struct {
	Payouts  []Payout
	Treasury uint64
	// Seller is the non-fee remainder owed to the counterparty.
	Seller uint64
}

// ValidateCount checks the trailing account list shape.
func ValidateCount(accounts []domain.Address) error {
	switch len(accounts) {
	case 0, 2, 4:
		return nil
	default:
		return domain.ErrRefererAccountCount
	}
}

// VerifyRecord proves that record is the derived membership record of
// referer and returns the membership stored there.
func VerifyRecord(referer, record domain.Address, members MemberSource) (*domain.Member, error) {
	if record != domain.MemberAddress(referer) {
		return nil, domain.ErrRefererAddressMismatch
	}
	m, ok := members.Member(record)
	if !ok {
		return nil, domain.ErrRefererRecordMissing
	}
	return m, nil
}

// BuildPlan walks the referral chain of the originating membership and
// allocates the split's tier shares to proven referers. Unclaimed tier
// shares stay with the treasury.
func BuildPlan(origin *domain.Member, split domain.Split, accounts []domain.Address,
	members MemberSource, tokens OwnerSource) (Plan, error) {
	if err := ValidateCount(accounts); err != nil {
		return Plan{}, err
	}

	plan := Plan{Treasury: split.Treasury, Seller: split.Seller}
	if origin.Referer == nil {
		return plan, nil
	}

	if len(accounts) < 2 {
		return Plan{}, domain.ErrRefererRecordMissing
	}
	r1, err := VerifyRecord(*origin.Referer, accounts[0], members)
	if err != nil {
		return Plan{}, err
	}
	if owner, ok := tokens.Owner(accounts[1]); !ok || owner != *origin.Referer {
		return Plan{}, domain.ErrRefererOwnerMismatch
	}
	plan.Treasury -= split.Tier1
	plan.Payouts = append(plan.Payouts, Payout{To: accounts[1], Amount: split.Tier1})

	if r1.Referer == nil {
		return plan, nil
	}

	if len(accounts) < 4 {
		return Plan{}, domain.ErrRefererRecordMissing
	}
	if _, err := VerifyRecord(*r1.Referer, accounts[2], members); err != nil {
		return Plan{}, err
	}
	if owner, ok := tokens.Owner(accounts[3]); !ok || owner != *r1.Referer {
		return Plan{}, domain.ErrRefererOwnerMismatch
	}
	plan.Treasury -= split.Tier2
	plan.Payouts = append(plan.Payouts, Payout{To: accounts[3], Amount: split.Tier2})

	return plan, nil
}
