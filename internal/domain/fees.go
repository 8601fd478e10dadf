package domain

import "github.com/lincot/solana-ido/pkg/safe"

// Split is the fee breakdown of a gross stable payment. Treasury is
// the portion initially routed to the treasury; the referral router
// deducts Tier1/Tier2 from it as referers are proven. Tier shares that
// go unclaimed stay with the treasury, so the parts always reconcile
// to Gross exactly.
type Split struct {
	Gross    uint64
	Treasury uint64
	Tier1    uint64
	Tier2    uint64
	// Seller is the non-fee remainder paid directly to the counterparty.
	// Zero for direct sale purchases, where the treasury is the seller.
	Seller uint64
}

// RedeemSplit computes the split for a secondary-market redemption:
// platform fee 5% of gross, halved between the two referral tiers,
// seller receives the other 95%. Division truncates; the first tier's
// rounding loss lands in the second tier's share.
func RedeemSplit(amount, price uint64) (Split, error) {
	gross, ok := safe.Mul(amount, price)
	if !ok {
		return Split{}, ErrOverflow
	}
	fee := gross / 20
	tier1 := fee / 2
	return Split{
		Gross:    gross,
		Treasury: fee,
		Tier1:    tier1,
		Tier2:    fee - tier1,
		Seller:   gross - fee,
	}, nil
}

// BuySplit computes the split for a direct sale purchase: the whole
// gross goes to the treasury, less 5% for the first referral tier and
// 3% for the second.
func BuySplit(amount, price uint64) (Split, error) {
	gross, ok := safe.Mul(amount, price)
	if !ok {
		return Split{}, ErrOverflow
	}
	tier2Scaled, ok := safe.Mul(gross, 3)
	if !ok {
		return Split{}, ErrOverflow
	}
	return Split{
		Gross:    gross,
		Treasury: gross,
		Tier1:    gross / 20,
		Tier2:    tier2Scaled / 100,
	}, nil
}
