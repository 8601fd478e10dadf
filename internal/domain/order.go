package domain

// Order is a seller's escrowed listing. The escrowed sale-token
// balance is not a field here: it lives in the listing's escrow
// sub-account (TokenAddress(OrderAddress(id), acdm mint)) and the
// account balance is the sole bound on redemption.
type Order struct {
	// ID is the sale record's order counter at creation. Never reused.
	ID uint64
	// Authority is the seller; only it may remove the listing.
	Authority Address
	// Price is the fixed per-unit price in stable units, immutable.
	Price uint64
}

// RecordAddress returns the listing's derived record address.
func (o *Order) RecordAddress() Address {
	return OrderAddress(o.ID)
}

// EscrowAddress returns the listing's escrow sub-account for mint.
func (o *Order) EscrowAddress(mint Address) Address {
	return TokenAddress(o.RecordAddress(), mint)
}
