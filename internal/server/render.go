package server

import "github.com/shopspring/decimal"

// displayAmount renders a raw token amount as a human-readable decimal
// string, e.g. 1_500_000 with 6 decimals -> "1.5". Raw uint64 units
// stay authoritative everywhere else; this is presentation only.
func displayAmount(raw uint64, decimals int32) string {
	return decimal.NewFromUint64(raw).Shift(-decimals).String()
}
