package domain

import "errors"

var (
	// ErrAlreadyInitialized is returned when initialize is called twice.
	ErrAlreadyInitialized = errors.New("ido already initialized")

	// ErrNotInitialized is returned when an operation runs before initialize.
	ErrNotInitialized = errors.New("ido not initialized")

	// ErrInvalidRoundDuration is returned when the configured round time
	// is zero or negative.
	ErrInvalidRoundDuration = errors.New("invalid round duration")

	// ErrRoundAlreadyStarted is returned when a round transition targets
	// the state the record is already in.
	ErrRoundAlreadyStarted = errors.New("round already started")

	// ErrNotSaleRound is returned by operations legal only during the sale round.
	ErrNotSaleRound = errors.New("operation requires sale round")

	// ErrNotTradeRound is returned by operations legal only during the trade round.
	ErrNotTradeRound = errors.New("operation requires trade round")

	// ErrCannotEndRound is returned when the minimum round duration has
	// not yet elapsed for the requested transition.
	ErrCannotEndRound = errors.New("round cannot be ended yet")

	// ErrIdoOver is returned for any operation once the ido is over.
	ErrIdoOver = errors.New("ido is over")

	// ErrOverflow is returned when checked arithmetic would exceed uint64.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrUnauthorized is returned when the caller is not the identity an
	// operation is restricted to.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrMemberExists is returned when registering an already registered identity.
	ErrMemberExists = errors.New("member already registered")

	// ErrMemberMissing is returned when an operation requires the
	// principal's membership record and none exists.
	ErrMemberMissing = errors.New("member record not found")

	// ErrOrderNotFound is returned when a listing id resolves to nothing.
	ErrOrderNotFound = errors.New("order not found")

	// ErrRefererRecordMissing is returned when the referral chain requires
	// an upstream record or payout account that was not supplied.
	ErrRefererRecordMissing = errors.New("referer account not provided")

	// ErrRefererAccountCount is returned when the trailing referral
	// account list is not 0, 2 or 4 entries long.
	ErrRefererAccountCount = errors.New("referer account count must be 0, 2 or 4")

	// ErrRefererAddressMismatch is returned when a supplied referral
	// record does not match the address derived from the referer identity.
	ErrRefererAddressMismatch = errors.New("account is not the derived record of the referer")

	// ErrRefererOwnerMismatch is returned when a supplied payout
	// destination is not owned by the claimed referer.
	ErrRefererOwnerMismatch = errors.New("referer must own the payout account")
)

// OpError tags a failure with the settlement operation it occurred in.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err with the failing operation name.
func NewOpError(op string, err error) *OpError {
	return &OpError{Op: op, Err: err}
}
