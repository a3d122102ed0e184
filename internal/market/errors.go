package market

import "errors"

// Every settlement failure is a whole-operation rejection: the engine
// never leaves partial state behind and never retries. Messages follow
// the rejection reasons the payment records contract established.
var (
	// ErrAlreadyListed indicates the listing key is already bound to an
	// active sale, or the token already has a live listing.
	ErrAlreadyListed = errors.New("the token is already listed for sale")
	// ErrInvalidPrice indicates the supplied price is not strictly positive.
	ErrInvalidPrice = errors.New("the price has to be greater than 0")
	// ErrNotForSale indicates payment against a key with no active listing.
	ErrNotForSale = errors.New("not for sale")
	// ErrIncorrectPrice indicates the attached value does not equal the price.
	ErrIncorrectPrice = errors.New("incorrect price")
	// ErrNotAuthorized indicates a withdrawal by someone other than the seller.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotAuthorizedFee indicates a fee withdrawal by someone other than
	// the admin.
	ErrNotAuthorizedFee = errors.New("not authorized to withdraw the fee")
	// ErrAlreadyWithdrawn indicates the claimed share was already paid out.
	ErrAlreadyWithdrawn = errors.New("funds have already been withdrawn")
	// ErrNothingToWithdraw indicates the listing has not produced a payout yet.
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
)
