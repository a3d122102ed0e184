package market

import (
	"github.com/holiman/uint256"
	"github.com/nftrack/nftrack/internal/market/storage"
)

// Platform commission: 2% of the sale price, truncating division. The
// arithmetic must match the payment contract bit for bit, so the fee is
// price*2/100 with the remainder going to the seller.
const (
	feeNumerator   = 2
	feeDenominator = 100
)

// SplitPrice divides a sale price into the seller's payment and the
// platform fee. payment + fee always equals price.
func SplitPrice(price *uint256.Int) (payment, fee *uint256.Int) {
	fee = new(uint256.Int).Mul(price, uint256.NewInt(feeNumerator))
	fee.Div(fee, uint256.NewInt(feeDenominator))
	payment = new(uint256.Int).Sub(price, fee)
	return payment, fee
}

// ApplySale settles one payment against a record: it validates the
// attached value, accumulates the fee split, and zeroes the price so any
// later payment against the same key fails with ErrNotForSale. The input
// record is returned updated; callers commit it before moving the token
// or any value.
func ApplySale(record storage.PaymentRecord, value *uint256.Int) (storage.PaymentRecord, error) {
	if (&record.Price).IsZero() {
		return storage.PaymentRecord{}, ErrNotForSale
	}
	if value == nil || !value.Eq(&record.Price) {
		return storage.PaymentRecord{}, ErrIncorrectPrice
	}

	payment, fee := SplitPrice(&record.Price)
	(&record.Payment).Add(&record.Payment, payment)
	(&record.Fee).Add(&record.Fee, fee)
	(&record.Price).Clear()
	return record, nil
}
