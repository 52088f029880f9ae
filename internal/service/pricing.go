package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ComputePrice returns price * (1 - discount/100) * nights for the stay
// [start, end), rounded half away from zero to cents.  All arithmetic is
// exact; rounding happens once at the end.
func ComputePrice(nightly, discountPercent decimal.Decimal, start, end time.Time) (decimal.Decimal, error) {
	nights := model.NightsBetween(start, end)
	if nights < 1 {
		return decimal.Zero, fmt.Errorf("%w: %d nights", ErrInvalidRange, nights)
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("%w: %s%% outside 0..100", ErrInvalidDiscount, discountPercent.String())
	}
	if nightly.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative nightly price", ErrInvalidInput)
	}
	factor := hundred.Sub(discountPercent).Div(hundred)
	total := nightly.Mul(factor).Mul(decimal.NewFromInt(int64(nights)))
	return total.Round(2), nil
}
