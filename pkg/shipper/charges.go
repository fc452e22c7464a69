package shipper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidCharge indicates a carrier's monetary amount could not be used.
var ErrInvalidCharge = errors.New("invalid charge")

// ParseCharge parses a carrier's total charge. It accepts an optional
// leading "$" and thousands separators and rejects negative amounts.
func ParseCharge(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "$")
	v = strings.ReplaceAll(v, ",", "")
	if v == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidCharge)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidCharge, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %s", ErrInvalidCharge, d)
	}
	return d, nil
}
