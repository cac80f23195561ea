// Package money provides the fixed-precision decimal representation used for
// all monetary values. Amounts are carried as shopspring decimals internally
// and cross every boundary as strings with exactly six fractional digits.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits kept for monetary amounts.
const Precision = 6

// Zero is the zero amount.
var Zero = decimal.Zero

// Parse converts a decimal string into an exact amount. It rejects anything
// decimal.NewFromString rejects, which includes binary float formatting
// artifacts like "1e-7" being fine but "NaN" and empty strings failing.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse amount %q", s)
	}
	return d, nil
}

// MustParse is Parse for trusted literals, panicking on malformed input.
// Intended for tests and seed data only.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Round rounds an amount to the canonical six-digit precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// Format renders an amount with exactly six fractional digits, e.g.
// "12.500000". This is the only serialization used on the wire and in
// storage records.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Precision)
}
