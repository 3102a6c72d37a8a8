// Package xdecimal is the fixed-point type used for every monetary or
// quantity value in the trading engine. float64 is never used for prices,
// sizes, or PnL: it is a thin wrapper over shopspring/decimal that adds the
// zero-value and display behavior the rest of the codebase relies on.
package xdecimal

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimal wraps decimal.Decimal. The zero value is a valid, well-formed
// zero (decimal.Decimal's zero value is already 0, so no constructor is
// required to get a usable Decimal).
type Decimal struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{}

// New builds a Decimal from an integer mantissa and base-10 exponent,
// matching decimal.New's semantics (value = mantissa * 10^exp).
func New(mantissa int64, exp int32) Decimal {
	return Decimal{d: decimal.New(mantissa, exp)}
}

// NewFromInt builds a Decimal from a whole number.
func NewFromInt(v int64) Decimal {
	return Decimal{d: decimal.NewFromInt(v)}
}

// NewFromFloat builds a Decimal from a float64. Only use this at system
// boundaries (e.g. converting a third-party JSON number); never round-trip
// through float64 for values already held as Decimal.
func NewFromFloat(v float64) Decimal {
	return Decimal{d: decimal.NewFromFloat(v)}
}

// ParseString parses a base-10 string such as "123.456".
func ParseString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("xdecimal: parse %q: %w", s, err)
	}
	return Decimal{d: d}, nil
}

// MustParse is ParseString that panics on error; reserved for parsing
// compile-time constants (e.g. test fixtures, tick-size literals).
func MustParse(s string) Decimal {
	d, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Decimal) Add(other Decimal) Decimal { return Decimal{d: d.d.Add(other.d)} }
func (d Decimal) Sub(other Decimal) Decimal { return Decimal{d: d.d.Sub(other.d)} }
func (d Decimal) Mul(other Decimal) Decimal { return Decimal{d: d.d.Mul(other.d)} }

// Div divides by other. Hyperliquid quantities never require more than 18
// fractional digits; DivRound keeps the result at that precision.
func (d Decimal) Div(other Decimal) Decimal {
	return Decimal{d: d.d.DivRound(other.d, 18)}
}

func (d Decimal) Neg() Decimal  { return Decimal{d: d.d.Neg()} }
func (d Decimal) Abs() Decimal  { return Decimal{d: d.d.Abs()} }
func (d Decimal) IsZero() bool  { return d.d.IsZero() }
func (d Decimal) IsNeg() bool   { return d.d.Sign() < 0 }
func (d Decimal) IsPos() bool   { return d.d.Sign() > 0 }
func (d Decimal) Sign() int     { return d.d.Sign() }

// Cmp returns -1, 0, 1 as d is less than, equal to, or greater than other.
func (d Decimal) Cmp(other Decimal) int { return d.d.Cmp(other.d) }

func (d Decimal) LessThan(other Decimal) bool      { return d.d.LessThan(other.d) }
func (d Decimal) LessThanOrEqual(other Decimal) bool  { return d.d.LessThanOrEqual(other.d) }
func (d Decimal) GreaterThan(other Decimal) bool   { return d.d.GreaterThan(other.d) }
func (d Decimal) GreaterThanOrEqual(other Decimal) bool { return d.d.GreaterThanOrEqual(other.d) }
func (d Decimal) Equal(other Decimal) bool         { return d.d.Equal(other.d) }

// Min/Max pick the smaller or larger of two values (the account tracker
// uses Min to size the closed portion of a position).
func Min(a, b Decimal) Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func Max(a, b Decimal) Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Round rounds to the given number of decimal places, half-away-from-zero.
func (d Decimal) Round(places int32) Decimal { return Decimal{d: d.d.Round(places)} }

// Truncate drops digits past places without rounding, used for tick/lot
// clamping where rounding up would exceed venue limits.
func (d Decimal) Truncate(places int32) Decimal { return Decimal{d: d.d.Truncate(places)} }

func (d Decimal) String() string { return d.d.String() }

// Float64 is a lossy conversion for display/logging/metrics only; never
// feed the result back into accounting logic.
func (d Decimal) Float64() float64 {
	f, _ := d.d.Float64()
	return f
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return d.d.MarshalJSON()
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	return d.d.UnmarshalJSON(data)
}

func (d Decimal) MarshalText() ([]byte, error) {
	return d.d.MarshalText()
}

func (d *Decimal) UnmarshalText(text []byte) error {
	return d.d.UnmarshalText(text)
}

// Value implements driver.Valuer so Decimal can be persisted directly by
// database/sql-backed stores, matching decimal.Decimal's own support.
func (d Decimal) Value() (driver.Value, error) { return d.d.Value() }

func (d *Decimal) Scan(value interface{}) error {
	return d.d.Scan(value)
}
