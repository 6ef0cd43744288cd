/*
Package generic provides the data model and primitives of the recovery engine.

PURPOSE:
  This package contains the calendar, money, record and persistence types
  the recovery calculator is built on. It holds no recovery rules; the
  recovery package layers overlap checks, proration and staleness on top.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A euro amount backed by decimal.Decimal
  - Identifiers: Type-safe IDs for applications, alterations and sessions

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing application/alteration IDs
  3. Explicit rounding: amounts keep full precision until Round is called

USAGE:
  rowAmount := generic.NewMoneyFromInt(300)
  share := rowAmount.Mul(decimal.NewFromInt(1)).Div(decimal.NewFromInt(3))
  total := share.Round() // 100.00

SEE ALSO:
  - time.go: TimePoint and month arithmetic
  - period.go: Closed date intervals and overlap
  - alteration.go: Applications, calculation rows and alterations
  - store.go: Persistence interfaces
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Euro amount
// =============================================================================

// MoneyPlaces is the number of decimals kept after rounding.
const MoneyPlaces int32 = 2

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value decimal.Decimal) Money { return Money{Value: value} }

func NewMoneyFromInt(value int64) Money { return Money{Value: decimal.NewFromInt(value)} }

// MustParseMoney parses a plain decimal string and panics on failure.
// Meant for fixtures and constants only.
func MustParseMoney(s string) Money {
	return Money{Value: decimal.RequireFromString(s)}
}

// ParseMoney parses a plain decimal string such as "1234.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(b Money) Money           { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money           { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money { return Money{Value: m.Value.Div(s)} }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) Equal(b Money) bool          { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool    { return m.Value.GreaterThan(b.Value) }

// Round rounds to cents, half away from zero (0.005 -> 0.01).
func (m Money) Round() Money { return Money{Value: m.Value.Round(MoneyPlaces)} }

// String renders the amount with exactly two decimals, e.g. "1234.50".
func (m Money) String() string { return m.Value.StringFixed(MoneyPlaces) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ApplicationID string
type AlterationID string
type SessionID string
