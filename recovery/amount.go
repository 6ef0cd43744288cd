package recovery

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/citybenefits/recovery-engine/generic"
)

var amountNoise = strings.NewReplacer(
	" ", "",
	"\u00a0", "", // no-break space, Finnish thousands separator
	"\u202f", "", // narrow no-break space
	"\u20ac", "", // euro sign
	",", ".",
)

// ParseMonetaryAmount parses a euro amount as typed into the form:
// "1234.5", "1 234,50" and "1234,50 €" are all 1234.50. Blank input is
// ErrEmptyAmount; anything else that is not a non-negative decimal is
// ErrInvalidAmount.
func ParseMonetaryAmount(input string) (generic.Money, error) {
	cleaned := amountNoise.Replace(strings.TrimSpace(input))
	if cleaned == "" {
		return generic.Money{}, generic.ErrEmptyAmount
	}
	if strings.ContainsAny(cleaned, "eE") {
		return generic.Money{}, fmt.Errorf("%w: %q", generic.ErrInvalidAmount, input)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return generic.Money{}, fmt.Errorf("%w: %q", generic.ErrInvalidAmount, input)
	}
	if d.IsNegative() {
		return generic.Money{}, fmt.Errorf("%w: negative amount %q", generic.ErrInvalidAmount, input)
	}
	return generic.NewMoney(d), nil
}
