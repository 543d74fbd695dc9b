package market

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ErrInvalidSide reports a side that is neither BUY nor SELL.
var ErrInvalidSide = errors.New("invalid order side")

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

func (s Side) String() string { return string(s) }

// ParseSide maps wire text onto a Side.
func ParseSide(text string) (Side, error) {
	switch Side(text) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, text)
	}
}

// Order is a resting limit order. Amount is the remaining quantity and
// shrinks as the order is partially filled; the book owns the record
// once it has been added.
type Order struct {
	Symbol Symbol
	Side   Side
	Price  decimal.Decimal
	Amount int64
}

// Copy returns a detached snapshot of the order, safe to hold across
// later mutations of the original.
func (o *Order) Copy() *Order {
	c := *o
	return &c
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %d @ %s", o.Symbol, o.Side, o.Amount, o.Price)
}
