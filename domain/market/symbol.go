package market

import (
	"errors"
	"fmt"
)

// ErrUnknownSymbol reports a ticker outside the traded universe.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Symbol identifies a tradable instrument by its ticker, with the
// issuer's display name carried along for human-readable output.
type Symbol struct {
	Name   string
	Ticker string
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Ticker)
}

// DefaultUniverse is the fixed set of instruments the venue trades when
// no universe is configured.
func DefaultUniverse() []Symbol {
	return []Symbol{
		{Name: "Parker", Ticker: "PAH"},
		{Name: "Jake", Ticker: "JJG"},
		{Name: "Zeke", Ticker: "BEL"},
		{Name: "Nate", Ticker: "NCW"},
		{Name: "Mike", Ticker: "MAK"},
	}
}
