package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"outcry/domain/market"
)

type Type string

const (
	TypeAdd      Type = "ADD"
	TypeRemove   Type = "REMOVE"
	TypeBook     Type = "BOOK"
	TypeHelp     Type = "HELP"
	TypeMyOrders Type = "MY ORDERS"
)

// AllBooks is the BOOK payload selecting every symbol.
const AllBooks = "ALL"

// ErrMalformed reports a request that does not decode to any message
// type. Recoverable per message; the session stays open.
var ErrMalformed = errors.New("malformed message")

// SymbolTable resolves tickers against the traded universe.
type SymbolTable interface {
	Lookup(ticker string) (market.Symbol, bool)
}

// Message is one decoded protocol request.
type Message struct {
	Type  Type
	Order *market.Order // TypeAdd
	Seq   uint64        // TypeRemove: the target order's sequence number
	Ticker string       // TypeBook, empty when All
	All    bool         // TypeBook: BOOK-ALL
}

// Parse decodes one framed line into a Message. Symbols are resolved
// eagerly so a bad ticker is rejected before any book is touched.
func Parse(line string, symbols SymbolTable) (Message, error) {
	switch line {
	case string(TypeHelp):
		return Message{Type: TypeHelp}, nil
	case string(TypeMyOrders):
		return Message{Type: TypeMyOrders}, nil
	}

	verb, payload, ok := strings.Cut(line, "-")
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}

	switch Type(verb) {
	case TypeAdd:
		o, err := parseOrder(payload, symbols)
		if err != nil {
			return Message{}, err
		}
		return Message{Type: TypeAdd, Order: o}, nil

	case TypeRemove:
		seq, err := strconv.ParseUint(payload, 10, 64)
		if err != nil {
			return Message{}, fmt.Errorf("%w: bad order id %q", ErrMalformed, payload)
		}
		return Message{Type: TypeRemove, Seq: seq}, nil

	case TypeBook:
		if payload == AllBooks {
			return Message{Type: TypeBook, All: true}, nil
		}
		sym, ok := symbols.Lookup(payload)
		if !ok {
			return Message{}, fmt.Errorf("%w: %q", market.ErrUnknownSymbol, payload)
		}
		return Message{Type: TypeBook, Ticker: sym.Ticker}, nil

	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, verb)
	}
}

// parseOrder decodes the ADD payload: TICKER|SIDE|AMOUNT|PRICE.
func parseOrder(payload string, symbols SymbolTable) (*market.Order, error) {
	fields := strings.Split(payload, "|")
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: want TICKER|SIDE|AMOUNT|PRICE, got %q", ErrMalformed, payload)
	}
	sym, ok := symbols.Lookup(fields[0])
	if !ok {
		return nil, fmt.Errorf("%w: %q", market.ErrUnknownSymbol, fields[0])
	}
	side, err := market.ParseSide(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	amount, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || amount <= 0 {
		return nil, fmt.Errorf("%w: bad amount %q", ErrMalformed, fields[2])
	}
	price, err := decimal.NewFromString(fields[3])
	if err != nil {
		return nil, fmt.Errorf("%w: bad price %q", ErrMalformed, fields[3])
	}
	return &market.Order{Symbol: sym, Side: side, Price: price, Amount: amount}, nil
}

// Serialize renders the message back to its wire form.
func (m Message) Serialize() string {
	switch m.Type {
	case TypeAdd:
		o := m.Order
		return fmt.Sprintf("%s-%s|%s|%d|%s", TypeAdd, o.Symbol.Ticker, o.Side, o.Amount, o.Price)
	case TypeRemove:
		return fmt.Sprintf("%s-%d", TypeRemove, m.Seq)
	case TypeBook:
		if m.All {
			return fmt.Sprintf("%s-%s", TypeBook, AllBooks)
		}
		return fmt.Sprintf("%s-%s", TypeBook, m.Ticker)
	default:
		return string(m.Type)
	}
}

// HelpText is the static reply to a HELP request.
const HelpText = `AVAILABLE COMMANDS:
  ADD-<TICKER>|<SIDE>|<AMOUNT>|<PRICE>   place a limit order (SIDE is BUY or SELL)
  REMOVE-<ORDER_ID>                      cancel one of your open orders
  BOOK-<TICKER>                          show one order book
  BOOK-ALL                               show every order book
  MY ORDERS                              list your open orders
  HELP                                   show this text`
