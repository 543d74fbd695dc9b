package book

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"outcry/domain/market"
)

var (
	// ErrOrderNotOpen reports a cancel or lookup against an id that is
	// not resting in the book.
	ErrOrderNotOpen = errors.New("order no longer open")
	// ErrSymbolMismatch reports an order routed to the wrong book.
	ErrSymbolMismatch = errors.New("order symbol does not match book")
)

// OrderID uniquely identifies an order for the lifetime of the
// process: the originating connection plus the message's sequence
// number within that connection.
type OrderID struct {
	Conn uuid.UUID
	Seq  uint64
}

func (id OrderID) String() string {
	return fmt.Sprintf("%d", id.Seq)
}

// Fill records one leg of a match: the resting order's id, a snapshot
// of that order taken before the fill, and a synthetic trade record
// carrying the fill size and strike price.
type Fill struct {
	ID     OrderID
	Before market.Order
	Trade  market.Order
}

// Full reports whether the leg consumed the resting order entirely.
func (f Fill) Full() bool {
	return f.Before.Amount <= f.Trade.Amount
}

// Book is the resident order book for one symbol. It is not safe for
// concurrent use; the registry serializes access per symbol.
type Book struct {
	symbol market.Symbol
	arena  arena
	bids   list
	asks   list
	open   map[OrderID]int
}

func New(symbol market.Symbol) *Book {
	b := &Book{
		symbol: symbol,
		open:   make(map[OrderID]int),
	}
	b.bids = newList(&b.arena)
	b.asks = newList(&b.arena)
	return b
}

func (b *Book) Symbol() market.Symbol { return b.symbol }

// Depth returns the number of resting bids and asks.
func (b *Book) Depth() (bids, asks int) {
	return b.bids.len(), b.asks.len()
}

// Add inserts the order at the position that preserves price-time
// priority and immediately attempts matching. The returned fills come
// in bid-leg/ask-leg pairs, in execution order. The book takes
// ownership of the order record.
func (b *Book) Add(o *market.Order, id OrderID) ([]Fill, error) {
	if !o.Side.Valid() {
		return nil, fmt.Errorf("%w: %q", market.ErrInvalidSide, string(o.Side))
	}
	if o.Symbol.Ticker != b.symbol.Ticker {
		return nil, fmt.Errorf("%w: %s into %s", ErrSymbolMismatch, o.Symbol.Ticker, b.symbol.Ticker)
	}

	n := b.arena.alloc(id, o)

	// Linear scan from the head; stop at the first strictly worse
	// price so ties keep the resting order ahead.
	switch o.Side {
	case market.Buy:
		at := b.bids.head
		for at != none {
			if o.Price.GreaterThan(b.arena.nodes[at].order.Price) {
				break
			}
			at = b.arena.nodes[at].next
		}
		if at == none {
			b.bids.pushBack(n)
		} else {
			b.bids.insertBefore(n, at)
		}
	case market.Sell:
		at := b.asks.head
		for at != none {
			if o.Price.LessThan(b.arena.nodes[at].order.Price) {
				break
			}
			at = b.arena.nodes[at].next
		}
		if at == none {
			b.asks.pushBack(n)
		} else {
			b.asks.insertBefore(n, at)
		}
	}

	b.open[id] = n
	return b.match(o.Side), nil
}

// Remove unlinks the order from its side and drops the index entry.
// O(1); the lists are never scanned for removal.
func (b *Book) Remove(id OrderID) error {
	n, ok := b.open[id]
	if !ok {
		return fmt.Errorf("%w: id %s", ErrOrderNotOpen, id)
	}
	if b.arena.nodes[n].order.Side == market.Buy {
		b.bids.unlink(n)
	} else {
		b.asks.unlink(n)
	}
	delete(b.open, id)
	b.arena.release(n)
	return nil
}

// OpenOrder returns the live order resting under id.
func (b *Book) OpenOrder(id OrderID) (*market.Order, error) {
	n, ok := b.open[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrOrderNotOpen, id)
	}
	return b.arena.nodes[n].order, nil
}

// EachOpen visits every resting order, bids first (best to worst),
// then asks.
func (b *Book) EachOpen(visit func(id OrderID, o *market.Order)) {
	for n := b.bids.head; n != none; n = b.arena.nodes[n].next {
		visit(b.arena.nodes[n].id, b.arena.nodes[n].order)
	}
	for n := b.asks.head; n != none; n = b.arena.nodes[n].next {
		visit(b.arena.nodes[n].id, b.arena.nodes[n].order)
	}
}

// match crosses the book after an add. aggressor is the side of the
// just-added order: the strike price is always taken from the
// aggressor's own side of the book, so the incoming order pays or
// receives its own limit rather than the resting price.
func (b *Book) match(aggressor market.Side) []Fill {
	bid, ask := b.bids.head, b.asks.head
	if bid == none || ask == none {
		return nil
	}
	bidOrd := b.arena.nodes[bid].order
	askOrd := b.arena.nodes[ask].order

	var fills []Fill
	for bidOrd.Price.GreaterThanOrEqual(askOrd.Price) {
		var strike = askOrd.Price
		if aggressor == market.Buy {
			strike = bidOrd.Price
		}
		size := min(bidOrd.Amount, askOrd.Amount)

		fills = append(fills,
			Fill{
				ID:     b.arena.nodes[bid].id,
				Before: *bidOrd,
				Trade:  market.Order{Symbol: b.symbol, Side: market.Buy, Price: strike, Amount: size},
			},
			Fill{
				ID:     b.arena.nodes[ask].id,
				Before: *askOrd,
				Trade:  market.Order{Symbol: b.symbol, Side: market.Sell, Price: strike, Amount: size},
			},
		)

		done := false
		if bidOrd.Amount > size {
			bidOrd.Amount -= size
		} else {
			_ = b.Remove(b.arena.nodes[bid].id)
			bid = b.bids.head
			if bid == none {
				done = true
			} else {
				bidOrd = b.arena.nodes[bid].order
			}
		}
		if askOrd.Amount > size {
			askOrd.Amount -= size
		} else {
			_ = b.Remove(b.arena.nodes[ask].id)
			ask = b.asks.head
			if ask == none {
				done = true
			} else {
				askOrd = b.arena.nodes[ask].order
			}
		}
		if done {
			break
		}
	}
	return fills
}
