package service

import (
	"fmt"
	"sort"
	"sync"

	"outcry/domain/book"
	"outcry/domain/market"
)

type entry struct {
	mu   sync.Mutex
	book *book.Book
}

// Registry holds one book and one exclusive lock per traded symbol,
// created eagerly at startup and never destroyed. WithLock is the
// only permitted path to a book's mutable state.
type Registry struct {
	symbols []market.Symbol
	entries map[string]*entry
}

// NewRegistry builds the registry for a fixed universe. Symbols are
// kept sorted by ticker so BOOK-ALL output is stable.
func NewRegistry(universe []market.Symbol) *Registry {
	symbols := append([]market.Symbol(nil), universe...)
	sort.Slice(symbols, func(i, j int) bool {
		return symbols[i].Ticker < symbols[j].Ticker
	})

	entries := make(map[string]*entry, len(symbols))
	for _, sym := range symbols {
		entries[sym.Ticker] = &entry{book: book.New(sym)}
	}
	return &Registry{symbols: symbols, entries: entries}
}

// Symbols returns the traded universe, sorted by ticker.
func (r *Registry) Symbols() []market.Symbol {
	return r.symbols
}

// Lookup resolves a ticker. Implements protocol.SymbolTable.
func (r *Registry) Lookup(ticker string) (market.Symbol, bool) {
	e, ok := r.entries[ticker]
	if !ok {
		return market.Symbol{}, false
	}
	return e.book.Symbol(), true
}

// WithLock runs fn against the symbol's book while holding that
// symbol's lock, releasing it even if fn fails, and propagates fn's
// error.
func (r *Registry) WithLock(ticker string, fn func(*book.Book) error) error {
	e, ok := r.entries[ticker]
	if !ok {
		return fmt.Errorf("%w: %q", market.ErrUnknownSymbol, ticker)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.book)
}
