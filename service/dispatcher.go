package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"outcry/domain/book"
	"outcry/domain/market"
	"outcry/feed"
	"outcry/infra/outbox"
	"outcry/infra/sequence"
	"outcry/metrics"
	"outcry/protocol"
)

// Client is one connected order session, addressable for both the
// synchronous reply and asynchronous fill notifications.
type Client interface {
	ID() uuid.UUID
	Send(text string) error
}

// ClientLookup resolves a connection id to its live session, if any.
type ClientLookup interface {
	Client(id uuid.UUID) (Client, bool)
}

// ClientLookupFunc adapts a function to ClientLookup, letting the
// transport be bound after the dispatcher is constructed.
type ClientLookupFunc func(id uuid.UUID) (Client, bool)

func (f ClientLookupFunc) Client(id uuid.UUID) (Client, bool) { return f(id) }

// Request is one decoded message together with its assigned sequence
// number and originating connection.
type Request struct {
	Conn uuid.UUID
	Seq  uint64
	Msg  protocol.Message
}

// Dispatcher maps each decoded message to exactly one registry
// operation, holding the symbol's lock for the whole add/match or
// remove call. Replies, fill notifications, and broadcast events are
// all sent after the lock is released.
type Dispatcher struct {
	reg     *Registry
	feed    *feed.Broadcaster
	clients ClientLookup
	tape    *outbox.Outbox // nil disables the trade tape
	metrics *metrics.Metrics
	log     *zap.Logger

	tapeSeq *sequence.Sequencer

	// routes maps every open order to its symbol so REMOVE needs no
	// book scan. Guarded by mu, not by any symbol lock.
	mu     sync.Mutex
	routes map[book.OrderID]string
}

// NewDispatcher wires all dependencies. No globals.
func NewDispatcher(
	reg *Registry,
	bc *feed.Broadcaster,
	clients ClientLookup,
	tape *outbox.Outbox,
	m *metrics.Metrics,
	log *zap.Logger,
) *Dispatcher {
	var start uint64
	if tape != nil {
		s, err := tape.MaxSeq()
		if err != nil {
			log.Warn("tape sequence not recovered", zap.Error(err))
		} else {
			start = s
		}
	}
	return &Dispatcher{
		reg:     reg,
		feed:    bc,
		clients: clients,
		tape:    tape,
		metrics: m,
		log:     log,
		tapeSeq: sequence.New(start),
		routes:  make(map[book.OrderID]string),
	}
}

// Dispatch executes one request and sends the confirmation to the
// originating client, then walks any fill events. Domain and protocol
// failures become user-visible text here; they never propagate out.
func (d *Dispatcher) Dispatch(req Request, from Client) {
	switch req.Msg.Type {
	case protocol.TypeAdd:
		d.handleAdd(req, from)
	case protocol.TypeRemove:
		d.handleRemove(req, from)
	case protocol.TypeBook:
		d.handleBook(req, from)
	case protocol.TypeHelp:
		d.send(from, protocol.HelpText)
	case protocol.TypeMyOrders:
		d.handleMyOrders(req, from)
	default:
		d.send(from, ErrorText(fmt.Errorf("%w: unhandled type %q", protocol.ErrMalformed, req.Msg.Type)))
	}
}

// -------------------- ADD --------------------

func (d *Dispatcher) handleAdd(req Request, from Client) {
	o := req.Msg.Order
	id := book.OrderID{Conn: req.Conn, Seq: req.Seq}

	// Snapshot before the book takes ownership; only this copy is used
	// for notification text.
	placed := o.Copy()

	var fills []book.Fill
	err := d.reg.WithLock(o.Symbol.Ticker, func(b *book.Book) error {
		f, err := b.Add(o, id)
		if err != nil {
			return err
		}
		fills = f
		bids, asks := b.Depth()
		d.metrics.SetBookDepth(b.Symbol().Ticker, bids, asks)
		return nil
	})
	if err != nil {
		d.send(from, ErrorText(err))
		return
	}

	d.mu.Lock()
	d.routes[id] = o.Symbol.Ticker
	d.mu.Unlock()

	d.metrics.OrderPlaced()
	d.send(from, fmt.Sprintf("ORDER PLACED [%d]: %s", req.Seq, placed))
	d.feed.Publish("ORDER PLACED: " + placed.String())
	d.settle(fills)
}

// settle walks the fill events of one add: per leg, a broadcast line
// and a notification to the originating client; per bid/ask pair, one
// tape record.
func (d *Dispatcher) settle(fills []book.Fill) {
	for i, f := range fills {
		d.feed.Publish("ORDER FILLED: " + f.Trade.String())

		var text string
		if f.Full() {
			text = fmt.Sprintf("ORDER [%d] FULLY FILLED: %s", f.ID.Seq, f.Trade)
		} else {
			remaining := f.Before.Amount - f.Trade.Amount
			text = fmt.Sprintf("ORDER [%d] PARTIALLY FILLED: %s (%d REMAINING)", f.ID.Seq, f.Trade, remaining)
		}
		if c, ok := d.clients.Client(f.ID.Conn); ok {
			if err := c.Send(text); err != nil {
				d.log.Warn("fill notice not delivered",
					zap.Stringer("conn", f.ID.Conn), zap.Uint64("order", f.ID.Seq), zap.Error(err))
			}
		} else {
			d.log.Warn("fill counterparty disconnected",
				zap.Stringer("conn", f.ID.Conn), zap.Uint64("order", f.ID.Seq))
		}

		if f.Full() {
			d.mu.Lock()
			delete(d.routes, f.ID)
			d.mu.Unlock()
		}

		// fills arrive as bid-leg/ask-leg pairs; the pair is one trade
		if i%2 == 0 {
			d.metrics.TradeExecuted()
			d.recordTrade(f.Trade)
		}
	}
}

func (d *Dispatcher) recordTrade(trade market.Order) {
	if d.tape == nil {
		return
	}
	t := outbox.Trade{
		V:      1,
		Ticker: trade.Symbol.Ticker,
		Price:  trade.Price.String(),
		Size:   trade.Amount,
		Time:   time.Now().UnixNano(),
	}
	payload, err := t.Encode()
	if err != nil {
		d.log.Warn("tape record not encoded", zap.Error(err))
		return
	}
	if err := d.tape.Put(d.tapeSeq.Next(), payload); err != nil {
		d.log.Warn("tape record not stored", zap.Error(err))
	}
}

// -------------------- REMOVE --------------------

func (d *Dispatcher) handleRemove(req Request, from Client) {
	id := book.OrderID{Conn: req.Conn, Seq: req.Msg.Seq}

	d.mu.Lock()
	ticker, ok := d.routes[id]
	d.mu.Unlock()
	if !ok {
		d.send(from, ErrorText(book.ErrOrderNotOpen))
		return
	}

	var removed *market.Order
	err := d.reg.WithLock(ticker, func(b *book.Book) error {
		o, err := b.OpenOrder(id)
		if err != nil {
			return err
		}
		removed = o.Copy()
		if err := b.Remove(id); err != nil {
			return err
		}
		bids, asks := b.Depth()
		d.metrics.SetBookDepth(b.Symbol().Ticker, bids, asks)
		return nil
	})
	if err != nil {
		d.send(from, ErrorText(err))
		return
	}

	d.mu.Lock()
	delete(d.routes, id)
	d.mu.Unlock()

	d.metrics.OrderRemoved()
	d.send(from, fmt.Sprintf("ORDER REMOVED [%d]: %s", req.Msg.Seq, removed))
	d.feed.Publish("ORDER REMOVED: " + removed.String())
}

// -------------------- Queries --------------------

func (d *Dispatcher) handleBook(req Request, from Client) {
	if !req.Msg.All {
		var rendered string
		err := d.reg.WithLock(req.Msg.Ticker, func(b *book.Book) error {
			rendered = b.Render()
			return nil
		})
		if err != nil {
			d.send(from, ErrorText(err))
			return
		}
		d.send(from, rendered)
		return
	}

	blocks := make([]string, 0, len(d.reg.Symbols()))
	for _, sym := range d.reg.Symbols() {
		_ = d.reg.WithLock(sym.Ticker, func(b *book.Book) error {
			blocks = append(blocks, b.Render())
			return nil
		})
	}
	d.send(from, strings.Join(blocks, "\n\n"))
}

func (d *Dispatcher) handleMyOrders(req Request, from Client) {
	var lines []string
	for _, sym := range d.reg.Symbols() {
		_ = d.reg.WithLock(sym.Ticker, func(b *book.Book) error {
			b.EachOpen(func(id book.OrderID, o *market.Order) {
				if id.Conn == req.Conn {
					lines = append(lines, fmt.Sprintf("[%d] %s", id.Seq, o))
				}
			})
			return nil
		})
	}
	if len(lines) == 0 {
		d.send(from, "NO OPEN ORDERS")
		return
	}
	d.send(from, "YOUR OPEN ORDERS:\n"+strings.Join(lines, "\n"))
}

// -------------------- Helpers --------------------

func (d *Dispatcher) send(c Client, text string) {
	if err := c.Send(text); err != nil {
		d.log.Warn("reply not delivered", zap.Stringer("conn", c.ID()), zap.Error(err))
	}
}

// ErrorText renders a rejected request as the synchronous explanation
// sent back on the same connection.
func ErrorText(err error) string {
	return "ERROR: " + err.Error()
}
