package service_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"outcry/domain/market"
	"outcry/feed"
	"outcry/protocol"
	"outcry/service"
)

// ---- test doubles ----

type fakeClient struct {
	id   uuid.UUID
	mu   sync.Mutex
	sent []string
	fail bool
}

func (c *fakeClient) ID() uuid.UUID { return c.id }

func (c *fakeClient) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection reset")
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeClient) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

type directory struct {
	mu sync.Mutex
	m  map[uuid.UUID]*fakeClient
}

func newDirectory() *directory {
	return &directory{m: make(map[uuid.UUID]*fakeClient)}
}

func (d *directory) add() *fakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeClient{id: uuid.New()}
	d.m[c.id] = c
	return c
}

func (d *directory) drop(c *fakeClient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.m, c.id)
}

func (d *directory) Client(id uuid.UUID) (service.Client, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.m[id]
	return c, ok
}

type captureSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *captureSink) SendEvent(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

func (s *captureSink) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// ---- fixtures ----

var (
	parker = market.Symbol{Name: "Parker", Ticker: "PAH"}
	jake   = market.Symbol{Name: "Jake", Ticker: "JJG"}
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newVenue(t *testing.T) (*service.Dispatcher, *directory, *captureSink) {
	t.Helper()
	reg := service.NewRegistry([]market.Symbol{parker, jake})
	bc := feed.NewBroadcaster(zap.NewNop())
	sink := &captureSink{}
	bc.Attach(sink)
	dir := newDirectory()
	d := service.NewDispatcher(reg, bc, dir, nil, nil, zap.NewNop())
	return d, dir, sink
}

func add(sym market.Symbol, side market.Side, amount int64, px string) protocol.Message {
	return protocol.Message{
		Type:  protocol.TypeAdd,
		Order: &market.Order{Symbol: sym, Side: side, Price: price(px), Amount: amount},
	}
}

// ---- ADD ----

func TestAddRestsAndConfirms(t *testing.T) {
	d, dir, sink := newVenue(t)
	c := dir.add()

	d.Dispatch(service.Request{Conn: c.id, Seq: 0, Msg: add(parker, market.Buy, 25, "4.95")}, c)

	assert.Equal(t, []string{"ORDER PLACED [0]: Parker (PAH) BUY 25 @ 4.95"}, c.got())
	assert.Equal(t, []string{"ORDER PLACED: Parker (PAH) BUY 25 @ 4.95"}, sink.got())
}

func TestAddRejectsInvalidSide(t *testing.T) {
	d, dir, sink := newVenue(t)
	c := dir.add()

	msg := protocol.Message{
		Type:  protocol.TypeAdd,
		Order: &market.Order{Symbol: parker, Side: market.Side("HOLD"), Price: price("1"), Amount: 1},
	}
	d.Dispatch(service.Request{Conn: c.id, Seq: 0, Msg: msg}, c)

	require.Len(t, c.got(), 1)
	assert.Contains(t, c.got()[0], "ERROR: ")
	assert.Empty(t, sink.got(), "rejected order must not hit the feed")
}

func TestCrossNotifiesBothOwners(t *testing.T) {
	d, dir, sink := newVenue(t)
	seller := dir.add()
	buyer := dir.add()

	d.Dispatch(service.Request{Conn: seller.id, Seq: 0, Msg: add(jake, market.Sell, 10, "5")}, seller)
	d.Dispatch(service.Request{Conn: buyer.id, Seq: 0, Msg: add(jake, market.Buy, 10, "5")}, buyer)

	assert.Equal(t, []string{
		"ORDER PLACED [0]: Jake (JJG) SELL 10 @ 5",
		"ORDER [0] FULLY FILLED: Jake (JJG) SELL 10 @ 5",
	}, seller.got())
	assert.Equal(t, []string{
		"ORDER PLACED [0]: Jake (JJG) BUY 10 @ 5",
		"ORDER [0] FULLY FILLED: Jake (JJG) BUY 10 @ 5",
	}, buyer.got())
	assert.Equal(t, []string{
		"ORDER PLACED: Jake (JJG) SELL 10 @ 5",
		"ORDER PLACED: Jake (JJG) BUY 10 @ 5",
		"ORDER FILLED: Jake (JJG) BUY 10 @ 5",
		"ORDER FILLED: Jake (JJG) SELL 10 @ 5",
	}, sink.got())
}

func TestPartialFillReportsRemaining(t *testing.T) {
	d, dir, _ := newVenue(t)
	seller := dir.add()
	buyer := dir.add()

	d.Dispatch(service.Request{Conn: seller.id, Seq: 0, Msg: add(jake, market.Sell, 25, "4.95")}, seller)
	d.Dispatch(service.Request{Conn: buyer.id, Seq: 0, Msg: add(jake, market.Buy, 10, "5")}, buyer)

	// buy aggressor strikes at its own bid, not the resting ask
	assert.Equal(t, []string{
		"ORDER PLACED [0]: Jake (JJG) SELL 25 @ 4.95",
		"ORDER [0] PARTIALLY FILLED: Jake (JJG) SELL 10 @ 5 (15 REMAINING)",
	}, seller.got())
	assert.Equal(t, []string{
		"ORDER PLACED [0]: Jake (JJG) BUY 10 @ 5",
		"ORDER [0] FULLY FILLED: Jake (JJG) BUY 10 @ 5",
	}, buyer.got())
}

func TestSellAggressorStrikesAtOwnAsk(t *testing.T) {
	d, dir, _ := newVenue(t)
	buyer := dir.add()
	seller := dir.add()

	d.Dispatch(service.Request{Conn: buyer.id, Seq: 0, Msg: add(parker, market.Buy, 10, "20")}, buyer)
	d.Dispatch(service.Request{Conn: seller.id, Seq: 0, Msg: add(parker, market.Sell, 10, "18")}, seller)

	assert.Equal(t, []string{
		"ORDER PLACED [0]: Parker (PAH) BUY 10 @ 20",
		"ORDER [0] FULLY FILLED: Parker (PAH) BUY 10 @ 18",
	}, buyer.got())
	assert.Equal(t, []string{
		"ORDER PLACED [0]: Parker (PAH) SELL 10 @ 18",
		"ORDER [0] FULLY FILLED: Parker (PAH) SELL 10 @ 18",
	}, seller.got())
}

func TestDisconnectedCounterpartyDoesNotBlockFill(t *testing.T) {
	d, dir, _ := newVenue(t)
	seller := dir.add()
	buyer := dir.add()

	d.Dispatch(service.Request{Conn: seller.id, Seq: 0, Msg: add(jake, market.Sell, 10, "5")}, seller)
	dir.drop(seller)
	d.Dispatch(service.Request{Conn: buyer.id, Seq: 0, Msg: add(jake, market.Buy, 10, "5")}, buyer)

	assert.Equal(t, []string{
		"ORDER PLACED [0]: Jake (JJG) BUY 10 @ 5",
		"ORDER [0] FULLY FILLED: Jake (JJG) BUY 10 @ 5",
	}, buyer.got())
}

// ---- REMOVE ----

func TestRemoveOpenOrder(t *testing.T) {
	d, dir, sink := newVenue(t)
	c := dir.add()

	d.Dispatch(service.Request{Conn: c.id, Seq: 0, Msg: add(parker, market.Buy, 25, "4.95")}, c)
	d.Dispatch(service.Request{Conn: c.id, Seq: 1, Msg: protocol.Message{Type: protocol.TypeRemove, Seq: 0}}, c)

	assert.Equal(t, []string{
		"ORDER PLACED [0]: Parker (PAH) BUY 25 @ 4.95",
		"ORDER REMOVED [0]: Parker (PAH) BUY 25 @ 4.95",
	}, c.got())
	assert.Equal(t, []string{
		"ORDER PLACED: Parker (PAH) BUY 25 @ 4.95",
		"ORDER REMOVED: Parker (PAH) BUY 25 @ 4.95",
	}, sink.got())
}

func TestRemoveTwiceFails(t *testing.T) {
	d, dir, _ := newVenue(t)
	c := dir.add()

	d.Dispatch(service.Request{Conn: c.id, Seq: 0, Msg: add(parker, market.Buy, 25, "4.95")}, c)
	d.Dispatch(service.Request{Conn: c.id, Seq: 1, Msg: protocol.Message{Type: protocol.TypeRemove, Seq: 0}}, c)
	d.Dispatch(service.Request{Conn: c.id, Seq: 2, Msg: protocol.Message{Type: protocol.TypeRemove, Seq: 0}}, c)

	got := c.got()
	require.Len(t, got, 3)
	assert.Equal(t, "ERROR: order no longer open", got[2])
}

func TestRemoveUnknownSeqFails(t *testing.T) {
	d, dir, _ := newVenue(t)
	c := dir.add()

	d.Dispatch(service.Request{Conn: c.id, Seq: 0, Msg: protocol.Message{Type: protocol.TypeRemove, Seq: 99}}, c)

	assert.Equal(t, []string{"ERROR: order no longer open"}, c.got())
}

func TestRemoveAfterFullFillFails(t *testing.T) {
	d, dir, _ := newVenue(t)
	seller := dir.add()
	buyer := dir.add()

	d.Dispatch(service.Request{Conn: seller.id, Seq: 0, Msg: add(jake, market.Sell, 10, "5")}, seller)
	d.Dispatch(service.Request{Conn: buyer.id, Seq: 0, Msg: add(jake, market.Buy, 10, "5")}, buyer)
	d.Dispatch(service.Request{Conn: seller.id, Seq: 1, Msg: protocol.Message{Type: protocol.TypeRemove, Seq: 0}}, seller)

	got := seller.got()
	require.Len(t, got, 3)
	assert.Equal(t, "ERROR: order no longer open", got[2])
}

func TestRemoveIsScopedToConnection(t *testing.T) {
	d, dir, _ := newVenue(t)
	owner := dir.add()
	other := dir.add()

	d.Dispatch(service.Request{Conn: owner.id, Seq: 0, Msg: add(parker, market.Buy, 25, "4.95")}, owner)
	d.Dispatch(service.Request{Conn: other.id, Seq: 0, Msg: protocol.Message{Type: protocol.TypeRemove, Seq: 0}}, other)

	assert.Equal(t, []string{"ERROR: order no longer open"}, other.got())
	assert.Len(t, owner.got(), 1)
}

// ---- queries ----

func TestBookRendersOneSymbol(t *testing.T) {
	d, dir, _ := newVenue(t)
	c := dir.add()

	d.Dispatch(service.Request{Conn: c.id, Seq: 0, Msg: add(parker, market.Buy, 25, "4.95")}, c)
	d.Dispatch(service.Request{Conn: c.id, Seq: 1, Msg: protocol.Message{Type: protocol.TypeBook, Ticker: "PAH"}}, c)

	got := c.got()
	require.Len(t, got, 2)
	assert.Equal(t, "Parker (PAH):\n25    $4.95 | ", got[1])
}

func TestBookAllRendersEveryBook(t *testing.T) {
	d, dir, _ := newVenue(t)
	c := dir.add()

	d.Dispatch(service.Request{Conn: c.id, Seq: 0, Msg: protocol.Message{Type: protocol.TypeBook, All: true}}, c)

	// tickers sort JJG before PAH
	assert.Equal(t, []string{"Jake (JJG):\n\nParker (PAH):"}, c.got())
}

func TestHelpReply(t *testing.T) {
	d, dir, _ := newVenue(t)
	c := dir.add()

	d.Dispatch(service.Request{Conn: c.id, Seq: 0, Msg: protocol.Message{Type: protocol.TypeHelp}}, c)

	assert.Equal(t, []string{protocol.HelpText}, c.got())
}

func TestMyOrdersListsOnlyOwnOpenOrders(t *testing.T) {
	d, dir, _ := newVenue(t)
	mine := dir.add()
	other := dir.add()

	d.Dispatch(service.Request{Conn: mine.id, Seq: 0, Msg: add(parker, market.Buy, 25, "4.95")}, mine)
	d.Dispatch(service.Request{Conn: mine.id, Seq: 1, Msg: add(jake, market.Sell, 5, "9")}, mine)
	d.Dispatch(service.Request{Conn: other.id, Seq: 0, Msg: add(parker, market.Sell, 7, "8")}, other)

	d.Dispatch(service.Request{Conn: mine.id, Seq: 2, Msg: protocol.Message{Type: protocol.TypeMyOrders}}, mine)

	got := mine.got()
	require.Len(t, got, 3)
	assert.Equal(t, "YOUR OPEN ORDERS:\n[1] Jake (JJG) SELL 5 @ 9\n[0] Parker (PAH) BUY 25 @ 4.95", got[2])
}

func TestMyOrdersEmpty(t *testing.T) {
	d, dir, _ := newVenue(t)
	c := dir.add()

	d.Dispatch(service.Request{Conn: c.id, Seq: 0, Msg: protocol.Message{Type: protocol.TypeMyOrders}}, c)

	assert.Equal(t, []string{"NO OPEN ORDERS"}, c.got())
}

// ---- concurrency ----

func TestConcurrentSymbolsStayIsolated(t *testing.T) {
	d, dir, _ := newVenue(t)

	hammer := func(c *fakeClient, sym market.Symbol, side market.Side) {
		var seq uint64
		for i := 0; i < 100; i++ {
			addSeq := seq
			d.Dispatch(service.Request{Conn: c.id, Seq: addSeq, Msg: add(sym, side, 10, fmt.Sprintf("%d", 100+i))}, c)
			seq++
			d.Dispatch(service.Request{Conn: c.id, Seq: seq, Msg: protocol.Message{Type: protocol.TypeRemove, Seq: addSeq}}, c)
			seq++
		}
	}

	a, b := dir.add(), dir.add()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); hammer(a, parker, market.Buy) }()
	go func() { defer wg.Done(); hammer(b, jake, market.Sell) }()
	wg.Wait()

	// every add was matched by a remove, no order survived and no fill fired
	for _, c := range []*fakeClient{a, b} {
		got := c.got()
		require.Len(t, got, 200)
		for _, line := range got {
			assert.NotContains(t, line, "FILLED")
			assert.NotContains(t, line, "ERROR")
		}
	}

	probe := dir.add()
	d.Dispatch(service.Request{Conn: probe.id, Seq: 0, Msg: protocol.Message{Type: protocol.TypeBook, All: true}}, probe)
	assert.Equal(t, []string{"Jake (JJG):\n\nParker (PAH):"}, probe.got())
}
