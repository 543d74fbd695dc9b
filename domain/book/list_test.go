package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outcry/domain/market"
)

func collect(l *list) []uint64 {
	var seqs []uint64
	for n := l.head; n != none; n = l.a.nodes[n].next {
		seqs = append(seqs, l.a.nodes[n].id.Seq)
	}
	return seqs
}

func collectBackward(l *list) []uint64 {
	var seqs []uint64
	for n := l.tail; n != none; n = l.a.nodes[n].prev {
		seqs = append(seqs, l.a.nodes[n].id.Seq)
	}
	return seqs
}

func TestListInsertAndUnlink(t *testing.T) {
	var a arena
	l := newList(&a)

	n0 := a.alloc(OrderID{Seq: 0}, &market.Order{})
	n1 := a.alloc(OrderID{Seq: 1}, &market.Order{})
	n2 := a.alloc(OrderID{Seq: 2}, &market.Order{})

	l.pushBack(n0)
	l.pushBack(n2)
	l.insertBefore(n1, n2)

	assert.Equal(t, []uint64{0, 1, 2}, collect(&l))
	assert.Equal(t, []uint64{2, 1, 0}, collectBackward(&l))
	assert.Equal(t, 3, l.len())

	l.unlink(n1)
	a.release(n1)
	assert.Equal(t, []uint64{0, 2}, collect(&l))
	assert.Equal(t, []uint64{2, 0}, collectBackward(&l))

	l.unlink(n0)
	a.release(n0)
	assert.Equal(t, []uint64{2}, collect(&l))

	l.unlink(n2)
	a.release(n2)
	assert.Empty(t, collect(&l))
	assert.Equal(t, none, l.head)
	assert.Equal(t, none, l.tail)
	assert.Equal(t, 0, l.len())
}

func TestListInsertIntoEmpty(t *testing.T) {
	var a arena
	l := newList(&a)

	n := a.alloc(OrderID{Seq: 7}, &market.Order{})
	l.insertBefore(n, none)

	assert.Equal(t, n, l.head)
	assert.Equal(t, n, l.tail)
	assert.Equal(t, 1, l.len())
}

func TestArenaRecyclesSlots(t *testing.T) {
	var a arena

	n0 := a.alloc(OrderID{Seq: 0}, &market.Order{})
	require.Equal(t, 0, n0)
	a.release(n0)

	n1 := a.alloc(OrderID{Seq: 1}, &market.Order{})
	assert.Equal(t, 0, n1, "freed slot should be reused")
	assert.Equal(t, uint64(1), a.nodes[n1].id.Seq)
	assert.Len(t, a.nodes, 1)
}
