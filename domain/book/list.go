package book

import "outcry/domain/market"

// none marks an absent arena index.
const none = -1

type node struct {
	id    OrderID
	order *market.Order
	prev  int
	next  int
}

// arena owns every node of a book. Lists refer to nodes by index, so
// prev/next links never form pointer cycles; freed slots are recycled
// through a free list.
type arena struct {
	nodes []node
	free  []int
}

func (a *arena) alloc(id OrderID, o *market.Order) int {
	if n := len(a.free); n > 0 {
		i := a.free[n-1]
		a.free = a.free[:n-1]
		a.nodes[i] = node{id: id, order: o, prev: none, next: none}
		return i
	}
	a.nodes = append(a.nodes, node{id: id, order: o, prev: none, next: none})
	return len(a.nodes) - 1
}

func (a *arena) release(i int) {
	a.nodes[i] = node{prev: none, next: none}
	a.free = append(a.free, i)
}

// list is one side of the book: head/tail indices into the shared
// arena plus per-node prev/next links.
type list struct {
	a    *arena
	head int
	tail int
	size int
}

func newList(a *arena) list {
	return list{a: a, head: none, tail: none}
}

func (l *list) len() int { return l.size }

// insertBefore links n immediately ahead of at. An at of none means
// the list is empty and n becomes its only node.
func (l *list) insertBefore(n, at int) {
	nodes := l.a.nodes
	if at == none {
		l.head, l.tail = n, n
		nodes[n].prev, nodes[n].next = none, none
	} else {
		nodes[n].next = at
		nodes[n].prev = nodes[at].prev
		if p := nodes[at].prev; p != none {
			nodes[p].next = n
		} else {
			l.head = n
		}
		nodes[at].prev = n
	}
	l.size++
}

// insertAfter links n immediately behind at. An at of none means the
// list is empty and n becomes its only node.
func (l *list) insertAfter(n, at int) {
	nodes := l.a.nodes
	if at == none {
		l.head, l.tail = n, n
		nodes[n].prev, nodes[n].next = none, none
	} else {
		nodes[n].prev = at
		nodes[n].next = nodes[at].next
		if x := nodes[at].next; x != none {
			nodes[x].prev = n
		} else {
			l.tail = n
		}
		nodes[at].next = n
	}
	l.size++
}

func (l *list) pushBack(n int) {
	l.insertAfter(n, l.tail)
}

// unlink detaches n from the list without releasing its arena slot.
func (l *list) unlink(n int) {
	nodes := l.a.nodes
	if x := nodes[n].next; x != none {
		nodes[x].prev = nodes[n].prev
	} else {
		l.tail = nodes[n].prev
	}
	if p := nodes[n].prev; p != none {
		nodes[p].next = nodes[n].next
	} else {
		l.head = nodes[n].next
	}
	l.size--
}
