// Package book implements the per-symbol limit order book: two
// price-ordered doubly linked sequences (bids descending, asks
// ascending, ties in arrival order) backed by a node arena, an
// open-orders index for O(1) cancellation, and the matching algorithm
// that runs at the end of every add.
//
// The matching rule is deliberately non-standard: a trade strikes at
// the aggressing order's own side of the book, so the aggressor never
// receives price improvement from the resting order.
package book
