// Package market holds the plain value objects of the venue: tradable
// symbols, order sides, and limit orders. The matching engine treats an
// Order as a mutable record whose remaining amount it is allowed to
// decrement in place; everything else here is immutable-enough data.
package market
