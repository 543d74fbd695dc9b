// Package service orchestrates the core components of the venue:
// the per-symbol books, their locks, and the market-data fan-out.
//
// The Registry is the sole gateway to mutable book state; the
// Dispatcher maps decoded protocol messages to book operations and
// synthesizes the replies, fill notifications, and broadcast events,
// decoupled from the network transport.
package service
