// Package server owns the venue's network surface: the order port
// where each accepted connection becomes one session goroutine, the
// read-only feed port for streaming subscribers, and the websocket
// feed endpoint. It registers live sessions so the dispatcher can
// route fill notifications to counterparties.
package server
