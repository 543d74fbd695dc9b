// Package protocol defines the venue's line-oriented wire protocol:
// the request message types with their textual encoding, and the
// framing decoder that reassembles newline-terminated messages from
// arbitrarily chunked byte streams.
package protocol
