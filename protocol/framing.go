package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrTruncated reports a stream that closed with a partial message
// still buffered. The leftover bytes are never delivered as a message.
var ErrTruncated = errors.New("stream closed mid-message")

// Decoder reassembles newline-terminated messages from a byte stream
// delivered in caller-chosen chunk sizes. It is a pure state machine
// with no transport attached, one per connection.
type Decoder struct {
	pending []byte
}

// Feed appends a chunk and returns every complete message it closes,
// in arrival order. A trailing partial message is carried over to the
// next call. A trailing carriage return is tolerated on each line.
func (d *Decoder) Feed(chunk []byte) []string {
	d.pending = append(d.pending, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(d.pending[:i], []byte{'\r'})
		lines = append(lines, string(line))
		d.pending = d.pending[i+1:]
	}
	return lines
}

// Pending returns the number of carried-over bytes.
func (d *Decoder) Pending() int { return len(d.pending) }

// Close ends the stream. Leftover bytes are a framing error: the
// unterminated final message is reported and discarded, never
// silently processed.
func (d *Decoder) Close() error {
	if n := len(d.pending); n > 0 {
		d.pending = nil
		return fmt.Errorf("%w: %d byte(s) discarded", ErrTruncated, n)
	}
	return nil
}
