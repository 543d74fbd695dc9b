package server

import (
	"net"
	"sync"
)

// connSink adapts a raw feed connection to the broadcaster. Writes
// are serialized; a dead peer surfaces as a write error that the
// broadcaster logs and skips.
type connSink struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *connSink) SendEvent(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}
