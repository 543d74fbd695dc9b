package server

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"outcry/protocol"
	"outcry/service"
)

// session is one order-port connection: a private framing decoder, a
// per-connection message sequence, and a write lock so the session's
// own replies and counterparty fill notices never interleave.
type session struct {
	id   uuid.UUID
	conn net.Conn

	wmu sync.Mutex
	seq uint64
}

func (s *session) ID() uuid.UUID { return s.id }

// Send writes one free-text block, terminated by a blank line.
func (s *session) Send(text string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.conn.Write([]byte(text + "\n\n"))
	return err
}

// handleOrderConn runs one session until EOF or a fatal read error.
// Decode failures are per-message: the client gets an error block and
// the connection stays open.
func (s *Server) handleOrderConn(conn net.Conn) {
	sess := &session{id: uuid.New(), conn: conn}
	log := s.log.With(zap.Stringer("conn", sess.id), zap.String("remote", conn.RemoteAddr().String()))

	if !s.register(sess) {
		_ = conn.Close()
		return
	}
	defer func() {
		s.unregister(sess.id)
		_ = conn.Close()
		s.metrics.SessionClosed()
		log.Info("session closed")
	}()

	s.metrics.SessionOpened()
	log.Info("session opened")

	var dec protocol.Decoder
	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, line := range dec.Feed(buf[:n]) {
				seq := sess.seq
				sess.seq++

				msg, perr := protocol.Parse(line, s.symbols)
				if perr != nil {
					log.Debug("request rejected", zap.String("line", line), zap.Error(perr))
					if serr := sess.Send(service.ErrorText(perr)); serr != nil {
						log.Debug("error reply not delivered", zap.Error(serr))
					}
					continue
				}
				s.dispatcher.Dispatch(service.Request{Conn: sess.id, Seq: seq, Msg: msg}, sess)
			}
		}
		if err != nil {
			if cerr := dec.Close(); cerr != nil {
				log.Warn("connection closed mid-message", zap.Error(cerr))
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Warn("session read failed", zap.Error(err))
			}
			return
		}
	}
}
