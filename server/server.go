package server

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"outcry/feed"
	"outcry/metrics"
	"outcry/protocol"
	"outcry/service"
)

// ClosingText is sent to every connection on both ports at shutdown.
const ClosingText = "MARKET CLOSED"

type Config struct {
	OrdersAddr     string
	FeedAddr       string
	ReadBufferSize int
}

type Server struct {
	cfg        Config
	dispatcher *service.Dispatcher
	symbols    protocol.SymbolTable
	feed       *feed.Broadcaster
	metrics    *metrics.Metrics
	log        *zap.Logger

	ordersLn net.Listener
	feedLn   net.Listener

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	closers  []io.Closer
	closing  bool

	wg sync.WaitGroup
}

func New(
	cfg Config,
	d *service.Dispatcher,
	symbols protocol.SymbolTable,
	bc *feed.Broadcaster,
	m *metrics.Metrics,
	log *zap.Logger,
) *Server {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 4096
	}
	return &Server{
		cfg:        cfg,
		dispatcher: d,
		symbols:    symbols,
		feed:       bc,
		metrics:    m,
		log:        log,
		sessions:   make(map[uuid.UUID]*session),
	}
}

// Start opens both listeners and runs their accept loops until
// Shutdown closes them.
func (s *Server) Start() error {
	ordersLn, err := net.Listen("tcp", s.cfg.OrdersAddr)
	if err != nil {
		return err
	}
	feedLn, err := net.Listen("tcp", s.cfg.FeedAddr)
	if err != nil {
		_ = ordersLn.Close()
		return err
	}
	s.ordersLn, s.feedLn = ordersLn, feedLn

	s.log.Info("listening",
		zap.String("orders", ordersLn.Addr().String()),
		zap.String("feed", feedLn.Addr().String()))

	s.wg.Add(2)
	go s.acceptOrders()
	go s.acceptFeed()
	return nil
}

// OrdersAddr returns the bound order-port address.
func (s *Server) OrdersAddr() net.Addr { return s.ordersLn.Addr() }

// FeedAddr returns the bound feed-port address.
func (s *Server) FeedAddr() net.Addr { return s.feedLn.Addr() }

func (s *Server) acceptOrders() {
	defer s.wg.Done()
	for {
		conn, err := s.ordersLn.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warn("order accept failed", zap.Error(err))
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleOrderConn(conn)
		}()
	}
}

func (s *Server) acceptFeed() {
	defer s.wg.Done()
	for {
		conn, err := s.feedLn.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warn("feed accept failed", zap.Error(err))
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleFeedConn(conn)
		}()
	}
}

// handleFeedConn subscribes the connection to the broadcaster and
// parks until the peer or the server closes it. Subscribers never
// send requests; inbound bytes are drained and dropped.
func (s *Server) handleFeedConn(conn net.Conn) {
	sink := &connSink{conn: conn}
	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	s.feed.Subscribe(sink)
	s.metrics.SubscriberAttached()
	s.log.Info("feed subscriber attached", zap.String("remote", conn.RemoteAddr().String()))

	_, _ = io.Copy(io.Discard, conn)
}

// Client implements service.ClientLookup.
func (s *Server) Client(id uuid.UUID) (service.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) register(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions[sess.id] = sess
	return true
}

func (s *Server) unregister(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// track remembers a closer for shutdown; false once closing began.
func (s *Server) track(c io.Closer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.closers = append(s.closers, c)
	return true
}

// Shutdown notifies and closes every connection on both ports, then
// waits for all connection goroutines to finish.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closing = true
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	_ = s.ordersLn.Close()
	_ = s.feedLn.Close()

	s.feed.Publish(ClosingText)
	for _, sess := range sessions {
		if err := sess.Send(ClosingText); err != nil {
			s.log.Debug("closing notice not delivered", zap.Stringer("conn", sess.id), zap.Error(err))
		}
		_ = sess.conn.Close()
	}
	for _, c := range closers {
		_ = c.Close()
	}

	s.wg.Wait()
	s.log.Info("server stopped")
}
