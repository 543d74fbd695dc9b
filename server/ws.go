package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsSink adapts a websocket client to the broadcaster, one text
// message per event line.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsSink) SendEvent(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

// FeedHandler upgrades HTTP requests to websocket feed subscriptions.
// Websocket subscribers join the same broadcaster as TCP ones.
func (s *Server) FeedHandler() http.Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		s.feed.Subscribe(&wsSink{conn: conn})
		s.metrics.SubscriberAttached()
		s.log.Info("websocket subscriber attached", zap.String("remote", conn.RemoteAddr().String()))
	})
}
