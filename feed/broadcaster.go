package feed

import (
	"sync"

	"go.uber.org/zap"
)

// WelcomeText is the first line every interactive subscriber receives.
const WelcomeText = "WELCOME TO THE MARKET DATA FEED"

// Sink receives one event line per published event. Implementations
// are TCP feed connections, websocket clients, and the Kafka mirror.
type Sink interface {
	SendEvent(line string) error
}

// Broadcaster fans published event lines out to every current
// subscriber. Sinks are only ever appended; a failing sink is logged
// and skipped, never removed mid-run.
type Broadcaster struct {
	log *zap.Logger

	mu    sync.Mutex
	sinks []Sink
}

func NewBroadcaster(log *zap.Logger) *Broadcaster {
	return &Broadcaster{log: log}
}

// Subscribe adds an interactive subscriber and sends the welcome line.
func (b *Broadcaster) Subscribe(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()

	if err := s.SendEvent(WelcomeText); err != nil {
		b.log.Warn("welcome notice not delivered", zap.Error(err))
	}
}

// Attach adds a passive sink (journal, Kafka mirror) with no welcome.
func (b *Broadcaster) Attach(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

// Publish writes line to every current subscriber before returning.
// Delivery failures are terminal to the affected sink's event only.
func (b *Broadcaster) Publish(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.sinks {
		if err := s.SendEvent(line); err != nil {
			b.log.Warn("event not delivered to subscriber", zap.String("event", line), zap.Error(err))
		}
	}
}

// Subscribers returns the current sink count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sinks)
}
