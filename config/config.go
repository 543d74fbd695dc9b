// Package config loads the venue's configuration from a JSON file via
// gonfig, with environment variables overriding file values and
// built-in defaults covering everything else.
package config

import (
	"os"

	"github.com/tkanos/gonfig"

	"outcry/domain/market"
)

type Symbol struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

type Kafka struct {
	Brokers     []string `json:"brokers"`
	TapeTopic   string   `json:"tape_topic"`
	EventsTopic string   `json:"events_topic"`
}

type Config struct {
	OrdersAddr     string   `json:"orders_addr"`
	FeedAddr       string   `json:"feed_addr"`
	MetricsAddr    string   `json:"metrics_addr"`
	ReadBufferSize int      `json:"read_buffer_size"`
	Symbols        []Symbol `json:"symbols"`
	Kafka          Kafka    `json:"kafka"`
	JournalDir     string   `json:"journal_dir"`
	OutboxDir      string   `json:"outbox_dir"`
	TapeIntervalMs int      `json:"tape_interval_ms"`
}

func Default() Config {
	return Config{
		OrdersAddr:     ":7001",
		FeedAddr:       ":7002",
		MetricsAddr:    ":7003",
		ReadBufferSize: 4096,
		Kafka: Kafka{
			TapeTopic:   "outcry.tape",
			EventsTopic: "outcry.events",
		},
		JournalDir:     "./journal",
		OutboxDir:      "./outbox",
		TapeIntervalMs: 250,
	}
}

// Load reads the config file at path. A missing file is not an error;
// defaults and environment variables still apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	if err := gonfig.GetConf(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Universe maps the configured symbols onto the market model, falling
// back to the default universe when none are configured.
func (c Config) Universe() []market.Symbol {
	if len(c.Symbols) == 0 {
		return market.DefaultUniverse()
	}
	out := make([]market.Symbol, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		out = append(out, market.Symbol{Name: s.Name, Ticker: s.Ticker})
	}
	return out
}
