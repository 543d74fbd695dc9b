package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"outcry/config"
	"outcry/feed"
	"outcry/infra/journal"
	"outcry/infra/kafka"
	"outcry/infra/outbox"
	"outcry/jobs/tape"
	"outcry/metrics"
	"outcry/server"
	"outcry/service"
)

func main() {
	_ = godotenv.Load()

	log := zap.Must(zap.NewProduction())
	defer func() { _ = log.Sync() }()

	cfgPath := os.Getenv("OUTCRY_CONFIG")
	if cfgPath == "" {
		cfgPath = "conf/server.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("config load failed", zap.String("path", cfgPath), zap.Error(err))
	}

	// ---------------- Domain ----------------

	reg := service.NewRegistry(cfg.Universe())
	bc := feed.NewBroadcaster(log.Named("feed"))
	m := metrics.New("outcry")

	// ---------------- Audit journal ----------------

	if cfg.JournalDir != "" {
		j, err := journal.Open(journal.Config{
			Dir:             cfg.JournalDir,
			SegmentSize:     2 * 1024 * 1024,
			SegmentDuration: time.Hour,
			FlushInterval:   time.Second,
		})
		if err != nil {
			log.Fatal("journal init failed", zap.Error(err))
		}
		defer j.Close()
		bc.Attach(j)
	}

	// ---------------- Trade tape outbox ----------------

	var ob *outbox.Outbox
	if cfg.OutboxDir != "" {
		ob, err = outbox.Open(cfg.OutboxDir)
		if err != nil {
			log.Fatal("outbox init failed", zap.Error(err))
		}
		defer ob.Close()
	}

	// ---------------- Kafka ----------------

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.EventsTopic != "" {
		mirror := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		defer mirror.Close()
		bc.Attach(mirror)
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.TapeTopic != "" && ob != nil {
		job, err := tape.New(
			ob,
			cfg.Kafka.Brokers,
			cfg.Kafka.TapeTopic,
			time.Duration(cfg.TapeIntervalMs)*time.Millisecond,
			log.Named("tape"),
		)
		if err != nil {
			log.Fatal("tape job init failed", zap.Error(err))
		}
		defer job.Close()
		go job.Run(ctx)
	}

	// ---------------- Service + transport ----------------

	var srv *server.Server
	lookup := service.ClientLookupFunc(func(id uuid.UUID) (service.Client, bool) {
		return srv.Client(id)
	})
	d := service.NewDispatcher(reg, bc, lookup, ob, m, log.Named("dispatch"))

	srv = server.New(server.Config{
		OrdersAddr:     cfg.OrdersAddr,
		FeedAddr:       cfg.FeedAddr,
		ReadBufferSize: cfg.ReadBufferSize,
	}, d, reg, bc, m, log.Named("server"))

	if err := srv.Start(); err != nil {
		log.Fatal("listen failed", zap.Error(err))
	}

	// ---------------- Metrics + websocket feed ----------------

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/feed", srv.FeedHandler())
	httpSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server exited", zap.Error(err))
		}
	}()

	log.Info("venue open", zap.String("orders", cfg.OrdersAddr), zap.String("feed", cfg.FeedAddr))

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	srv.Shutdown()
}
