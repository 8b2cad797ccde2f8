package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"unity-mover/broker"
	"unity-mover/config"
	"unity-mover/engine"
	"unity-mover/health"
	"unity-mover/messages"
	qmqtt "unity-mover/messages/mqtt"
	qpubsub "unity-mover/messages/pubsub"
	"unity-mover/metrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var version = "source"

func setLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setLogger(cfg.LogLevel)
	log.Info().Msgf("Starting unity-mover version: %s", version)
	log.Info().Interface("config", cfg.Redacted()).Msg("config loaded")

	// Preflight required configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Context and shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ready atomic.Bool

	// Metrics and health HTTP server
	mux := http.NewServeMux()
	metrics.Register(mux)
	health.Register(mux, ready.Load)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Msg("starting metrics/health server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	var closeBroker func() error
	switch cfg.Role {
	case config.RoleBroker:
		closeBroker = runBroker(cfg, &ready)
	case config.RoleExecutor:
		runExecutor(ctx, cfg, &ready)
	}

	// Block until shutdown
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server graceful shutdown failed")
	}
	if closeBroker != nil {
		if err := closeBroker(); err != nil {
			log.Error().Err(err).Msg("broker close failed")
		}
	}
	log.Info().Msg("shutdown complete")
}

func runBroker(cfg *config.Config, ready *atomic.Bool) func() error {
	b, err := broker.New(broker.Options{
		Listen:        cfg.BrokerListen,
		CommandTopic:  cfg.CommandTopic,
		FeedbackTopic: cfg.FeedbackTopic,
		Simulate:      cfg.Simulate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("broker setup failed")
	}
	go func() {
		log.Info().Str("listen", cfg.BrokerListen).Msg("starting embedded mqtt broker")
		if err := b.Serve(); err != nil {
			log.Fatal().Err(err).Msg("broker exited with fatal error; shutting down")
		}
	}()
	ready.Store(true)
	return b.Close
}

func runExecutor(ctx context.Context, cfg *config.Config, ready *atomic.Bool) {
	var (
		publisher  messages.FeedbackPublisher
		subscriber messages.Subscriber
	)
	switch cfg.Transport {
	case config.TransportMQTT:
		cli, err := qmqtt.Connect(cfg.BrokerURL, cfg.ClientID)
		if err != nil {
			log.Fatal().Err(err).Str("broker", cfg.BrokerURL).Msg("mqtt connect failed")
		}
		publisher = qmqtt.NewPublisher(cli, cfg.CommandTopic, cfg.FeedbackTopic)
		subscriber = qmqtt.NewSubscriber(cli, cfg.CommandTopic)
	case config.TransportPubSub:
		if cfg.CredentialsFile != "" {
			log.Info().Str("credsFile", cfg.CredentialsFile).Msg("using explicit Google credentials file")
		} else {
			log.Info().Msg("using default Google credentials (in-cluster or ambient)")
		}
		publisher = qpubsub.NewPublisher(cfg.GoogleProjectID, cfg.PubsubTopic, cfg.CredentialsFile)
		subscriber = qpubsub.NewSubscriber(cfg.GoogleProjectID, cfg.Subscription, cfg.CredentialsFile)
	}

	registry := engine.NewRegistry(cfg.Entities...)
	scheduler := engine.NewScheduler(registry, publisher)
	ingestor := engine.NewIngestor(registry, scheduler, publisher)
	log.Info().Strs("entities", registry.Names()).Msg("entity registry initialized")

	go scheduler.Run(ctx, cfg.TickInterval)

	// Start subscriber loop
	go func() {
		log.Info().Str("topic", cfg.CommandTopic).Msg("starting command subscriber loop")
		err := subscriber.Start(ctx, func(ctx context.Context, payload []byte) error {
			_, err := ingestor.Ingest(ctx, payload)
			if err != nil && !engine.IsValidation(err) {
				// Transport-level trouble; let the subscriber retry semantics
				// deal with it
				return err
			}
			// Validation outcomes are final: the message is consumed
			return nil
		})
		if err != nil && ctx.Err() == nil {
			// Non-recoverable: if we can't receive commands, terminate the process
			log.Fatal().Err(err).Msg("subscriber exited with fatal error; shutting down")
		}
	}()
	ready.Store(true)
}
