package main

import (
	"context"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mindscrole/reelscribe"
	"github.com/mindscrole/reelscribe/internal/api"
	"github.com/mindscrole/reelscribe/internal/config"
	"github.com/mindscrole/reelscribe/internal/inbox"
	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/mindscrole/reelscribe/internal/metrics"
	"github.com/mindscrole/reelscribe/internal/notify"
	"github.com/mindscrole/reelscribe/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func runServe(parent context.Context, overrides config.Overrides) error {
	startTime := time.Now()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Error().Err(err).Msg("failed to load config")
		return err
	}

	// Logger
	log := newLogger(cfg.LogLevel, os.Stdout)
	log.Info().Str("version", version).Msg("reelscribe starting")

	// Context for graceful shutdown
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing (optional)
	var traceOut io.Writer
	if cfg.TraceStdout {
		traceOut = os.Stdout
	}
	shutdownTracing, err := tracing.Setup(ctx, tracing.Options{
		ServiceName:  "reelscribe",
		Version:      version,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
		Stdout:       traceOut,
		Log:          log.With().Str("component", "tracing").Logger(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialise tracing")
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	// MQTT progress events (optional)
	var hooks []job.ProgressFunc
	var publisher *notify.Publisher
	if cfg.MQTTBrokerURL != "" {
		publisher, err = notify.Connect(notify.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       log.With().Str("component", "mqtt").Logger(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to connect to mqtt broker")
			return err
		}
		defer publisher.Close()
		hooks = append(hooks, publisher.Publish)
	}

	// NATS progress events (optional)
	var stream *notify.StreamPublisher
	if cfg.NATSURL != "" {
		stream, err = notify.ConnectStream(notify.StreamOptions{
			URL:      cfg.NATSURL,
			Subject:  cfg.NATSSubject,
			Token:    cfg.NATSToken,
			Username: cfg.NATSUsername,
			Password: cfg.NATSPassword,
			Log:      log.With().Str("component", "nats").Logger(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to connect to nats")
			return err
		}
		defer stream.Close()
		hooks = append(hooks, stream.Publish)
	}

	// Pipeline and model, loaded once
	pipeline, model, err := buildPipeline(ctx, cfg, log, hooks...)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialise pipeline")
		return err
	}

	var broker metrics.BrokerState
	var brokerStatus, streamStatus api.BrokerStatus
	if publisher != nil {
		broker, brokerStatus = publisher, publisher
	}
	if stream != nil {
		streamStatus = stream
	}
	prometheus.MustRegister(metrics.NewCollector(pipeline, broker))

	// Drop-folder intake (optional)
	var inboxStatus api.InboxStatus
	if cfg.WatchDir != "" {
		watcher := inbox.New(pipeline, cfg.WatchDir, log)
		if err := watcher.Start(ctx); err != nil {
			log.Error().Err(err).Msg("failed to start inbox watcher")
			return err
		}
		defer watcher.Stop()
		inboxStatus = watcher
	}

	// HTTP Server
	webFS, err := fs.Sub(reelscribe.WebFiles, "web")
	if err != nil {
		return err
	}
	httpLog := log.With().Str("component", "http").Logger()
	srv, err := api.NewServer(ctx, api.ServerOptions{
		Config:    cfg,
		Pipeline:  pipeline,
		Model:     model,
		Broker:    brokerStatus,
		Stream:    streamStatus,
		Inbox:     inboxStatus,
		WebFS:     webFS,
		Version:   version,
		StartTime: startTime,
		Log:       httpLog,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build http server")
		return err
	}

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			log.Error().Err(runErr).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("reelscribe stopped")
	return runErr
}
