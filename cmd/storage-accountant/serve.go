package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bignyap/studio-storage/config"
	"github.com/bignyap/studio-storage/httpapi"
	"github.com/bignyap/studio-storage/kafka"
	otelmiddleware "github.com/bignyap/studio-storage/otel/middleware"
	"github.com/bignyap/studio-storage/pubsub"
	"github.com/bignyap/studio-storage/redisclient"
	"github.com/bignyap/studio-storage/server"
	"github.com/bignyap/studio-storage/trigger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and apply storage events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.Close(shutdownCtx)
	}()

	opts := []server.HTTPServerOption{
		server.WithLogger(a.log),
		server.WithHandler(httpapi.NewHandler(a.acct, a.tenants, a.store, a.log)),
	}
	if a.telemetry != nil {
		opts = append(opts, server.WithRouterMiddleware(
			otelmiddleware.OtelMiddleware(cfg.Otel.Resource.ServiceName, a.telemetry),
			otelmiddleware.MetricsMiddleware(a.telemetry),
		))
	}
	srv := server.NewHTTPServer(cfg.Server, opts...)

	runner, closeListener, err := newTriggerRunner(ctx, cfg, a)
	if err != nil {
		return err
	}
	defer closeListener()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return runner.Run(gctx) })
	return g.Wait()
}

func newTriggerRunner(ctx context.Context, cfg config.Config, a *app) (*trigger.Runner, func(), error) {
	source, err := cfg.Trigger.ParseSource()
	if err != nil {
		return nil, nil, err
	}

	var (
		listener trigger.Listener
		closer   = func() {}
	)
	switch source {
	case trigger.SourceKafka:
		consumer, err := kafka.NewConsumer(cfg.Kafka, a.log)
		if err != nil {
			return nil, nil, err
		}
		listener = trigger.KafkaListener{Consumer: consumer}
	case trigger.SourceRedis:
		rdb, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		ps := pubsub.NewRedisPubSub(rdb, cfg.Trigger.RedisPrefix, a.log)
		listener = trigger.PubSubListener{Client: ps, Channel: cfg.Trigger.RedisChannel}
		closer = func() { _ = ps.Close() }
	}

	var sweeper *trigger.Sweeper
	if cfg.Trigger.SweepInterval > 0 {
		sweeper = trigger.NewSweeper(a.acct, cfg.Trigger.SweepInterval, nil, a.log)
	}

	dispatcher := trigger.NewDispatcher(a.acct, cfg.Trigger.Debounce, a.log)
	return trigger.NewRunner(listener, dispatcher, sweeper, a.log), closer, nil
}
