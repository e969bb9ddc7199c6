package main

import (
	"fmt"

	"github.com/bignyap/studio-storage/config"
	"github.com/bignyap/studio-storage/kafka"
	"github.com/bignyap/studio-storage/pubsub"
	"github.com/bignyap/studio-storage/redisclient"
	"github.com/bignyap/studio-storage/trigger"
	"github.com/spf13/cobra"
)

func newPublishCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <tenant-slug>",
		Short: "Publish a storage event on the configured trigger source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ev := trigger.Event{TenantSlug: args[0]}

			source, err := cfg.Trigger.ParseSource()
			if err != nil {
				return err
			}
			switch source {
			case trigger.SourceKafka:
				p, err := kafka.NewProducer(cfg.Kafka)
				if err != nil {
					return err
				}
				defer p.Close()
				if err := p.Publish(ctx, ev.TenantSlug, ev); err != nil {
					return err
				}
			case trigger.SourceRedis:
				rdb, err := redisclient.New(ctx, cfg.Redis)
				if err != nil {
					return err
				}
				ps := pubsub.NewRedisPubSub(rdb, cfg.Trigger.RedisPrefix, nil)
				defer ps.Close()
				if err := ps.Publish(ctx, cfg.Trigger.RedisChannel, ev); err != nil {
					return err
				}
			default:
				return fmt.Errorf("TRIGGER_SOURCE is %q; set kafka or redis to publish", cfg.Trigger.Source)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "published storage event for %s via %s\n", ev.TenantSlug, source)
			return nil
		},
	}
}
