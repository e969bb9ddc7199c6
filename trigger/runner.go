package trigger

import (
	"context"
	"errors"

	"github.com/IBM/sarama"
	"github.com/bignyap/studio-storage/kafka"
	"github.com/bignyap/studio-storage/logger/api"
	"github.com/bignyap/studio-storage/pubsub"
	"golang.org/x/sync/errgroup"
)

// Listener delivers raw event payloads to a handler until ctx is done.
type Listener interface {
	Listen(ctx context.Context, handle func(context.Context, []byte) error) error
}

// KafkaListener adapts a kafka.Consumer.
type KafkaListener struct {
	Consumer *kafka.Consumer
}

func (l KafkaListener) Listen(ctx context.Context, handle func(context.Context, []byte) error) error {
	defer l.Consumer.Close()
	return l.Consumer.Start(ctx, func(ctx context.Context, msg *sarama.ConsumerMessage) error {
		return handle(ctx, msg.Value)
	})
}

// PubSubListener adapts a pubsub channel subscription.
type PubSubListener struct {
	Client  pubsub.PubSubClient
	Channel string
}

func (l PubSubListener) Listen(ctx context.Context, handle func(context.Context, []byte) error) error {
	return l.Client.Subscribe(ctx, l.Channel, handle)
}

// Runner drives the event listener and the sweeper together.
type Runner struct {
	listener   Listener
	dispatcher *Dispatcher
	sweeper    *Sweeper
	log        api.Logger
}

// NewRunner accepts a nil listener or sweeper to disable that half.
func NewRunner(listener Listener, dispatcher *Dispatcher, sweeper *Sweeper, log api.Logger) *Runner {
	return &Runner{
		listener:   listener,
		dispatcher: dispatcher,
		sweeper:    sweeper,
		log:        api.OrDefault(log).WithComponent("trigger"),
	}
}

// Run returns nil once ctx is cancelled; any other error from either half
// stops both.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if r.listener != nil {
		g.Go(func() error { return r.listener.Listen(gctx, r.dispatcher.Handle) })
	}
	if r.sweeper != nil {
		g.Go(func() error { return r.sweeper.Run(gctx) })
	}

	r.log.Info(ctx, "trigger runner started",
		api.Bool("listener", r.listener != nil), api.Bool("sweeper", r.sweeper != nil))
	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
