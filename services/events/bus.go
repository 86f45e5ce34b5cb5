// Package eventsvc dispatches domain events in process over a watermill gochannel pub/sub.
package eventsvc

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/services/metrics"
)

// Handler processes the JSON payload of an event.
type Handler func(ctx context.Context, payload []byte) error

// Bus publishes domain events and runs their handlers.
// Publish returns once every subscriber handled the event.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger core.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ core.EventPublisher = (*Bus)(nil)

func NewBus(logger core.Logger) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		},
		newWatermillLogger(logger),
	)
	return &Bus{pubSub: pubSub, logger: logger, ctx: ctx, cancel: cancel}
}

func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding event payload")
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err = b.pubSub.Publish(topic, msg); err != nil {
		return errors.Wrap(err, "publishing "+topic)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Subscribe runs handler for every event of topic until the Bus is closed.
// Handler errors are logged; the event is not redelivered.
func (b *Bus) Subscribe(topic string, handler Handler) error {
	messages, err := b.pubSub.Subscribe(b.ctx, topic)
	if err != nil {
		return errors.Wrap(err, "subscribing to "+topic)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			if err := handler(b.ctx, msg.Payload); err != nil {
				metrics.EventHandlerErrors.WithLabelValues(topic).Inc()
				b.logger.Error("handling "+topic, errors.Wrap(err, "handling event "+msg.UUID))
			}
			msg.Ack()
		}
	}()
	return nil
}

// Wire subscribes every handler of every set.
func (b *Bus) Wire(sets ...map[string]func(ctx context.Context, payload []byte) error) error {
	for _, set := range sets {
		for topic, handler := range set {
			if err := b.Subscribe(topic, handler); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Bus) Close() error {
	b.cancel()
	err := b.pubSub.Close()
	b.wg.Wait()
	return err
}
