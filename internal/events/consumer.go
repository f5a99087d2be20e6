package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Store persists denial events consumed from the bus.
type Store interface {
	SaveDenied(ctx context.Context, event *RequestDeniedEvent) error
}

// Consumer consumes denial events and persists them to the store.
type Consumer struct {
	subscriber message.Subscriber
	store      Store
	logger     *zap.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewConsumer creates a new denial event consumer.
func NewConsumer(subscriber message.Subscriber, store Store, logger *zap.Logger) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		store:      store,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins consuming denial events.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	deniedMsgs, err := c.subscriber.Subscribe(ctx, TopicRequestDenied)
	if err != nil {
		return err
	}

	go c.consumeLoop(ctx, deniedMsgs)

	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, deniedMsgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deniedMsgs:
			if !ok {
				return
			}

			c.handleRequestDenied(ctx, msg)
		}
	}
}

func (c *Consumer) handleRequestDenied(ctx context.Context, msg *message.Message) {
	var event RequestDeniedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Error("failed to unmarshal request denied event",
			zap.Error(err),
		)
		msg.Nack()

		return
	}

	if err := c.store.SaveDenied(ctx, &event); err != nil {
		c.logger.Error("failed to save request denied event",
			zap.String("key", event.Key),
			zap.Error(err),
		)
		msg.Nack()

		return
	}

	msg.Ack()

	c.logger.Debug("processed request denied event",
		zap.String("key", event.Key),
		zap.Int64("count", event.Count),
	)
}

// Shutdown stops the consumer and waits for in-flight messages to complete.
func (c *Consumer) Shutdown() error {
	if c.cancel != nil {
		c.cancel()
	}

	<-c.done

	return c.subscriber.Close()
}
