package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishRequestDenied is a function that publishes a denial event.
// Handlers and middleware depend on this narrow type rather than the whole
// Publisher.
type PublishRequestDenied func(event *RequestDeniedEvent) error

// Publisher publishes rate limit denial events.
type Publisher struct {
	publisher message.Publisher
}

// NewPublisher creates a new denial event publisher.
func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// PublishRequestDenied publishes a request denied event.
func (p *Publisher) PublishRequestDenied(event *RequestDeniedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)

	return p.publisher.Publish(TopicRequestDenied, msg)
}

// Shutdown closes the underlying publisher.
func (p *Publisher) Shutdown() error {
	return p.publisher.Close()
}
