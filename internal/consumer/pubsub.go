package consumer

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/workbooks-backend/internal/commands"
	"github.com/angelmondragon/workbooks-backend/internal/envelope"
)

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// PubSubConsumer pulls workbook commands from a Pub/Sub subscription.
type PubSubConsumer struct {
	handler *Handler
	sub     receiver
	topic   string
}

// NewPubSubConsumer constructs a consumer that watches the provided subscription.
func NewPubSubConsumer(handler *Handler, sub *pubsub.Subscriber, topic string) (*PubSubConsumer, error) {
	if handler == nil {
		return nil, errors.New("message handler is required")
	}
	if sub == nil {
		return nil, errors.New("workbook subscription is required")
	}
	return &PubSubConsumer{handler: handler, sub: sub, topic: topic}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *PubSubConsumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether msg should be acknowledged.
func (c *PubSubConsumer) process(ctx context.Context, msg *pubsub.Message) bool {
	res := c.handler.Handle(ctx, envelope.FromDelivery(c.delivery(msg)))
	return !res.Retry
}

func (c *PubSubConsumer) delivery(msg *pubsub.Message) commands.Delivery {
	return commands.Delivery{
		ID:          msg.ID,
		Topic:       c.topic,
		PublishedAt: msg.PublishTime,
		Data:        msg.Data,
		Attributes:  msg.Attributes,
	}
}
