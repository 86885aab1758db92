package transport

import (
	"context"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/workbooks-backend/internal/commands"
)

const defaultPublishTimeout = 15 * time.Second

type publisher interface {
	Publish(context.Context, *pubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubPublisher publishes commands to one Pub/Sub topic.
type PubSubPublisher struct {
	pub     publisher
	timeout time.Duration
}

// NewPubSubPublisher wraps p; a non-positive timeout uses the default.
func NewPubSubPublisher(p *pubsub.Publisher, timeout time.Duration) (*PubSubPublisher, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return newPubSubPublisher(&gcpPublisher{Publisher: p}, timeout), nil
}

func newPubSubPublisher(p publisher, timeout time.Duration) *PubSubPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &PubSubPublisher{pub: p, timeout: timeout}
}

// Publish blocks until the server acknowledges the message and returns its id.
func (p *PubSubPublisher) Publish(ctx context.Context, msg commands.Message) (string, error) {
	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.pub.Publish(publishCtx, &pubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if result == nil {
		return "", errors.New("publisher returned no result")
	}
	return result.Get(publishCtx)
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
