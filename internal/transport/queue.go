package transport

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/workbooks-backend/internal/commands"
	"github.com/angelmondragon/workbooks-backend/internal/envelope"
	"github.com/angelmondragon/workbooks-backend/pkg/storagequeue"
	"github.com/google/uuid"
)

type enqueuer interface {
	Name() string
	Enqueue(ctx context.Context, text string) (string, error)
}

// QueuePublisher wraps commands in SNS-style notifications on an Azure
// Storage queue. The returned message id is the notification MessageId.
type QueuePublisher struct {
	queue enqueuer
	now   func() time.Time
	newID func() string
}

func NewQueuePublisher(queue *storagequeue.Client) (*QueuePublisher, error) {
	if queue == nil {
		return nil, errors.New("workbook queue is required")
	}
	return newQueuePublisher(queue), nil
}

func newQueuePublisher(queue enqueuer) *QueuePublisher {
	return &QueuePublisher{
		queue: queue,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (p *QueuePublisher) Publish(ctx context.Context, msg commands.Message) (string, error) {
	id := p.newID()
	text, err := envelope.EncodeRecord(envelope.Record{
		MessageID:  id,
		Topic:      p.queue.Name(),
		Subject:    msg.Subject,
		Timestamp:  p.now().UTC().Format(time.RFC3339),
		Message:    msg.Data,
		Attributes: msg.Attributes,
	})
	if err != nil {
		return "", err
	}
	if _, err := p.queue.Enqueue(ctx, string(text)); err != nil {
		return "", err
	}
	return id, nil
}
