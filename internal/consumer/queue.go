package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/workbooks-backend/internal/envelope"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/storagequeue"
)

const (
	defaultBatchSize     = 16
	defaultMaxDeliveries = 5
)

type queueClient interface {
	Dequeue(ctx context.Context, max int32, visibility time.Duration) ([]storagequeue.Message, error)
	Delete(ctx context.Context, msg storagequeue.Message) error
}

// QueueOptions tunes the storage queue poller.
type QueueOptions struct {
	PollInterval      time.Duration
	VisibilityTimeout time.Duration
	BatchSize         int32
	// MaxDeliveries drops a message once it has been dequeued this many times.
	MaxDeliveries int64
}

// QueueConsumer polls an Azure Storage queue of SNS-style notifications.
// Acknowledged messages are deleted; retried ones reappear after the
// visibility timeout.
type QueueConsumer struct {
	handler *Handler
	queue   queueClient
	logg    *logger.Logger
	opts    QueueOptions
}

func NewQueueConsumer(handler *Handler, queue *storagequeue.Client, logg *logger.Logger, opts QueueOptions) (*QueueConsumer, error) {
	if handler == nil {
		return nil, errors.New("message handler is required")
	}
	if queue == nil {
		return nil, errors.New("workbook queue is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return newQueueConsumer(handler, queue, logg, opts), nil
}

func newQueueConsumer(handler *Handler, queue queueClient, logg *logger.Logger, opts QueueOptions) *QueueConsumer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = 30 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = defaultMaxDeliveries
	}
	return &QueueConsumer{handler: handler, queue: queue, logg: logg, opts: opts}
}

// Run polls until ctx is canceled.
func (c *QueueConsumer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		n, err := c.poll(ctx)
		if err != nil && ctx.Err() == nil {
			c.logg.Error(ctx, "queue.poll_failed", err)
		}
		if n > 0 && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll handles one batch and returns how many messages it saw.
func (c *QueueConsumer) poll(ctx context.Context) (int, error) {
	msgs, err := c.queue.Dequeue(ctx, c.opts.BatchSize, c.opts.VisibilityTimeout)
	if err != nil {
		return 0, err
	}
	for _, msg := range msgs {
		if c.process(ctx, msg) {
			if err := c.queue.Delete(ctx, msg); err != nil {
				c.logg.Error(c.logg.WithMessageID(ctx, msg.ID), "queue.delete_failed", err)
			}
		}
	}
	return len(msgs), nil
}

// process reports whether msg should be deleted.
func (c *QueueConsumer) process(ctx context.Context, msg storagequeue.Message) bool {
	ctx = c.logg.WithMessageID(ctx, msg.ID)

	rec, err := envelope.DecodeRecord([]byte(msg.Text))
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "message.dropped")
		return true
	}
	if rec.MessageID == "" {
		rec.MessageID = msg.ID
	}

	res := c.handler.Handle(ctx, rec)
	if !res.Retry {
		return true
	}
	if msg.DequeueCount >= c.opts.MaxDeliveries {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"dequeue_count": msg.DequeueCount,
			"reason":        "max_deliveries",
		}), "message.dropped")
		return true
	}
	return false
}
