package storagequeue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/angelmondragon/workbooks-backend/pkg/config"
	"github.com/angelmondragon/workbooks-backend/pkg/tables"
)

const queueAlreadyExists = "QueueAlreadyExists"

type queueAPI interface {
	Create(ctx context.Context, o *azqueue.CreateOptions) (azqueue.CreateResponse, error)
	GetProperties(ctx context.Context, o *azqueue.GetQueuePropertiesOptions) (azqueue.GetQueuePropertiesResponse, error)
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
	DequeueMessages(ctx context.Context, o *azqueue.DequeueMessagesOptions) (azqueue.DequeueMessagesResponse, error)
	DeleteMessage(ctx context.Context, messageID string, popReceipt string, o *azqueue.DeleteMessageOptions) (azqueue.DeleteMessageResponse, error)
}

// Message is a dequeued message with the receipt needed to delete it.
type Message struct {
	ID           string
	PopReceipt   string
	Text         string
	DequeueCount int64
	InsertedAt   time.Time
}

// Client wraps one Azure Storage queue.
type Client struct {
	queue queueAPI
	name  string
}

// New builds a queue client from the storage connection string.
func New(cfg config.AzureConfig) (*Client, error) {
	if strings.TrimSpace(cfg.ConnectionString) == "" {
		return nil, errors.New("azure storage connection string is required")
	}
	if strings.TrimSpace(cfg.Queue) == "" {
		return nil, errors.New("azure queue name is required")
	}
	opts := &azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Minute,
				StatusCodes:   tables.RetryStatusCodes,
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(cfg.ConnectionString, cfg.Queue, opts)
	if err != nil {
		return nil, fmt.Errorf("creating queue client: %w", err)
	}
	return &Client{queue: q, name: cfg.Queue}, nil
}

// Name returns the queue name.
func (c *Client) Name() string {
	return c.name
}

// EnsureQueue creates the queue, treating an existing queue as success.
func (c *Client) EnsureQueue(ctx context.Context) error {
	if _, err := c.queue.Create(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == queueAlreadyExists {
			return nil
		}
		return fmt.Errorf("creating queue %q: %w", c.name, err)
	}
	return nil
}

// Ping reads the queue properties.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.queue.GetProperties(ctx, nil)
	return err
}

// Enqueue sends text and returns the service-assigned message id.
func (c *Client) Enqueue(ctx context.Context, text string) (string, error) {
	resp, err := c.queue.EnqueueMessage(ctx, text, nil)
	if err != nil {
		return "", err
	}
	for _, m := range resp.Messages {
		if m != nil && m.MessageID != nil {
			return *m.MessageID, nil
		}
	}
	return "", nil
}

// Dequeue receives up to max messages and hides them for visibility.
func (c *Client) Dequeue(ctx context.Context, max int32, visibility time.Duration) ([]Message, error) {
	opts := &azqueue.DequeueMessagesOptions{NumberOfMessages: to.Ptr(max)}
	if secs := int32(visibility / time.Second); secs > 0 {
		opts.VisibilityTimeout = to.Ptr(secs)
	}
	resp, err := c.queue.DequeueMessages(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m == nil || m.MessageID == nil || m.PopReceipt == nil {
			continue
		}
		msg := Message{ID: *m.MessageID, PopReceipt: *m.PopReceipt}
		if m.MessageText != nil {
			msg.Text = *m.MessageText
		}
		if m.DequeueCount != nil {
			msg.DequeueCount = *m.DequeueCount
		}
		if m.InsertionTime != nil {
			msg.InsertedAt = *m.InsertionTime
		}
		out = append(out, msg)
	}
	return out, nil
}

// Delete removes a processed message.
func (c *Client) Delete(ctx context.Context, msg Message) error {
	_, err := c.queue.DeleteMessage(ctx, msg.ID, msg.PopReceipt, nil)
	return err
}
