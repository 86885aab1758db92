package tables

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/angelmondragon/workbooks-backend/pkg/config"
)

// RetryStatusCodes are the responses the SDK pipeline retries on its own.
var RetryStatusCodes = []int{
	http.StatusRequestTimeout,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// ClientOptions returns the shared azcore pipeline settings for table calls.
func ClientOptions() *aztables.ClientOptions {
	return &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   RetryStatusCodes,
			},
		},
	}
}

// Client owns the workbooks table handle.
type Client struct {
	table *aztables.Client
	name  string
}

// New builds a table client from the storage connection string.
func New(cfg config.AzureConfig) (*Client, error) {
	if strings.TrimSpace(cfg.ConnectionString) == "" {
		return nil, errors.New("azure storage connection string is required")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.New("azure table name is required")
	}
	svc, err := aztables.NewServiceClientFromConnectionString(cfg.ConnectionString, ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("creating table service client: %w", err)
	}
	return &Client{table: svc.NewClient(cfg.Table), name: cfg.Table}, nil
}

// Table returns the underlying aztables client.
func (c *Client) Table() *aztables.Client {
	return c.table
}

// EnsureTable creates the table, treating an existing table as success.
func (c *Client) EnsureTable(ctx context.Context) error {
	if _, err := c.table.CreateTable(ctx, nil); err != nil && !IsAlreadyExists(err) {
		return fmt.Errorf("creating table %q: %w", c.name, err)
	}
	return nil
}

// Ping reads at most one entity to confirm the table is reachable.
func (c *Client) Ping(ctx context.Context) error {
	pager := c.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Top: to.Ptr(int32(1))})
	if !pager.More() {
		return nil
	}
	_, err := pager.NextPage(ctx)
	return err
}

// IsAlreadyExists reports the TableAlreadyExists service error.
func IsAlreadyExists(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)
}
