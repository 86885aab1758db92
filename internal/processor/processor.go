package processor

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/workbooks-backend/internal/commands"
	"github.com/angelmondragon/workbooks-backend/internal/envelope"
	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
)

// Outcome is the terminal state of a successful run.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped"
)

// Processor handles one parsed command in a single pass.
type Processor interface {
	Run(ctx context.Context) (Outcome, error)
}

// Store is the subset of the workbook repository the processors need.
type Store interface {
	GetWorkbook(ctx context.Context, ownerID, id string) (*workbooks.Workbook, error)
	CreateWorkbook(ctx context.Context, w workbooks.Workbook) error
}

// Claims serializes concurrent deliveries of the same record.
type Claims interface {
	Claim(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, holder string) error
	ClaimKey(ownerID, id string) string
}

// Dependencies are built fresh per invocation by the consumer.
type Dependencies struct {
	Store Store
	// Claims is optional; without it duplicates race on the store key alone.
	Claims   Claims
	ClaimTTL time.Duration
	// Holder identifies this invocation in claims; defaults to the message id.
	Holder string
	Logger *logger.Logger
}

const defaultClaimTTL = 5 * time.Minute

// New routes envelope to the processor that owns its command.
func New(env envelope.Envelope, deps Dependencies) (Processor, error) {
	if deps.Store == nil {
		return nil, errors.New("workbook store is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.ClaimTTL <= 0 {
		deps.ClaimTTL = defaultClaimTTL
	}
	if deps.Holder == "" {
		deps.Holder = env.MessageID
	}

	switch env.CommandName {
	case commands.CreateWorkbook:
		return &createWorkbook{env: env, deps: deps}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnsupportedCommand, "no processor for command").
			WithDetails(map[string]any{"command": env.CommandName.String(), "message_id": env.MessageID})
	}
}
