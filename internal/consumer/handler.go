package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/workbooks-backend/internal/envelope"
	"github.com/angelmondragon/workbooks-backend/internal/processor"
	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/metrics"
)

const (
	OutcomeDropped = "dropped"
	OutcomeRetry   = "retry"
)

// Result tells a transport whether to acknowledge a message.
type Result struct {
	Outcome string
	// Retry asks the transport to redeliver; false means acknowledge.
	Retry bool
	Err   error
}

// Options wires the shared message handler.
type Options struct {
	Parser   *envelope.Parser
	Store    processor.Store
	Claims   processor.Claims
	ClaimTTL time.Duration
	// InstanceID prefixes claim holders so claims are traceable to a worker.
	InstanceID string
	Logger     *logger.Logger
	Metrics    *metrics.CommandMetrics
}

// Handler runs one record through parse, dispatch and processing. Every
// transport feeds the same Handler.
type Handler struct {
	parser   *envelope.Parser
	store    processor.Store
	claims   processor.Claims
	claimTTL time.Duration
	instance string
	logg     *logger.Logger
	metrics  *metrics.CommandMetrics
	now      func() time.Time
}

func NewHandler(opts Options) (*Handler, error) {
	if opts.Store == nil {
		return nil, errors.New("workbook store is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Parser == nil {
		opts.Parser = envelope.NewParser()
	}
	return &Handler{
		parser:   opts.Parser,
		store:    opts.Store,
		claims:   opts.Claims,
		claimTTL: opts.ClaimTTL,
		instance: opts.InstanceID,
		logg:     opts.Logger,
		metrics:  opts.Metrics,
		now:      time.Now,
	}, nil
}

// Handle never panics; retryable failures ask for redelivery and everything
// else is acknowledged.
func (h *Handler) Handle(ctx context.Context, rec envelope.Record) (res Result) {
	start := h.now()
	command := ""
	ctx = h.logg.WithMessageID(ctx, rec.MessageID)

	defer func() {
		if p := recover(); p != nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("message handler panic: %v", p))
			h.logg.Error(ctx, "message.panic", err)
			res = Result{Outcome: OutcomeRetry, Retry: true, Err: err}
		}
		h.metrics.ObserveMessage(command, res.Outcome, h.now().Sub(start))
	}()

	env, err := h.parser.Parse(rec)
	if err != nil {
		return h.failed(ctx, err)
	}
	command = env.CommandName.String()
	ctx = h.logg.WithCommand(ctx, command)

	proc, err := processor.New(env, processor.Dependencies{
		Store:    h.store,
		Claims:   h.claims,
		ClaimTTL: h.claimTTL,
		Holder:   h.holder(rec.MessageID),
		Logger:   h.logg,
	})
	if err != nil {
		return h.failed(ctx, err)
	}

	outcome, err := proc.Run(ctx)
	if err != nil {
		return h.failed(ctx, err)
	}
	return Result{Outcome: string(outcome)}
}

func (h *Handler) failed(ctx context.Context, err error) Result {
	fields := map[string]any{"code": string(pkgerrors.CodeOf(err))}
	for k, v := range pkgerrors.Dump(err).Fields() {
		fields[k] = v
	}
	ctx = h.logg.WithFields(ctx, fields)

	if pkgerrors.IsRetryable(err) {
		h.logg.Error(ctx, "message.retry", err)
		return Result{Outcome: OutcomeRetry, Retry: true, Err: err}
	}
	h.logg.Warn(ctx, "message.dropped")
	return Result{Outcome: OutcomeDropped, Err: err}
}

func (h *Handler) holder(messageID string) string {
	if h.instance == "" {
		return messageID
	}
	return h.instance + "/" + messageID
}
