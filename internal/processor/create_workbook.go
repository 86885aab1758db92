package processor

import (
	"context"
	"errors"

	"github.com/angelmondragon/workbooks-backend/internal/envelope"
	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
)

// createWorkbook checks for (ownerId, id) and creates the record only when absent.
type createWorkbook struct {
	env  envelope.Envelope
	deps Dependencies
}

func (p *createWorkbook) Run(ctx context.Context) (Outcome, error) {
	logg := p.deps.Logger

	result := p.env.Validate()
	if !result.Valid {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "workbook payload failed validation").WithDetails(result.Errors)
	}
	w, err := p.env.Workbook()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "workbook payload could not be decoded")
	}

	ctx = logg.WithFields(ctx, map[string]any{"workbook_id": w.ID, "owner_id": w.OwnerID})

	contended := false
	if p.deps.Claims != nil {
		key := p.deps.Claims.ClaimKey(w.OwnerID, w.ID)
		held, err := p.deps.Claims.Claim(ctx, key, p.deps.Holder, p.deps.ClaimTTL)
		switch {
		case err != nil:
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "workbook.claim_unavailable")
		case held:
			defer func() {
				if err := p.deps.Claims.Release(context.WithoutCancel(ctx), key, p.deps.Holder); err != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "workbook.claim_release_failed")
				}
			}()
		default:
			contended = true
		}
	}

	existing, err := p.deps.Store.GetWorkbook(ctx, w.OwnerID, w.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "check for existing workbook").
			WithDetails(map[string]any{"workbook_id": w.ID})
	}
	if existing != nil {
		logg.Info(ctx, "workbook.skipped")
		return OutcomeSkipped, nil
	}
	if contended {
		return "", pkgerrors.New(pkgerrors.CodeCommandInFlight, "workbook is being created by another delivery").
			WithDetails(map[string]any{"workbook_id": w.ID})
	}

	if err := p.deps.Store.CreateWorkbook(ctx, w); err != nil {
		if errors.Is(err, workbooks.ErrAlreadyExists) {
			logg.Info(logg.WithField(ctx, "reason", "unique_key"), "workbook.skipped")
			return OutcomeSkipped, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeCreateFailed, err, "create workbook").
			WithDetails(map[string]any{"workbook_id": w.ID})
	}

	logg.Info(ctx, "workbook.created")
	return OutcomeCreated, nil
}
