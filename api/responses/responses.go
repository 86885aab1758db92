package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
	"github.com/angelmondragon/workbooks-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteAccepted answers a queued command with 202 and a Location header.
func WriteAccepted(w http.ResponseWriter, id, location string) {
	w.Header().Set("Location", location)
	WriteSuccessStatus(w, http.StatusAccepted, types.Accepted{ID: id, Location: location})
}

// callerFacing lists codes whose own message is safe to show the caller.
var callerFacing = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:           true,
	pkgerrors.CodeUnauthorized:         true,
	pkgerrors.CodeNotFound:             true,
	pkgerrors.CodeIdempotency:          true,
	pkgerrors.CodeUnsupportedCommand:   true,
	pkgerrors.CodeMalformedRequestBody: true,
}

// WriteError renders err as an error envelope. Untyped errors become
// INTERNAL_ERROR; 5xx responses are logged as errors, the rest as warnings.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		logFailure(ctx, logg, err, meta.HTTPStatus)
	}
	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: publicError(w, typed, meta)})
}

func publicError(w http.ResponseWriter, typed *pkgerrors.Error, meta pkgerrors.Metadata) types.APIError {
	out := types.APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		RequestID: w.Header().Get("X-Request-Id"),
	}
	if m := typed.Message(); callerFacing[typed.Code()] && m != "" {
		out.Message = m
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return out
}

func logFailure(ctx context.Context, logg *logger.Logger, err error, status int) {
	fields := pkgerrors.Dump(err).Fields()
	fields["status"] = status
	ctx = logg.WithFields(ctx, fields)
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
