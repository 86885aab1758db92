package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/workbooks-backend/api/middleware"
	"github.com/angelmondragon/workbooks-backend/api/responses"
	"github.com/angelmondragon/workbooks-backend/api/validators"
	"github.com/angelmondragon/workbooks-backend/internal/ingress"
	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
)

var listLimit = validators.IntRange{Default: 50, Min: 1, Max: 500}

// CommandRunner is the ingress surface used by the write endpoint.
type CommandRunner interface {
	Run(ctx context.Context, req ingress.Request) ingress.Response
}

// WorkbookReader is the read side of the workbook store.
type WorkbookReader interface {
	GetWorkbook(ctx context.Context, ownerID, id string) (*workbooks.Workbook, error)
	ListByOwner(ctx context.Context, ownerID string) ([]workbooks.Workbook, error)
}

// CreateWorkbook accepts a domain command for the authenticated caller.
func CreateWorkbook(svc CommandRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := validators.ReadBody(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := svc.Run(r.Context(), ingress.Request{
			Header: r.Header,
			Body:   body,
			Owner:  middleware.OwnerFromContext(r.Context()),
		})
		if resp.Err != nil {
			// ingress already logged the rejection
			responses.WriteError(r.Context(), nil, w, resp.Err)
			return
		}
		responses.WriteAccepted(w, resp.ID, resp.Location)
	}
}

// GetWorkbook returns one of the caller's workbooks without owner fields.
func GetWorkbook(store WorkbookReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "workbook id is required"))
			return
		}

		found, err := store.GetWorkbook(r.Context(), middleware.UserIDFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load workbook"))
			return
		}
		if found == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "workbook not found"))
			return
		}
		responses.WriteSuccess(w, found.Public())
	}
}

// ListWorkbooks returns the caller's workbooks, oldest first.
func ListWorkbooks(store WorkbookReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.QueryInt(r, "limit", listLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := store.ListByOwner(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list workbooks"))
			return
		}
		if len(rows) > limit {
			rows = rows[:limit]
		}
		out := make([]workbooks.Public, 0, len(rows))
		for _, row := range rows {
			out = append(out, row.Public())
		}
		responses.WriteSuccess(w, out)
	}
}
