package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/workbooks-backend/api/responses"
	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 error envelope.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer recoverPanic(w, r, logg)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverPanic(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	rec := recover()
	if rec == nil {
		return
	}
	// net/http uses ErrAbortHandler to abort a response silently.
	if rec == http.ErrAbortHandler {
		panic(rec)
	}

	cause, ok := rec.(error)
	if !ok {
		cause = fmt.Errorf("%v", rec)
	}
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"panic":  fmt.Sprint(rec),
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "handler panicked"))
}
