package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
)

// IntRange bounds an integer query parameter.
type IntRange struct {
	Default int
	Min     int
	Max     int
}

// QueryInt reads key from the query string. An absent or blank value yields
// rng.Default; repeated, non-numeric or out-of-range values are rejected.
func QueryInt(r *http.Request, key string, rng IntRange) (int, error) {
	values := r.URL.Query()[key]
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return rng.Default, nil
	}
	if len(values) > 1 {
		return 0, queryError(key, "query parameter given more than once", nil)
	}
	value, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return 0, queryError(key, "query parameter must be numeric", nil)
	}
	if value < rng.Min || value > rng.Max {
		return 0, queryError(key, "query parameter out of range", map[string]any{"min": rng.Min, "max": rng.Max})
	}
	return value, nil
}

func queryError(key, msg string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}
