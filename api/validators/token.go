package validators

import (
	"errors"
	"net/http"
	"strings"
)

var ErrInvalidToken = errors.New("invalid auth token")

// BearerToken extracts the token from the Authorization header. A bare token
// is accepted; any scheme other than Bearer (case-insensitive) is rejected.
func BearerToken(h http.Header) (string, error) {
	raw := strings.TrimSpace(h.Get("Authorization"))
	scheme, rest, found := strings.Cut(raw, " ")
	token := raw
	if found {
		if !strings.EqualFold(scheme, "bearer") {
			return "", ErrInvalidToken
		}
		token = strings.TrimSpace(rest)
	} else if strings.EqualFold(raw, "bearer") {
		token = ""
	}
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
