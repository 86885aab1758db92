package middleware

import (
	"net/http"

	"github.com/angelmondragon/workbooks-backend/api/responses"
	"github.com/angelmondragon/workbooks-backend/api/validators"
	pkgAuth "github.com/angelmondragon/workbooks-backend/pkg/auth"
	"github.com/angelmondragon/workbooks-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/workbooks-backend/pkg/errors"
	"github.com/angelmondragon/workbooks-backend/pkg/logger"
)

// Auth admits requests carrying a valid access token and records the caller
// as the owner of anything the request creates.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(cfg, r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithUser(r.Context(), claims.UserID, claims.DisplayName())
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(cfg config.JWTConfig, r *http.Request) (*pkgAuth.AccessTokenClaims, error) {
	token, err := validators.BearerToken(r.Header)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	return claims, nil
}
