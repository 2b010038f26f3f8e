package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/infra/appctx"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

func JWTAuthMiddleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ExtractToken(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing or malformed jwt"})
			}

			identity, err := verifier.Verify(c.Request().Context(), token)
			if err != nil || identity.UserID == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired jwt"})
			}

			c.SetRequest(
				c.Request().WithContext(
					appctx.WithIdentity(c.Request().Context(), identity),
				),
			)

			return next(c)
		}
	}
}
