package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	tokenQueryParam = "token"
	tokenCookie     = "jwt"
)

// ExtractToken достаёт токен из заголовка Authorization, query-параметра token или cookie jwt.
// Браузерный WebSocket не умеет ставить заголовки, поэтому для /ws нужен query или cookie.
func ExtractToken(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	if token := c.QueryParam(tokenQueryParam); token != "" {
		return token
	}

	if cookie, err := c.Cookie(tokenCookie); err == nil {
		return cookie.Value
	}

	return ""
}
