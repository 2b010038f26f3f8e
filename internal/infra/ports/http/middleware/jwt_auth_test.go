package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/infra/appctx"
	"github.com/qrave1/RehearsalHub/internal/infra/ports/http/middleware"
	"github.com/qrave1/RehearsalHub/internal/usecase/mocks"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    string
	}{
		{
			name:    "bearer header",
			prepare: func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer abc") },
			want:    "abc",
		},
		{
			name:    "lowercase scheme",
			prepare: func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "bearer abc") },
			want:    "abc",
		},
		{
			name: "header wins over cookie",
			prepare: func(r *http.Request) {
				r.Header.Set(echo.HeaderAuthorization, "Bearer header")
				r.AddCookie(&http.Cookie{Name: "jwt", Value: "cookie"})
			},
			want: "header",
		},
		{
			name:    "basic scheme ignored",
			prepare: func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Basic abc") },
			want:    "",
		},
		{
			name: "query param",
			prepare: func(r *http.Request) {
				r.URL.RawQuery = "token=fromquery"
			},
			want: "fromquery",
		},
		{
			name:    "cookie",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: "fromcookie"}) },
			want:    "fromcookie",
		},
		{
			name:    "nothing",
			prepare: func(*http.Request) {},
			want:    "",
		},
	}

	e := echo.New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tt.prepare(r)

			require.Equal(t, tt.want, middleware.ExtractToken(e.NewContext(r, httptest.NewRecorder())))
		})
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	e := echo.New()

	handler := func(c echo.Context) error {
		identity, ok := appctx.Identity(c.Request().Context())
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, identity.UserID)
	}

	t.Run("should reject request without token", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		verifier := mocks.NewMockTokenVerifier(ctrl)

		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), rec)

		req.NoError(middleware.JWTAuthMiddleware(verifier)(handler)(c))
		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("should reject invalid token", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		verifier := mocks.NewMockTokenVerifier(ctrl)
		verifier.EXPECT().Verify(gomock.Any(), "bad").Return(domain.Identity{}, errors.New("expired"))

		r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		r.Header.Set(echo.HeaderAuthorization, "Bearer bad")
		rec := httptest.NewRecorder()

		req.NoError(middleware.JWTAuthMiddleware(verifier)(handler)(e.NewContext(r, rec)))
		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("should put identity into context", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		verifier := mocks.NewMockTokenVerifier(ctrl)
		verifier.EXPECT().Verify(gomock.Any(), "good").Return(domain.Identity{UserID: "u1"}, nil)

		r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		r.AddCookie(&http.Cookie{Name: "jwt", Value: "good"})
		rec := httptest.NewRecorder()

		req.NoError(middleware.JWTAuthMiddleware(verifier)(handler)(e.NewContext(r, rec)))
		req.Equal(http.StatusOK, rec.Code)
		req.Equal("u1", rec.Body.String())
	})
}
