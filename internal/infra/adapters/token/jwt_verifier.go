package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/qrave1/RehearsalHub/internal/domain"
)

// JWTVerifier проверяет HS256 токены, выпущенные сервисом авторизации.
// Subject токена - идентификатор пользователя.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}

	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (domain.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Identity{}, fmt.Errorf("empty token: %w", domain.ErrUnauthorized)
	}

	token, err := v.parser.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return domain.Identity{}, fmt.Errorf("expired jwt: %w: %w", domain.ErrUnauthorized, domain.ErrTokenExpired)
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid jwt: %w: %w", domain.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, fmt.Errorf("invalid jwt claims: %w", domain.ErrUnauthorized)
	}

	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("jwt without subject: %w", domain.ErrUnauthorized)
	}

	return domain.Identity{UserID: claims.Subject}, nil
}
