package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qrave1/RehearsalHub/internal/application/constant"
	"github.com/qrave1/RehearsalHub/internal/application/metric"
	"github.com/qrave1/RehearsalHub/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=gatekeeper.go -destination=./mocks/token_verifier_mock.go -package=mocks

// TokenVerifier проверяет токен, выданный внешним сервисом авторизации
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// Gatekeeper пропускает соединение к комнатам только с проверенной личностью.
// Проверка выполняется один раз при подключении, а не на каждое событие.
type Gatekeeper struct {
	verifier   TokenVerifier
	sendBuffer int
}

func NewGatekeeper(verifier TokenVerifier, sendBuffer int) *Gatekeeper {
	return &Gatekeeper{
		verifier:   verifier,
		sendBuffer: sendBuffer,
	}
}

// Admit возвращает соединение с привязанной личностью или ошибку domain.ErrUnauthorized.
// При отказе никакого состояния не создаётся.
func (g *Gatekeeper) Admit(ctx context.Context, token string) (*domain.Connection, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, g.refuse(ctx, fmt.Errorf("missing token: %w", domain.ErrUnauthorized))
	}

	identity, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return nil, g.refuse(ctx, fmt.Errorf("verify token: %w: %w", domain.ErrUnauthorized, err))
	}

	if identity.UserID == "" {
		return nil, g.refuse(ctx, fmt.Errorf("token without user id: %w", domain.ErrUnauthorized))
	}

	conn := domain.NewConnection(identity, g.sendBuffer)

	slog.InfoContext(
		ctx,
		"connection admitted",
		slog.String(constant.ConnectionID, conn.ID.String()),
		slog.String(constant.UserID, identity.UserID),
	)

	return conn, nil
}

func (g *Gatekeeper) refuse(ctx context.Context, err error) error {
	metric.IncrementRefusedConnections()

	slog.WarnContext(
		ctx,
		"connection refused",
		slog.Bool("expired", errors.Is(err, domain.ErrTokenExpired)),
		slog.Any(constant.Error, err),
	)

	return err
}
