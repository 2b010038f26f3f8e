package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qrave1/RehearsalHub/internal/application/constant"
	"github.com/qrave1/RehearsalHub/internal/application/metric"
	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/domain/events"
	"github.com/qrave1/RehearsalHub/internal/domain/room"
	"github.com/qrave1/RehearsalHub/internal/infra/adapters/memory"
)

// BroadcastResult - итог одной рассылки.
// Dropped включает и переполненные, и уже закрытые соединения.
type BroadcastResult struct {
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
	Dropped    int `json:"dropped"`
}

type BroadcastUsecase interface {
	// Broadcast отправляет msg всем участникам комнаты на момент вызова.
	// origin может быть пустым, если событие пришло не от соединения.
	Broadcast(ctx context.Context, key room.Key, msg events.Message, origin domain.ConnectionID) (BroadcastResult, error)
}

type broadcastUsecase struct {
	registry      memory.RoomRegistry
	excludeSender bool
}

func NewBroadcastUsecase(registry memory.RoomRegistry, excludeSender bool) BroadcastUsecase {
	return &broadcastUsecase{
		registry:      registry,
		excludeSender: excludeSender,
	}
}

func (uc *broadcastUsecase) Broadcast(
	ctx context.Context,
	key room.Key,
	msg events.Message,
	origin domain.ConnectionID,
) (BroadcastResult, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("marshal %s: %w", msg.Type, err)
	}

	var (
		result BroadcastResult
		closed int
	)

	for _, conn := range uc.registry.Snapshot(key) {
		if uc.excludeSender && origin != "" && conn.ID == origin {
			continue
		}

		result.Recipients++

		err := conn.Send(payload)
		switch {
		case err == nil:
			result.Delivered++
		case errors.Is(err, domain.ErrConnectionClosed):
			// соединение уже закрывается, его комнаты чистит disconnect
			result.Dropped++
			closed++

			slog.DebugContext(
				ctx,
				"broadcast to closed connection",
				slog.String(constant.Room, key.String()),
				slog.String(constant.ConnectionID, conn.ID.String()),
			)
		default:
			result.Dropped++

			slog.WarnContext(
				ctx,
				"broadcast delivery dropped",
				slog.String(constant.Room, key.String()),
				slog.String(constant.Event, msg.Type),
				slog.String(constant.ConnectionID, conn.ID.String()),
				slog.Any(constant.Error, err),
			)
		}
	}

	metric.RecordBroadcast(msg.Type, result.Delivered, result.Dropped-closed, closed)

	slog.DebugContext(
		ctx,
		"broadcast done",
		slog.String(constant.Room, key.String()),
		slog.String(constant.Event, msg.Type),
		slog.Int("recipients", result.Recipients),
		slog.Int("delivered", result.Delivered),
		slog.Int("dropped", result.Dropped),
	)

	return result, nil
}
