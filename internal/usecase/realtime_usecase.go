package usecase

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/qrave1/RehearsalHub/internal/application/constant"
	"github.com/qrave1/RehearsalHub/internal/application/metric"
	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/domain/events"
	"github.com/qrave1/RehearsalHub/internal/domain/room"
	"github.com/qrave1/RehearsalHub/internal/infra/adapters/memory"
)

// OnlineUser - пользователь и число его открытых соединений
type OnlineUser struct {
	UserID      string `json:"userId"`
	Connections int    `json:"connections"`
}

// RoomMember - соединение в комнате
type RoomMember struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
}

type RealtimeUsecase interface {
	HandleConnect(ctx context.Context, conn *domain.Connection) error
	HandleDisconnect(ctx context.Context, conn *domain.Connection)

	HandleJoin(ctx context.Context, conn *domain.Connection, key room.Key) error
	HandleLeave(ctx context.Context, conn *domain.Connection, key room.Key) error
	HandleEvent(ctx context.Context, conn *domain.Connection, evt events.RoutableEvent) error
	HandlePing(ctx context.Context, conn *domain.Connection)

	// ReplyError отправляет ошибку только этому соединению
	ReplyError(ctx context.Context, conn *domain.Connection, event string, reason string)

	// Publish рассылает событие от внутреннего источника, не от соединения.
	// Возвращает число комнат назначения.
	Publish(ctx context.Context, evt events.RoutableEvent) (int, error)

	OnlineUsers(ctx context.Context) []OnlineUser
	RoomMembers(ctx context.Context, key room.Key) []RoomMember

	// CloseAll закрывает все соединения при остановке сервера.
	// Комнаты чистит HandleDisconnect каждого соединения.
	CloseAll(ctx context.Context) int
}

type realtimeUsecase struct {
	connRepo  memory.ConnectionRepository
	registry  memory.RoomRegistry
	broadcast BroadcastUsecase
}

func NewRealtimeUsecase(
	connRepo memory.ConnectionRepository,
	registry memory.RoomRegistry,
	broadcast BroadcastUsecase,
) RealtimeUsecase {
	return &realtimeUsecase{
		connRepo:  connRepo,
		registry:  registry,
		broadcast: broadcast,
	}
}

func (uc *realtimeUsecase) HandleConnect(ctx context.Context, conn *domain.Connection) error {
	uc.connRepo.Add(conn)

	err := uc.reply(conn, events.TypeConnected, events.ConnectedEvent{
		ConnectionID: conn.ID.String(),
		UserID:       conn.Identity.UserID,
	})
	if err != nil {
		return fmt.Errorf("send connected: %w", err)
	}

	slog.InfoContext(
		ctx,
		"client connected",
		slog.String(constant.ConnectionID, conn.ID.String()),
		slog.String(constant.UserID, conn.Identity.UserID),
	)

	return nil
}

// HandleDisconnect синхронно убирает соединение из всех комнат.
// После возврата ни один снимок комнаты его не содержит.
func (uc *realtimeUsecase) HandleDisconnect(ctx context.Context, conn *domain.Connection) {
	conn.Close()

	left := uc.registry.LeaveAll(conn)

	uc.connRepo.Remove(conn.ID)

	slog.InfoContext(
		ctx,
		"client disconnected",
		slog.String(constant.ConnectionID, conn.ID.String()),
		slog.String(constant.UserID, conn.Identity.UserID),
		slog.Int("rooms", len(left)),
	)
}

func (uc *realtimeUsecase) HandleJoin(ctx context.Context, conn *domain.Connection, key room.Key) error {
	if err := uc.registry.Join(conn, key); err != nil {
		uc.ReplyError(ctx, conn, joinEventType(key), err.Error())
		return nil
	}

	metric.IncrementRoomJoins(string(key.Kind()))

	slog.DebugContext(
		ctx,
		"room joined",
		slog.String(constant.ConnectionID, conn.ID.String()),
		slog.String(constant.Room, key.String()),
	)

	if err := uc.reply(conn, events.TypeJoined, events.RoomEvent{Room: key.String()}); err != nil {
		return fmt.Errorf("send joined: %w", err)
	}

	return nil
}

func (uc *realtimeUsecase) HandleLeave(ctx context.Context, conn *domain.Connection, key room.Key) error {
	if err := uc.registry.Leave(conn, key); err != nil {
		uc.ReplyError(ctx, conn, leaveEventType(key), err.Error())
		return nil
	}

	slog.DebugContext(
		ctx,
		"room left",
		slog.String(constant.ConnectionID, conn.ID.String()),
		slog.String(constant.Room, key.String()),
	)

	if err := uc.reply(conn, events.TypeLeft, events.RoomEvent{Room: key.String()}); err != nil {
		return fmt.Errorf("send left: %w", err)
	}

	return nil
}

func (uc *realtimeUsecase) HandleEvent(ctx context.Context, conn *domain.Connection, evt events.RoutableEvent) error {
	// отправителя определяет токен, а не клиент
	if chat, ok := evt.(events.ChatMessage); ok {
		chat.SenderID = conn.Identity.UserID
		evt = chat
	}

	_, err := uc.dispatch(ctx, evt, conn.ID)
	if errors.Is(err, domain.ErrUnroutableEvent) {
		uc.ReplyError(ctx, conn, evt.EventType(), err.Error())
		return nil
	}

	return err
}

func (uc *realtimeUsecase) HandlePing(ctx context.Context, conn *domain.Connection) {
	if err := uc.reply(conn, events.TypePong, nil); err != nil {
		slog.DebugContext(
			ctx,
			"send pong",
			slog.String(constant.ConnectionID, conn.ID.String()),
			slog.Any(constant.Error, err),
		)
	}
}

func (uc *realtimeUsecase) ReplyError(ctx context.Context, conn *domain.Connection, event string, reason string) {
	err := uc.reply(conn, events.TypeError, events.ErrorEvent{Message: reason, Event: event})
	if err != nil {
		slog.WarnContext(
			ctx,
			"send error reply",
			slog.String(constant.ConnectionID, conn.ID.String()),
			slog.String(constant.Event, event),
			slog.Any(constant.Error, err),
		)
	}
}

func (uc *realtimeUsecase) Publish(ctx context.Context, evt events.RoutableEvent) (int, error) {
	return uc.dispatch(ctx, evt, "")
}

func (uc *realtimeUsecase) OnlineUsers(_ context.Context) []OnlineUser {
	counts := lo.CountValuesBy(uc.connRepo.GetAllConnected(), func(conn *domain.Connection) string {
		return conn.Identity.UserID
	})

	users := lo.MapToSlice(counts, func(userID string, n int) OnlineUser {
		return OnlineUser{UserID: userID, Connections: n}
	})

	slices.SortFunc(users, func(a, b OnlineUser) int {
		return cmp.Compare(a.UserID, b.UserID)
	})

	return users
}

func (uc *realtimeUsecase) RoomMembers(_ context.Context, key room.Key) []RoomMember {
	members := lo.Map(uc.registry.Snapshot(key), func(conn *domain.Connection, _ int) RoomMember {
		return RoomMember{ConnectionID: conn.ID.String(), UserID: conn.Identity.UserID}
	})

	slices.SortFunc(members, func(a, b RoomMember) int {
		return cmp.Compare(a.ConnectionID, b.ConnectionID)
	})

	return members
}

func (uc *realtimeUsecase) CloseAll(ctx context.Context) int {
	conns := uc.connRepo.GetAllConnected()

	for _, conn := range conns {
		conn.Close()
	}

	slog.InfoContext(ctx, "all connections closed", slog.Int("count", len(conns)))

	return len(conns)
}

// dispatch маршрутизирует событие и рассылает его по каждой комнате независимо:
// ошибка одной рассылки не отменяет остальные.
func (uc *realtimeUsecase) dispatch(
	ctx context.Context,
	evt events.RoutableEvent,
	origin domain.ConnectionID,
) (int, error) {
	targets, err := events.Route(evt)
	if err != nil {
		metric.IncrementUnroutable(evt.EventType())

		slog.WarnContext(
			ctx,
			"unroutable event",
			slog.String(constant.Event, evt.EventType()),
			slog.String(constant.ConnectionID, origin.String()),
			slog.Any(constant.Error, err),
		)

		return 0, err
	}

	var errs []error

	for _, target := range targets {
		msg, err := events.NewMessage(target.Type, target.Data)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if _, err = uc.broadcast.Broadcast(ctx, target.Room, msg, origin); err != nil {
			errs = append(errs, fmt.Errorf("broadcast to %s: %w", target.Room, err))
		}
	}

	return len(targets), errors.Join(errs...)
}

func (uc *realtimeUsecase) reply(conn *domain.Connection, msgType string, data any) error {
	msg, err := events.NewMessage(msgType, data)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}

	return conn.Send(payload)
}

func joinEventType(key room.Key) string {
	if key.Kind() == room.KindRehearsal {
		return events.TypeJoinRehearsal
	}
	return events.TypeJoinBand
}

func leaveEventType(key room.Key) string {
	if key.Kind() == room.KindRehearsal {
		return events.TypeLeaveRehearsal
	}
	return events.TypeLeaveBand
}
