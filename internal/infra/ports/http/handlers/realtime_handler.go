package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RehearsalHub/internal/application/constant"
	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/domain/events"
	"github.com/qrave1/RehearsalHub/internal/domain/room"
	"github.com/qrave1/RehearsalHub/internal/infra/appctx"
	"github.com/qrave1/RehearsalHub/internal/infra/ports/http/dto"
	"github.com/qrave1/RehearsalHub/internal/usecase"
)

// RealtimeHandler - HTTP вход для внутренних сервисов и интроспекция комнат
type RealtimeHandler struct {
	realtime usecase.RealtimeUsecase
}

func NewRealtimeHandler(realtime usecase.RealtimeUsecase) *RealtimeHandler {
	return &RealtimeHandler{realtime: realtime}
}

// PublishEvent рассылает событие, пришедшее не из сокета (например, после сохранения репетиции)
func (h *RealtimeHandler) PublishEvent(c echo.Context) error {
	var msg events.Message
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
	}

	evt, ok, err := events.DecodeRoutable(msg)
	if !ok {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unsupported event type"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	ctx := c.Request().Context()

	targets, err := h.realtime.Publish(ctx, evt)
	switch {
	case errors.Is(err, domain.ErrUnroutableEvent):
		return c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
	case err != nil:
		slog.ErrorContext(ctx, "publish event", slog.String(constant.Event, msg.Type), slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to publish event"})
	}

	return c.JSON(http.StatusAccepted, dto.PublishEventResponse{Targets: targets})
}

func (h *RealtimeHandler) GetOnlineUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.OnlineUsersResponse{
		Users: h.realtime.OnlineUsers(c.Request().Context()),
	})
}

func (h *RealtimeHandler) GetRoom(c echo.Context) error {
	key, err := room.Parse(c.Param("kind"), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, dto.RoomResponse{
		Room:    key.String(),
		Members: h.realtime.RoomMembers(c.Request().Context(), key),
	})
}

func (h *RealtimeHandler) GetMe(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid user"})
	}

	return c.JSON(http.StatusOK, dto.GetMeResponse{UserID: identity.UserID})
}
