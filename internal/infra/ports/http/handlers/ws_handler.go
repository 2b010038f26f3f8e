package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/qrave1/RehearsalHub/internal/application/config"
	"github.com/qrave1/RehearsalHub/internal/application/constant"
	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/domain/events"
	"github.com/qrave1/RehearsalHub/internal/domain/room"
	"github.com/qrave1/RehearsalHub/internal/infra/appctx"
	"github.com/qrave1/RehearsalHub/internal/infra/ports/http/dto"
	"github.com/qrave1/RehearsalHub/internal/infra/ports/http/middleware"
	"github.com/qrave1/RehearsalHub/internal/usecase"
)

type Gatekeeper interface {
	Admit(ctx context.Context, token string) (*domain.Connection, error)
}

type WebSocketHandler struct {
	cfg      config.WebsocketConfig
	upgrader *websocket.Upgrader

	gatekeeper Gatekeeper
	realtime   usecase.RealtimeUsecase
}

func NewWebSocketHandler(cfg *config.Config, gatekeeper Gatekeeper, realtime usecase.RealtimeUsecase) *WebSocketHandler {
	return &WebSocketHandler{
		cfg: cfg.WS,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.Debug, cfg.Domain),
		},
		gatekeeper: gatekeeper,
		realtime:   realtime,
	}
}

// Handle проверяет токен до апгрейда: без личности сокет не открывается
func (h *WebSocketHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	conn, err := h.gatekeeper.Admit(ctx, middleware.ExtractToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// ответ уже записан апгрейдером
		slog.WarnContext(
			ctx,
			"WebSocket upgrade error",
			slog.String(constant.ConnectionID, conn.ID.String()),
			slog.Any(constant.Error, err),
		)
		return nil
	}
	defer ws.Close()

	ctx = appctx.WithIdentity(ctx, conn.Identity)

	if err = h.realtime.HandleConnect(ctx, conn); err != nil {
		slog.ErrorContext(ctx, "handle connect", slog.Any(constant.Error, err))
		h.realtime.HandleDisconnect(ctx, conn)
		return nil
	}
	defer h.realtime.HandleDisconnect(context.WithoutCancel(ctx), conn)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return h.readLoop(gctx, ws, conn)
	})

	g.Go(func() error {
		return h.writeLoop(gctx, ws, conn)
	})

	h.handleWebsocketError(ctx, conn, g.Wait())

	return nil
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, conn *domain.Connection) error {
	ws.SetReadLimit(h.cfg.MaxMessageSize)

	if err := ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		var msg events.Message
		if err = json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			h.realtime.ReplyError(ctx, conn, "", "malformed message")
			continue
		}

		if err = h.handleMessage(ctx, conn, msg); err != nil {
			slog.WarnContext(
				ctx,
				"handle message",
				slog.String(constant.ConnectionID, conn.ID.String()),
				slog.String(constant.Event, msg.Type),
				slog.Any(constant.Error, err),
			)
		}
	}
}

// writeLoop - единственный писатель в сокет
func (h *WebSocketHandler) writeLoop(ctx context.Context, ws *websocket.Conn, conn *domain.Connection) error {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		// разблокирует ReadMessage в readLoop
		ws.Close()
	}()

	for {
		select {
		case payload := <-conn.Outbound():
			if err := ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				return fmt.Errorf("set write deadline: %w", err)
			}

			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return fmt.Errorf("write message: %w", err)
			}

		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}

		case <-conn.Done():
			_ = ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closed connection"),
				time.Now().Add(h.cfg.WriteTimeout),
			)
			return nil

		case <-ctx.Done():
			return nil
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *domain.Connection, msg events.Message) error {
	switch msg.Type {
	case events.TypeJoinBand:
		var e events.JoinBandEvent
		if err := decodeRoomEvent(msg, &e); err != nil {
			h.realtime.ReplyError(ctx, conn, msg.Type, "invalid bandId")
			return err
		}
		return h.realtime.HandleJoin(ctx, conn, room.Band(e.BandID))

	case events.TypeJoinRehearsal:
		var e events.JoinRehearsalEvent
		if err := decodeRoomEvent(msg, &e); err != nil {
			h.realtime.ReplyError(ctx, conn, msg.Type, "invalid rehearsalId")
			return err
		}
		return h.realtime.HandleJoin(ctx, conn, room.Rehearsal(e.RehearsalID))

	case events.TypeLeaveBand:
		var e events.JoinBandEvent
		if err := decodeRoomEvent(msg, &e); err != nil {
			h.realtime.ReplyError(ctx, conn, msg.Type, "invalid bandId")
			return err
		}
		return h.realtime.HandleLeave(ctx, conn, room.Band(e.BandID))

	case events.TypeLeaveRehearsal:
		var e events.JoinRehearsalEvent
		if err := decodeRoomEvent(msg, &e); err != nil {
			h.realtime.ReplyError(ctx, conn, msg.Type, "invalid rehearsalId")
			return err
		}
		return h.realtime.HandleLeave(ctx, conn, room.Rehearsal(e.RehearsalID))

	case events.TypePing:
		h.realtime.HandlePing(ctx, conn)
		return nil
	}

	evt, ok, err := events.DecodeRoutable(msg)
	if !ok {
		h.realtime.ReplyError(ctx, conn, msg.Type, "unknown message type")
		return nil
	}
	if err != nil {
		h.realtime.ReplyError(ctx, conn, msg.Type, "invalid event data")
		return err
	}

	return h.realtime.HandleEvent(ctx, conn, evt)
}

// decodeRoomEvent: пустые data дают пустой id, его отклонит реестр комнат
func decodeRoomEvent(msg events.Message, target any) error {
	if len(msg.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(msg.Data, target); err != nil {
		return fmt.Errorf("unmarshal %s: %w", msg.Type, err)
	}

	return nil
}

func (h *WebSocketHandler) handleWebsocketError(ctx context.Context, conn *domain.Connection, err error) {
	attrs := []any{
		slog.String(constant.ConnectionID, conn.ID.String()),
		slog.String(constant.UserID, conn.Identity.UserID),
	}

	var closeErr *websocket.CloseError
	switch {
	case err == nil || conn.IsClosed():
		slog.DebugContext(ctx, "websocket closed by server", attrs...)
	case errors.As(err, &closeErr):
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			slog.InfoContext(ctx, "user disconnected from websocket", attrs...)
		default:
			slog.WarnContext(ctx, "websocket close error", append(attrs, slog.Int("code", closeErr.Code))...)
		}
	default:
		slog.WarnContext(ctx, "websocket read", append(attrs, slog.Any(constant.Error, err))...)
	}
}

// checkOrigin пропускает всё в DEBUG, иначе только Origin с хостом DOMAIN.
// Клиенты без Origin (не браузеры) пропускаются.
func checkOrigin(debug bool, domainName string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if debug {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" || origin == domainName {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		return u.Host == domainName || u.Hostname() == domainName
	}
}
