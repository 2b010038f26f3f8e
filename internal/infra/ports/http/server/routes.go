package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/qrave1/RehearsalHub/internal/infra/ports/http/handlers"
	"github.com/qrave1/RehearsalHub/internal/infra/ports/http/middleware"
)

func New(
	verifier middleware.TokenVerifier,
	wsHandler *handlers.WebSocketHandler,
	realtimeHandler *handlers.RealtimeHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	// токен для сокета проверяет сам обработчик, до апгрейда
	e.GET("/ws", wsHandler.Handle)

	api := e.Group("/api")
	{
		api.GET("/v1/ws", wsHandler.Handle)

		v1 := api.Group("/v1")
		v1.Use(middleware.JWTAuthMiddleware(verifier))
		{
			v1.GET("/me", realtimeHandler.GetMe)

			v1.POST("/events", realtimeHandler.PublishEvent)

			v1.GET("/users/online", realtimeHandler.GetOnlineUsers)
			v1.GET("/rooms/:kind/:id", realtimeHandler.GetRoom)
		}
	}

	return e
}
