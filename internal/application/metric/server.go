package metric

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStats - живые счётчики для /health
type HealthStats interface {
	Count() int
	RoomCount() int
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

// NewServer создает сервер метрик. /health отвечает 200, пока процесс жив.
func NewServer(stats HealthStats) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{
			Status:      "ok",
			Connections: stats.Count(),
			Rooms:       stats.RoomCount(),
		})
	})

	return e
}
