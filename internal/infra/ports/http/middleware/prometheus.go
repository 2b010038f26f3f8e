package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RehearsalHub/internal/application/metric"
)

// PrometheusMiddleware собирает метрики HTTP запросов
func PrometheusMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// ошибку в статус превращает HTTPErrorHandler уже после middleware
			status := c.Response().Status
			var httpErr *echo.HTTPError
			switch {
			case err != nil && errors.As(err, &httpErr):
				status = httpErr.Code
			case err != nil && status < http.StatusBadRequest:
				status = http.StatusInternalServerError
			case status == 0:
				status = http.StatusOK
			}

			// c.Path() - шаблон маршрута, а не конкретный URI
			metric.RecordHTTPMetrics(c.Request().Method, c.Path(), status, time.Since(start))

			return err
		}
	}
}
