package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/application/metric"
)

const unmatchedRoute = "unmatched"

// PrometheusMiddleware создает middleware для сбора метрик HTTP запросов.
// WebSocket-сессии живут часами, их учитывает ws_active_connections, а не гистограмма.
func PrometheusMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isUpgrade(c.Request()) {
				return next(c)
			}

			start := time.Now()

			err := next(c)

			// шаблон маршрута, а не URI
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = unmatchedRoute
			}

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				switch {
				case errors.As(err, &he):
					status = he.Code
				case status < http.StatusBadRequest:
					status = http.StatusInternalServerError
				}
			}

			metric.RecordHTTPMetrics(c.Request().Method, endpoint, status, time.Since(start))

			return err
		}
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(echo.HeaderUpgrade), "websocket")
}
