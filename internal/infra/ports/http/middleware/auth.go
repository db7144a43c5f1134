package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/appctx"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/dto"
	"github.com/Mihika-Tech/LiveCollab/internal/usecase"
)

const (
	CookieName = "jwt"

	bearerPrefix = "Bearer "
)

// AuthMiddleware проверяет токен до любого обработчика комнаты.
// Токен берется из заголовка Authorization, затем из query-параметра token
// (браузерный WebSocket не умеет задавать заголовки), затем из cookie.
func AuthMiddleware(credentials usecase.CredentialUsecase) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := credentials.Verify(c.Request().Context(), tokenFromRequest(c))
			if err != nil {
				slog.Debug("authentication failed", slog.Any(constant.Error, err))

				return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "authentication required", Code: "Unauthenticated"})
			}

			c.SetRequest(
				c.Request().WithContext(
					appctx.WithIdentity(c.Request().Context(), identity),
				),
			)

			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}

	if token := c.QueryParam("token"); token != "" {
		return token
	}

	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// BuildCookieDomain возвращает значение для cookie.Domain или пустую строку, если Domain не нужно задавать.
//
// host может быть взят из cfg.Domain или r.Host (request.Host).
func BuildCookieDomain(host string) string {
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")

	// Убираем порт если передан: example.com:8080 -> example.com
	if i := strings.Index(host, ":"); i != -1 {
		host = host[:i]
	}
	host = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(host, "/")))
	if host == "" || host == "localhost" {
		return ""
	}

	// для IP (127.0.0.1, 192.168.x.x) не указываем Domain
	if ip := net.ParseIP(host); ip != nil {
		return ""
	}

	// api.example.com -> .example.com
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return "." + strings.Join(parts[len(parts)-2:], ".")
	}

	return ""
}
