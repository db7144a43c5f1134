package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/dto"
)

var statusByCode = map[string]int{
	"Unauthenticated": http.StatusUnauthorized,
	"InvalidPassword": http.StatusForbidden,
	"RoomFull":        http.StatusConflict,
	"Forbidden":       http.StatusForbidden,
	"BroadcastActive": http.StatusConflict,
	"FeatureDisabled": http.StatusForbidden,
	"NotFound":        http.StatusNotFound,
	"AlreadyExists":   http.StatusConflict,
	"InvalidInput":    http.StatusBadRequest,
}

// errorResponse переводит доменную ошибку в HTTP-ответ.
// Внутренние ошибки логируются, клиенту уходит только общий текст.
func errorResponse(c echo.Context, err error) error {
	code := errs.Code(err)

	status, ok := statusByCode[code]
	if !ok {
		slog.Error(
			"request failed",
			slog.String("uri", c.Request().RequestURI),
			slog.Any(constant.Error, err),
		)

		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error", Code: code})
	}

	return c.JSON(status, dto.ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg, Code: "InvalidInput"})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid user in context", Code: "Unauthenticated"})
}
