package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/application/config"
	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/appctx"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/dto"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/middleware"
	"github.com/Mihika-Tech/LiveCollab/internal/usecase"
)

type AuthHandler struct {
	cfg *config.Config

	userUsecase usecase.UserUsecase
}

func NewAuthHandler(cfg *config.Config, userUsecase usecase.UserUsecase) *AuthHandler {
	return &AuthHandler{
		cfg:         cfg,
		userUsecase: userUsecase,
	}
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req dto.SignupRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	user, err := h.userUsecase.CreateUser(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	token, err := h.userUsecase.GenerateJWT(user)
	if err != nil {
		return errorResponse(c, err)
	}

	slog.Info("user signed up", slog.Any(constant.UserID, user.ID))

	h.setCookie(c, token)

	return c.JSON(http.StatusCreated, dto.AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	user, err := h.userUsecase.ValidateCredentials(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			slog.Warn("invalid credentials", slog.String("email", req.Email))

			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid credentials", Code: "Unauthenticated"})
		}

		return errorResponse(c, err)
	}

	token, err := h.userUsecase.GenerateJWT(user)
	if err != nil {
		return errorResponse(c, err)
	}

	h.setCookie(c, token)

	return c.JSON(http.StatusOK, dto.AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) GetMe(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return unauthorized(c)
	}

	return c.JSON(http.StatusOK, dto.GetMeResponse{User: identity})
}

func (h *AuthHandler) setCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Expires:  time.Now().Add(h.userUsecase.TokenTTL()),
		Domain:   middleware.BuildCookieDomain(h.cfg.Domain),
		Path:     "/",
		Secure:   strings.HasPrefix(h.cfg.Domain, "https://"),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
