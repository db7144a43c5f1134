package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/handlers"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/middleware"
	"github.com/Mihika-Tech/LiveCollab/internal/usecase"
)

func New(
	credentials usecase.CredentialUsecase,
	authHandler *handlers.AuthHandler,
	roomHandler *handlers.RoomHandler,
	iceHandler *handlers.IceHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())
	e.Use(echomw.Recover())

	api := e.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/login", authHandler.Login)
		}

		v1 := api.Group("/v1")
		v1.Use(middleware.AuthMiddleware(credentials))
		{
			v1.GET("/me", authHandler.GetMe)

			v1.GET("/ice", iceHandler.IceServers)

			v1.GET("/ws", wsHandler.Handle)

			rooms := v1.Group("/rooms")
			{
				rooms.POST("", roomHandler.CreateRoom)
				rooms.GET("/:roomId", roomHandler.GetRoom)
				rooms.GET("/:roomId/settings", roomHandler.GetSettings)
				rooms.PUT("/:roomId/security", roomHandler.UpdateSecurity)
				rooms.PUT("/:roomId/customization", roomHandler.UpdateCustomization)
				rooms.PUT("/:roomId/users/:userId/role", roomHandler.ChangeRole)
				rooms.DELETE("/:roomId/users/:userId", roomHandler.Kick)
			}
		}
	}

	return e
}
