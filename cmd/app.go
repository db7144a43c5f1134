package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Mihika-Tech/LiveCollab/internal/application/config"
	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/application/metric"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/memory"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/roomfile"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/handlers"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/server"
	"github.com/Mihika-Tech/LiveCollab/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

// container - собранные зависимости процесса
type container struct {
	cfg *config.Config
	db  *sqlx.DB

	rooms      memory.RoomRuntimeRepository
	wsConnRepo memory.WebsocketConnectionRepository

	userUsecase       usecase.UserUsecase
	credentialUsecase usecase.CredentialUsecase
	membershipUsecase usecase.MembershipUsecase
	broadcastUsecase  usecase.BroadcastUsecase
	chatUsecase       usecase.ChatUsecase
	roomUsecase       usecase.RoomUsecase
}

func newContainer(ctx context.Context, cfg *config.Config) (*container, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err = runMigrations(ctx, cfg.Database.Driver, db, "up"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	userRepo := repository.NewUserRepo(db)
	roomRepo := repository.NewRoomRepo(db)
	messageRepo := repository.NewMessageRepo(db)

	rooms := memory.NewRoomRuntimeRepository(cfg.Room.IdleTimeout)
	wsConnRepo := memory.NewWSConnectionRepository(cfg.Room.SendBuffer)

	presenceUsecase := usecase.NewPresenceUsecase(wsConnRepo)
	permissionUsecase := usecase.NewPermissionUsecase(roomRepo, rooms)
	membershipUsecase := usecase.NewMembershipUsecase(
		cfg.Room.HistoryLimit,
		cfg.Room.DefaultMaxParticipants,
		roomRepo,
		messageRepo,
		rooms,
		permissionUsecase,
		presenceUsecase,
	)

	return &container{
		cfg:               cfg,
		db:                db,
		rooms:             rooms,
		wsConnRepo:        wsConnRepo,
		userUsecase:       usecase.NewUserUsecase([]byte(cfg.JWTSecret), cfg.JWTTTL, userRepo),
		credentialUsecase: usecase.NewCredentialUsecase([]byte(cfg.JWTSecret), userRepo),
		membershipUsecase: membershipUsecase,
		broadcastUsecase:  usecase.NewBroadcastUsecase(roomRepo, membershipUsecase, permissionUsecase, presenceUsecase),
		chatUsecase:       usecase.NewChatUsecase(roomRepo, messageRepo, membershipUsecase, presenceUsecase),
		roomUsecase: usecase.NewRoomUsecase(
			cfg.Room.DefaultMaxParticipants,
			roomRepo,
			messageRepo,
			userRepo,
			rooms,
			membershipUsecase,
			permissionUsecase,
			presenceUsecase,
		),
	}, nil
}

func (c *container) Close() {
	c.rooms.Close()

	if err := c.db.Close(); err != nil {
		slog.Error("close database", slog.Any(constant.Error, err))
	}
}

func (c *container) httpServer() *echo.Echo {
	return server.New(
		c.credentialUsecase,
		handlers.NewAuthHandler(c.cfg, c.userUsecase),
		handlers.NewRoomHandler(c.roomUsecase, c.membershipUsecase),
		handlers.NewIceHandler(c.cfg),
		handlers.NewWebSocketHandler(c.cfg, c.membershipUsecase, c.broadcastUsecase, c.chatUsecase, c.wsConnRepo),
	)
}

// loadConfig читает конфиг и настраивает логгер
func loadConfig() *config.Config {
	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: cfg.Level()},
			),
		),
	)

	return cfg
}

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig()

	slog.Info(
		"Running app",
		slog.Bool("debug", cfg.Debug),
		slog.String(constant.Driver, cfg.Database.Driver),
	)

	app, err := newContainer(ctx, cfg)
	if err != nil {
		slog.Error("init app", slog.Any(constant.Error, err))
		os.Exit(1)
	}
	defer app.Close()

	if cfg.Room.SeedFile != "" {
		if err = seedRooms(ctx, app.roomUsecase, cfg.Room.SeedFile); err != nil {
			slog.Error("seed rooms", slog.Any(constant.Error, err))
			os.Exit(1)
		}
	}

	echoSrv := app.httpServer()
	metricsSrv := metric.NewServer(app.db)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server started", slog.String(constant.Addr, ":"+cfg.Port))

		if err := echoSrv.Start(":" + cfg.Port); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		if err := metricsSrv.Start(":" + cfg.MetricPort); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metric server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		slog.Info("Shutting down servers")

		// Graceful shutdown
		timeoutCtx, timeoutCancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer timeoutCancel()

		if err := echoSrv.Shutdown(timeoutCtx); err != nil {
			slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
		}

		if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
			slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
		}

		return nil
	})

	if err = g.Wait(); err != nil {
		slog.Error("server failed", slog.Any(constant.Error, err))
		app.Close()
		os.Exit(1)
	}
}

func seedRooms(ctx context.Context, rooms usecase.RoomUsecase, path string) error {
	defs, err := roomfile.Load(path)
	if err != nil {
		return err
	}

	created, err := rooms.ImportRooms(ctx, defs)
	if err != nil {
		return err
	}

	slog.Info("rooms seeded", slog.String("file", path), slog.Int("created", created), slog.Int("total", len(defs)))

	return nil
}
