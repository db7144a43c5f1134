package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/application/config"
	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/memory"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/appctx"
	"github.com/Mihika-Tech/LiveCollab/internal/usecase"
)

const (
	// Дедлайн чтения, продлевается каждым pong
	readWait = 60 * time.Second

	maxMessageSize = 64 * 1024
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	membershipUsecase usecase.MembershipUsecase
	broadcastUsecase  usecase.BroadcastUsecase
	chatUsecase       usecase.ChatUsecase

	connRepo memory.WebsocketConnectionRepository
}

func NewWebSocketHandler(
	cfg *config.Config,
	membershipUsecase usecase.MembershipUsecase,
	broadcastUsecase usecase.BroadcastUsecase,
	chatUsecase usecase.ChatUsecase,
	connRepo memory.WebsocketConnectionRepository,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		membershipUsecase: membershipUsecase,
		broadcastUsecase:  broadcastUsecase,
		chatUsecase:       chatUsecase,
		connRepo:          connRepo,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return unauthorized(c)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return nil
	}

	conn := runtime.Conn{ID: uuid.NewString(), User: identity}
	ctx := c.Request().Context()

	log := slog.With(
		slog.String(constant.ConnID, conn.ID),
		slog.String(constant.UserID, identity.ID.String()),
	)

	// соединение закрывает пишущая горутина репозитория
	h.connRepo.Add(conn.ID, ws)

	defer func() {
		// выход из комнаты должен завершиться даже после отмены запроса
		if err := h.membershipUsecase.Leave(context.WithoutCancel(ctx), conn); err != nil {
			log.Error("leave on disconnect", slog.Any(constant.Error, err))
		}

		h.connRepo.Remove(conn.ID)
	}()

	ws.SetReadLimit(maxMessageSize)

	if err = ws.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		return nil
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readWait))
	})

	log.Debug("websocket connected")

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("webSocket read error", slog.Any(constant.Error, err))
			}

			return nil
		}

		msg := new(events.Message)

		if err = json.Unmarshal(data, msg); err != nil {
			h.replyError(conn, fmt.Errorf("%w: malformed event", errs.ErrInvalidInput))
			continue
		}

		if err = h.handleMessage(ctx, conn, msg); err != nil {
			if !errs.IsDomain(err) {
				log.Error(
					"handle message",
					slog.String(constant.EventType, msg.Type),
					slog.Any(constant.Error, err),
				)
			}

			h.replyError(conn, err)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn runtime.Conn, msg *events.Message) error {
	switch msg.Type {
	case events.TypeJoinRoom:
		var ev events.JoinRoomEvent
		if err := decodeData(msg, &ev); err != nil {
			return err
		}

		// roomJoined и история уходят из usecase
		_, err := h.membershipUsecase.Join(ctx, conn, ev.RoomID, ev.Password)
		return err

	case events.TypeLeaveRoom:
		var ev events.RoomEvent
		if err := decodeData(msg, &ev); err != nil {
			return err
		}

		if ev.RoomID == "" {
			return h.membershipUsecase.Leave(ctx, conn)
		}

		return h.membershipUsecase.LeaveRoom(ctx, conn, ev.RoomID)

	case events.TypeSendMessage:
		var ev events.SendMessageEvent
		if err := decodeData(msg, &ev); err != nil {
			return err
		}

		_, err := h.chatUsecase.SendMessage(ctx, conn, ev.RoomID, ev.Body())
		return err

	case events.TypeStartBroadcast:
		var ev events.StartBroadcastEvent
		if err := decodeData(msg, &ev); err != nil {
			return err
		}

		kind, err := models.ParseMediaKind(ev.Kind)
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrInvalidInput, err)
		}

		return h.broadcastUsecase.StartBroadcast(ctx, conn, ev.RoomID, kind)

	case events.TypeStopBroadcast:
		var ev events.RoomEvent
		if err := decodeData(msg, &ev); err != nil {
			return err
		}

		return h.broadcastUsecase.StopBroadcast(ctx, conn, ev.RoomID)

	case events.TypeRequestOffer:
		var ev events.RequestOfferEvent
		if err := decodeData(msg, &ev); err != nil {
			return err
		}

		return h.broadcastUsecase.RequestOffer(ctx, conn, ev.Target)

	case events.TypeSendOffer, events.TypeOffer:
		var ev events.OfferEvent
		if err := decodeData(msg, &ev); err != nil {
			return err
		}

		return h.broadcastUsecase.SendOffer(ctx, conn, ev.Target, ev.Offer)

	case events.TypeSendAnswer, events.TypeAnswer:
		var ev events.AnswerEvent
		if err := decodeData(msg, &ev); err != nil {
			return err
		}

		return h.broadcastUsecase.SendAnswer(ctx, conn, ev.Target, ev.Answer)

	case events.TypeIceCandidate, events.TypeCandidate:
		var ev events.IceCandidateEvent
		if err := decodeData(msg, &ev); err != nil {
			return err
		}

		return h.broadcastUsecase.SendCandidate(ctx, conn, ev.Target, ev.Candidate)

	case events.TypePing:
		h.connRepo.Send(conn.ID, events.New(events.TypePong, nil))
		return nil

	default:
		return fmt.Errorf("%w: unknown message type %q", errs.ErrInvalidInput, msg.Type)
	}
}

func (h *WebSocketHandler) replyError(conn runtime.Conn, err error) {
	ev := events.ErrorEvent{Message: err.Error(), Code: errs.Code(err)}
	if !errs.IsDomain(err) {
		ev.Message = "internal error"
	}

	h.connRepo.Send(conn.ID, events.New(events.TypeError, ev))
}

func decodeData(msg *events.Message, v any) error {
	// пустые данные допустимы, обязательные поля проверяет usecase
	if len(msg.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrInvalidInput, msg.Type, err)
	}

	return nil
}
