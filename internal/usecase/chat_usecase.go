package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/application/metric"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
)

type ChatUsecase interface {
	SendMessage(ctx context.Context, conn runtime.Conn, roomID, text string) (*models.Message, error)
}

type chatUsecase struct {
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	membership  MembershipUsecase
	presence    PresenceUsecase
}

func NewChatUsecase(
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	membership MembershipUsecase,
	presence PresenceUsecase,
) ChatUsecase {
	return &chatUsecase{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		membership:  membership,
		presence:    presence,
	}
}

// SendMessage сохраняет сообщение и рассылает его всем участникам, включая автора.
// Сохранение и рассылка идут в очереди комнаты, поэтому история и живая лента совпадают по порядку.
func (uc *chatUsecase) SendMessage(ctx context.Context, conn runtime.Conn, roomID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message is empty: %w", errs.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return nil, fmt.Errorf("message longer than %d characters: %w", models.MaxMessageLength, errs.ErrInvalidInput)
	}

	var msg *models.Message

	err := uc.membership.WithSession(ctx, conn, roomID, func(st *runtime.RoomState, s runtime.Session) error {
		customization, err := uc.roomRepo.GetCustomization(ctx, st.ID)
		if err != nil {
			return fmt.Errorf("get customization: %w", err)
		}

		if !customization.EnableChat {
			return fmt.Errorf("chat is disabled: %w", errs.ErrFeatureDisabled)
		}

		msg = &models.Message{
			RoomID:    st.ID,
			UserID:    s.UserID,
			UserName:  s.UserName,
			Body:      text,
			CreatedAt: time.Now().UTC(),
		}

		if err = uc.messageRepo.AppendMessage(ctx, msg); err != nil {
			return fmt.Errorf("append message: %w", err)
		}

		uc.presence.NotifyRoom(st, events.New(events.TypeReceiveMessage, msg), "")

		return nil
	})
	if err != nil {
		return nil, err
	}

	metric.RecordChatMessage()

	slog.Debug(
		"chat message",
		slog.String(constant.RoomID, msg.RoomID),
		slog.Any(constant.UserID, msg.UserID),
	)

	return msg, nil
}
