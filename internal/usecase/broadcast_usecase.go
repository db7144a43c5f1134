package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/application/metric"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
)

// BroadcastUsecase ведет слот транслятора комнаты и пересылает сигнальные
// сообщения WebRTC между соединениями одной комнаты. Медиа через сервер не идет.
type BroadcastUsecase interface {
	StartBroadcast(ctx context.Context, conn runtime.Conn, roomID string, kind models.MediaKind) error
	StopBroadcast(ctx context.Context, conn runtime.Conn, roomID string) error

	RequestOffer(ctx context.Context, conn runtime.Conn, target string) error
	SendOffer(ctx context.Context, conn runtime.Conn, target string, offer webrtc.SessionDescription) error
	SendAnswer(ctx context.Context, conn runtime.Conn, target string, answer webrtc.SessionDescription) error
	SendCandidate(ctx context.Context, conn runtime.Conn, target string, candidate webrtc.ICECandidateInit) error
}

type broadcastUsecase struct {
	roomRepo    repository.RoomRepository
	membership  MembershipUsecase
	permissions PermissionUsecase
	presence    PresenceUsecase
}

func NewBroadcastUsecase(
	roomRepo repository.RoomRepository,
	membership MembershipUsecase,
	permissions PermissionUsecase,
	presence PresenceUsecase,
) BroadcastUsecase {
	return &broadcastUsecase{
		roomRepo:    roomRepo,
		membership:  membership,
		permissions: permissions,
		presence:    presence,
	}
}

func (uc *broadcastUsecase) StartBroadcast(
	ctx context.Context,
	conn runtime.Conn,
	roomID string,
	kind models.MediaKind,
) error {
	return uc.membership.WithSession(ctx, conn, roomID, func(st *runtime.RoomState, s runtime.Session) error {
		allowed, err := uc.permissions.AuthorizeIn(ctx, st, s.UserID, models.ActionBroadcast)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%s cannot broadcast: %w", s.Role, errs.ErrForbidden)
		}

		customization, err := uc.roomRepo.GetCustomization(ctx, st.ID)
		if err != nil {
			return fmt.Errorf("get customization: %w", err)
		}

		if !customization.EnableVideo {
			return fmt.Errorf("video is disabled: %w", errs.ErrFeatureDisabled)
		}
		if kind == models.MediaScreen && !customization.EnableScreenShare {
			return fmt.Errorf("screen share is disabled: %w", errs.ErrFeatureDisabled)
		}

		current, active := st.Broadcaster()
		if active && current.ConnID != s.ConnID {
			return errs.ErrBroadcastActive
		}

		slot := runtime.BroadcasterSlot{
			UserID:   s.UserID,
			UserName: s.UserName,
			ConnID:   s.ConnID,
			Kind:     kind,
			Since:    time.Now().UTC(),
		}
		if active {
			// повторный старт тем же соединением только переобъявляет трансляцию
			slot.Since = current.Since
		} else {
			metric.IncrementBroadcasts()
		}

		st.SetBroadcaster(slot)

		uc.presence.NotifyRoom(st, events.New(events.TypeBroadcastStarted, events.BroadcastStartedEvent{
			BroadcasterID:     slot.UserID,
			BroadcasterName:   slot.UserName,
			BroadcasterConnID: slot.ConnID,
			Kind:              slot.Kind,
		}), s.ConnID)

		slog.Info(
			"broadcast started",
			slog.String(constant.RoomID, st.ID),
			slog.Any(constant.UserID, s.UserID),
			slog.String(constant.ConnID, s.ConnID),
		)

		return nil
	})
}

// StopBroadcast ничего не делает, если слот держит не это соединение
func (uc *broadcastUsecase) StopBroadcast(ctx context.Context, conn runtime.Conn, roomID string) error {
	err := uc.membership.WithSession(ctx, conn, roomID, func(st *runtime.RoomState, s runtime.Session) error {
		slot, ok := st.ClearBroadcaster(s.ConnID)
		if !ok {
			return nil
		}

		uc.presence.AnnounceBroadcastStopped(st, slot)

		slog.Info(
			"broadcast stopped",
			slog.String(constant.RoomID, st.ID),
			slog.Any(constant.UserID, s.UserID),
			slog.String(constant.ConnID, s.ConnID),
		)

		return nil
	})
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}

	return err
}

func (uc *broadcastUsecase) RequestOffer(ctx context.Context, conn runtime.Conn, target string) error {
	return uc.relay(ctx, conn, target, "request-offer", func(s runtime.Session) events.Outbound {
		return events.New(events.TypeRequestOffer, events.RequestOfferRelay{
			Requester:     s.ConnID,
			RequesterName: s.UserName,
		})
	})
}

func (uc *broadcastUsecase) SendOffer(
	ctx context.Context,
	conn runtime.Conn,
	target string,
	offer webrtc.SessionDescription,
) error {
	return uc.relay(ctx, conn, target, "offer", func(s runtime.Session) events.Outbound {
		return events.New(events.TypeReceiveOffer, events.OfferRelay{
			Offer:      offer,
			Sender:     s.ConnID,
			SenderName: s.UserName,
		})
	})
}

func (uc *broadcastUsecase) SendAnswer(
	ctx context.Context,
	conn runtime.Conn,
	target string,
	answer webrtc.SessionDescription,
) error {
	return uc.relay(ctx, conn, target, "answer", func(s runtime.Session) events.Outbound {
		return events.New(events.TypeReceiveAnswer, events.AnswerRelay{
			Answer:     answer,
			Sender:     s.ConnID,
			SenderName: s.UserName,
		})
	})
}

func (uc *broadcastUsecase) SendCandidate(
	ctx context.Context,
	conn runtime.Conn,
	target string,
	candidate webrtc.ICECandidateInit,
) error {
	return uc.relay(ctx, conn, target, "candidate", func(s runtime.Session) events.Outbound {
		return events.New(events.TypeCandidate, events.CandidateRelay{
			Candidate: candidate,
			Sender:    s.ConnID,
		})
	})
}

// relay доставляет сигнальное сообщение участнику той же комнаты.
// Отсутствующая цель молча пропускается: клиент мог уже уйти.
func (uc *broadcastUsecase) relay(
	ctx context.Context,
	conn runtime.Conn,
	target string,
	kind string,
	build func(sender runtime.Session) events.Outbound,
) error {
	if target == "" {
		return fmt.Errorf("target is required: %w", errs.ErrInvalidInput)
	}

	return uc.membership.WithSession(ctx, conn, "", func(st *runtime.RoomState, s runtime.Session) error {
		if _, ok := st.ByConn(target); !ok || target == s.ConnID {
			metric.RecordSignaling(kind, false)
			slog.Debug(
				"signaling target not in room",
				slog.String(constant.RoomID, st.ID),
				slog.String(constant.ConnID, s.ConnID),
				slog.String(constant.TargetID, target),
				slog.String(constant.EventType, kind),
			)
			return nil
		}

		delivered := uc.presence.NotifyConnection(target, build(s))
		metric.RecordSignaling(kind, delivered)

		return nil
	})
}
