package usecase

import (
	"fmt"
	"log/slog"

	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/application/metric"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
)

// Notifier доставляет события в очередь отправки конкретного соединения
type Notifier interface {
	Send(connID string, ev events.Outbound) bool
	Close(connID string)
}

// PresenceUsecase рассылает события участникам комнаты. Вызывается только
// из очереди комнаты, поэтому порядок событий для всех участников совпадает
// с порядком изменений состава.
type PresenceUsecase interface {
	NotifyConnection(connID string, ev events.Outbound) bool
	NotifyRoom(st *runtime.RoomState, ev events.Outbound, exceptConnID string)
	Disconnect(connID string)

	AnnounceJoin(st *runtime.RoomState, s runtime.Session)
	AnnounceLeave(st *runtime.RoomState, s runtime.Session)
	AnnounceBroadcastStopped(st *runtime.RoomState, slot runtime.BroadcasterSlot)
}

type presenceUsecase struct {
	notifier Notifier
}

func NewPresenceUsecase(notifier Notifier) PresenceUsecase {
	return &presenceUsecase{notifier: notifier}
}

func (uc *presenceUsecase) NotifyConnection(connID string, ev events.Outbound) bool {
	if !uc.notifier.Send(connID, ev) {
		slog.Debug(
			"event not delivered",
			slog.String(constant.ConnID, connID),
			slog.String(constant.EventType, ev.Type),
		)
		return false
	}

	return true
}

func (uc *presenceUsecase) NotifyRoom(st *runtime.RoomState, ev events.Outbound, exceptConnID string) {
	for _, s := range st.Sessions() {
		if s.ConnID == exceptConnID {
			continue
		}

		uc.NotifyConnection(s.ConnID, ev)
	}
}

func (uc *presenceUsecase) Disconnect(connID string) {
	uc.notifier.Close(connID)
}

func (uc *presenceUsecase) AnnounceJoin(st *runtime.RoomState, s runtime.Session) {
	uc.NotifyRoom(st, events.New(events.TypeUserJoined, events.PresenceEvent{
		Message:  fmt.Sprintf("%s joined the room", s.UserName),
		UserID:   s.UserID,
		UserName: s.UserName,
		Role:     s.Role,
		Users:    st.Users(),
	}), s.ConnID)
}

func (uc *presenceUsecase) AnnounceLeave(st *runtime.RoomState, s runtime.Session) {
	uc.NotifyRoom(st, events.New(events.TypeUserLeft, events.PresenceEvent{
		Message:  fmt.Sprintf("%s left the room", s.UserName),
		UserID:   s.UserID,
		UserName: s.UserName,
		Role:     s.Role,
		Users:    st.Users(),
	}), s.ConnID)
}

func (uc *presenceUsecase) AnnounceBroadcastStopped(st *runtime.RoomState, slot runtime.BroadcasterSlot) {
	metric.DecrementBroadcasts()

	uc.NotifyRoom(st, events.New(events.TypeBroadcastStopped, events.BroadcastStoppedEvent{
		BroadcasterID:   slot.UserID,
		BroadcasterName: slot.UserName,
		Message:         fmt.Sprintf("%s stopped broadcasting", slot.UserName),
	}), "")
}
