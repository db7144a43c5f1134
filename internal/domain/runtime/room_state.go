package runtime

import (
	"sort"

	"github.com/google/uuid"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
)

// RoomState - живое состояние одной комнаты: состав и слот транслятора.
// Не потокобезопасно: доступ только из обработчика комнаты.
type RoomState struct {
	ID string

	sessions    map[uuid.UUID]*Session
	byConn      map[string]uuid.UUID
	broadcaster *BroadcasterSlot
}

func NewRoomState(id string) *RoomState {
	return &RoomState{
		ID:       id,
		sessions: make(map[uuid.UUID]*Session),
		byConn:   make(map[string]uuid.UUID),
	}
}

func (r *RoomState) Len() int {
	return len(r.sessions)
}

func (r *RoomState) Empty() bool {
	return len(r.sessions) == 0 && r.broadcaster == nil
}

func (r *RoomState) Get(userID uuid.UUID) (Session, bool) {
	s, ok := r.sessions[userID]
	if !ok {
		return Session{}, false
	}

	return *s, true
}

func (r *RoomState) ByConn(connID string) (Session, bool) {
	userID, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}

	return r.Get(userID)
}

// Put добавляет или заменяет запись пользователя.
// Возвращает вытесненную запись другого соединения того же пользователя.
func (r *RoomState) Put(s Session) (Session, bool) {
	s.RoomID = r.ID

	prev, had := r.sessions[s.UserID]
	if had {
		delete(r.byConn, prev.ConnID)
	}

	r.sessions[s.UserID] = &s
	r.byConn[s.ConnID] = s.UserID

	if had && prev.ConnID != s.ConnID {
		return *prev, true
	}

	return Session{}, false
}

// RemoveConn удаляет запись, только если она принадлежит этому соединению
func (r *RoomState) RemoveConn(connID string) (Session, bool) {
	userID, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}

	s := r.sessions[userID]
	delete(r.byConn, connID)
	delete(r.sessions, userID)

	return *s, true
}

func (r *RoomState) SetRole(userID uuid.UUID, role models.Role) bool {
	s, ok := r.sessions[userID]
	if !ok {
		return false
	}

	s.Role = role

	return true
}

// Sessions возвращает состав в порядке входа
func (r *RoomState) Sessions() []Session {
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnID < out[j].ConnID
		}

		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})

	return out
}

func (r *RoomState) Users() []events.UserView {
	sessions := r.Sessions()

	views := make([]events.UserView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.View())
	}

	return views
}

func (r *RoomState) Broadcaster() (BroadcasterSlot, bool) {
	if r.broadcaster == nil {
		return BroadcasterSlot{}, false
	}

	return *r.broadcaster, true
}

func (r *RoomState) SetBroadcaster(slot BroadcasterSlot) {
	r.broadcaster = &slot
}

// ClearBroadcaster освобождает слот, если его держит connID
func (r *RoomState) ClearBroadcaster(connID string) (BroadcasterSlot, bool) {
	if r.broadcaster == nil || r.broadcaster.ConnID != connID {
		return BroadcasterSlot{}, false
	}

	slot := *r.broadcaster
	r.broadcaster = nil

	return slot, true
}
