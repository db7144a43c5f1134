package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/input"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/memory"
)

// recorder запоминает все доставленные события по соединениям
type recorder struct {
	mu     sync.Mutex
	sent   map[string][]events.Outbound
	closed map[string]bool
}

func newRecorder() *recorder {
	return &recorder{
		sent:   make(map[string][]events.Outbound),
		closed: make(map[string]bool),
	}
}

func (r *recorder) Send(connID string, ev events.Outbound) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed[connID] {
		return false
	}

	r.sent[connID] = append(r.sent[connID], ev)
	return true
}

func (r *recorder) Close(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed[connID] = true
}

func (r *recorder) events(connID string) []events.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Outbound, len(r.sent[connID]))
	copy(out, r.sent[connID])

	return out
}

func (r *recorder) types(connID string) []string {
	var types []string
	for _, ev := range r.events(connID) {
		types = append(types, ev.Type)
	}

	return types
}

func (r *recorder) count(connID, typ string) int {
	n := 0
	for _, ev := range r.events(connID) {
		if ev.Type == typ {
			n++
		}
	}

	return n
}

func (r *recorder) last(t *testing.T, connID, typ string) events.Outbound {
	t.Helper()

	evs := r.events(connID)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == typ {
			return evs[i]
		}
	}

	t.Fatalf("no %s event for %s, got %v", typ, connID, r.types(connID))
	return events.Outbound{}
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = make(map[string][]events.Outbound)
}

func (r *recorder) isClosed(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed[connID]
}

// env собирает usecase-слой поверх хранилищ в памяти
type env struct {
	rooms    *memory.RoomStore
	messages *memory.MessageStore
	users    *memory.UserStore
	notifier *recorder

	membership  MembershipUsecase
	broadcast   BroadcastUsecase
	chat        ChatUsecase
	room        RoomUsecase
	permissions PermissionUsecase
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		rooms:    memory.NewRoomStore(),
		messages: memory.NewMessageStore(),
		users:    memory.NewUserStore(),
		notifier: newRecorder(),
	}

	rt := memory.NewRoomRuntimeRepository(time.Minute)
	t.Cleanup(rt.Close)

	presence := NewPresenceUsecase(e.notifier)
	e.permissions = NewPermissionUsecase(e.rooms, rt)
	e.membership = NewMembershipUsecase(50, 100, e.rooms, e.messages, rt, e.permissions, presence)
	e.broadcast = NewBroadcastUsecase(e.rooms, e.membership, e.permissions, presence)
	e.chat = NewChatUsecase(e.rooms, e.messages, e.membership, presence)
	e.room = NewRoomUsecase(100, e.rooms, e.messages, e.users, rt, e.membership, e.permissions, presence)

	return e
}

func newConn(name string) runtime.Conn {
	return runtime.Conn{
		ID:   uuid.NewString(),
		User: models.Identity{ID: uuid.New(), Name: name, Email: name + "@example.com"},
	}
}

// otherConn - второе соединение того же пользователя
func otherConn(c runtime.Conn) runtime.Conn {
	return runtime.Conn{ID: uuid.NewString(), User: c.User}
}

func (e *env) mustJoin(t *testing.T, conn runtime.Conn, roomID, password string) *JoinResult {
	t.Helper()

	res, err := e.membership.Join(context.Background(), conn, roomID, password)
	if err != nil {
		t.Fatalf("join %s as %s: %v", roomID, conn.User.Name, err)
	}

	return res
}

func (e *env) createRoom(t *testing.T, id string, capacity int, password string, owner *uuid.UUID) {
	t.Helper()

	_, err := e.room.CreateRoom(context.Background(), &input.CreateRoomInput{
		ID:              id,
		MaxParticipants: capacity,
		IsPrivate:       password != "",
		Password:        password,
		OwnerID:         owner,
	})
	if err != nil {
		t.Fatalf("create room %s: %v", id, err)
	}
}

// decode переводит payload события в конкретный тип через JSON, как это увидит клиент
func decode[T any](t *testing.T, ev events.Outbound) T {
	t.Helper()

	raw, err := json.Marshal(ev.Data)
	if err != nil {
		t.Fatalf("marshal %s: %v", ev.Type, err)
	}

	var out T
	if err = json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", ev.Type, err)
	}

	return out
}
