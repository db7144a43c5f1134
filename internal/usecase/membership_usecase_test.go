package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
)

func rosterNames(users []events.UserView) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.UserName)
	}

	return names
}

func TestJoinCapacity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b, c := newConn("alice"), newConn("bob"), newConn("carol")
	e.createRoom(t, "r1", 2, "", &a.User.ID)

	res := e.mustJoin(t, a, "r1", "")
	if res.Role != models.RoleOwner {
		t.Fatalf("creator role: expected owner got %s", res.Role)
	}

	res = e.mustJoin(t, b, "r1", "")
	if res.Role != models.RoleMember {
		t.Fatalf("second role: expected member got %s", res.Role)
	}
	wantUsers := []events.UserView{
		{UserID: a.User.ID, UserName: "alice", Role: models.RoleOwner, ConnID: a.ID},
		{UserID: b.User.ID, UserName: "bob", Role: models.RoleMember, ConnID: b.ID},
	}
	if diff := cmp.Diff(wantUsers, res.Users, cmpopts.IgnoreFields(events.UserView{}, "JoinedAt")); diff != "" {
		t.Fatalf("roster mismatch (-want +got):\n%s", diff)
	}

	e.notifier.reset()

	_, err := e.membership.Join(ctx, c, "r1", "")
	if !errors.Is(err, errs.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	// отказ виден только самому клиенту
	if got := e.notifier.types(a.ID); len(got) != 0 {
		t.Fatalf("alice must not be notified about rejected join, got %v", got)
	}

	users, err := e.membership.CurrentRoster(ctx, "r1")
	if err != nil {
		t.Fatalf("CurrentRoster: %v", err)
	}
	if diff := cmp.Diff([]string{"alice", "bob"}, rosterNames(users)); diff != "" {
		t.Fatalf("roster changed after rejected join (-want +got):\n%s", diff)
	}

	// участник с ролью может перезайти даже в полную комнату
	e.mustJoin(t, otherConn(b), "r1", "")

	if err = e.membership.Leave(ctx, b); err != nil {
		t.Fatalf("Leave stale connection: %v", err)
	}
	users, _ = e.membership.CurrentRoster(ctx, "r1")
	if len(users) != 2 {
		t.Fatalf("leave of superseded connection must be a no-op, roster %v", rosterNames(users))
	}
}

func TestJoinCapacityConcurrent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const capacity, joiners = 5, 20

	e.createRoom(t, "busy", capacity, "", nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)

	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := e.membership.Join(ctx, newConn(fmt.Sprintf("user%d", i)), "busy", "")

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				ok++
			case errors.Is(err, errs.ErrRoomFull):
				full++
			default:
				t.Errorf("unexpected join error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if ok != capacity || full != joiners-capacity {
		t.Fatalf("expected %d joins and %d RoomFull, got %d and %d", capacity, joiners-capacity, ok, full)
	}

	users, _ := e.membership.CurrentRoster(ctx, "busy")
	if len(users) != capacity {
		t.Fatalf("roster size: expected %d got %d", capacity, len(users))
	}
}

func TestConcurrentFirstJoinCreatesRoomOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const joiners = 10

	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			if _, err := e.membership.Join(ctx, newConn(fmt.Sprintf("user%d", i)), "fresh", ""); err != nil {
				t.Errorf("join: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := e.rooms.Creates(); got != 1 {
		t.Fatalf("expected exactly one room created, got %d", got)
	}

	room, err := e.rooms.FindRoom(ctx, "fresh")
	if err != nil {
		t.Fatalf("FindRoom: %v", err)
	}
	if room.Name != "Room fresh" || room.MaxParticipants != 100 {
		t.Fatalf("unexpected auto room %+v", room)
	}

	owners := 0
	users, _ := e.membership.CurrentRoster(ctx, "fresh")
	for _, u := range users {
		if u.Role == models.RoleOwner {
			owners++
		}
	}
	if owners != 1 {
		t.Fatalf("expected the creating joiner to be the only owner, got %d owners", owners)
	}
}

func TestJoinPrivateRoom(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner, guest := newConn("owner"), newConn("guest")
	e.createRoom(t, "r2", 10, "secret1", &owner.User.ID)

	for _, password := range []string{"", "wrong"} {
		if _, err := e.membership.Join(ctx, guest, "r2", password); !errors.Is(err, errs.ErrInvalidPassword) {
			t.Fatalf("password %q: expected ErrInvalidPassword, got %v", password, err)
		}
	}

	if _, ok := e.membership.CurrentRoom(guest.ID); ok {
		t.Fatal("rejected connection must not be bound to the room")
	}

	if res := e.mustJoin(t, guest, "r2", "secret1"); res.Role != models.RoleMember {
		t.Fatalf("guest role: expected member got %s", res.Role)
	}

	// владелец с ролью проходит без пароля
	if res := e.mustJoin(t, owner, "r2", ""); res.Role != models.RoleOwner {
		t.Fatalf("owner role: expected owner got %s", res.Role)
	}

	// как и вернувшийся участник
	if err := e.membership.Leave(ctx, guest); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	e.mustJoin(t, guest, "r2", "")
}

func TestJoinMessageOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := newConn("alice"), newConn("bob")
	e.mustJoin(t, a, "room", "")

	if _, err := e.chat.SendMessage(ctx, a, "room", "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := e.broadcast.StartBroadcast(ctx, a, "room", models.MediaCamera); err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}

	e.notifier.reset()
	e.mustJoin(t, b, "room", "")

	want := []string{
		events.TypeRoomJoined,
		events.TypeMessageHistory,
		events.TypeRoomUsers,
		events.TypeBroadcastStarted,
	}
	if diff := cmp.Diff(want, e.notifier.types(b.ID)); diff != "" {
		t.Fatalf("joiner events mismatch (-want +got):\n%s", diff)
	}

	history := decode[[]models.Message](t, e.notifier.last(t, b.ID, events.TypeMessageHistory))
	if len(history) != 1 || history[0].Body != "hello" {
		t.Fatalf("unexpected history %+v", history)
	}

	started := decode[events.BroadcastStartedEvent](t, e.notifier.last(t, b.ID, events.TypeBroadcastStarted))
	if started.BroadcasterConnID != a.ID {
		t.Fatalf("late viewer must learn broadcaster conn id, got %q", started.BroadcasterConnID)
	}

	joined := decode[events.PresenceEvent](t, e.notifier.last(t, a.ID, events.TypeUserJoined))
	if joined.Message != "bob joined the room" || joined.UserID != b.User.ID {
		t.Fatalf("unexpected userJoined %+v", joined)
	}
	if diff := cmp.Diff([]string{"alice", "bob"}, rosterNames(joined.Users)); diff != "" {
		t.Fatalf("userJoined roster mismatch (-want +got):\n%s", diff)
	}

	if n := e.notifier.count(b.ID, events.TypeUserJoined); n != 0 {
		t.Fatalf("joiner must not receive own userJoined, got %d", n)
	}
}

func TestJoinRejectsInvalidRoomID(t *testing.T) {
	e := newEnv(t)

	for _, id := range []string{"", "   ", string(make([]byte, maxRoomIDLength+1))} {
		if _, err := e.membership.Join(context.Background(), newConn("x"), id, ""); !errors.Is(err, errs.ErrInvalidInput) {
			t.Fatalf("room id %q: expected ErrInvalidInput, got %v", id, err)
		}
	}
}

func TestJoinAnotherRoomLeavesCurrent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := newConn("alice"), newConn("bob")
	e.mustJoin(t, a, "first", "")
	e.mustJoin(t, b, "first", "")

	e.mustJoin(t, b, "second", "")

	if room, _ := e.membership.CurrentRoom(b.ID); room != "second" {
		t.Fatalf("expected binding to second, got %q", room)
	}

	users, _ := e.membership.CurrentRoster(ctx, "first")
	if diff := cmp.Diff([]string{"alice"}, rosterNames(users)); diff != "" {
		t.Fatalf("first roster mismatch (-want +got):\n%s", diff)
	}

	left := decode[events.PresenceEvent](t, e.notifier.last(t, a.ID, events.TypeUserLeft))
	if left.Message != "bob left the room" {
		t.Fatalf("unexpected userLeft %+v", left)
	}
}

func TestFailedSwitchKeepsCurrentRoom(t *testing.T) {
	tests := map[string]struct {
		setup    func(t *testing.T, e *env)
		target   string
		password string
		wantErr  error
	}{
		"room full": {
			setup: func(t *testing.T, e *env) {
				e.createRoom(t, "full", 1, "", nil)
				e.mustJoin(t, newConn("dave"), "full", "")
			},
			target:  "full",
			wantErr: errs.ErrRoomFull,
		},
		"wrong password": {
			setup: func(t *testing.T, e *env) {
				e.createRoom(t, "locked", 10, "secret1", nil)
			},
			target:   "locked",
			password: "nope",
			wantErr:  errs.ErrInvalidPassword,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()

			b, c := newConn("bob"), newConn("carol")
			e.mustJoin(t, b, "home", "")
			e.mustJoin(t, c, "home", "")
			tc.setup(t, e)
			e.notifier.reset()

			if _, err := e.membership.Join(ctx, b, tc.target, tc.password); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}

			if room, _ := e.membership.CurrentRoom(b.ID); room != "home" {
				t.Fatalf("expected binding to stay on home, got %q", room)
			}

			users, err := e.membership.CurrentRoster(ctx, "home")
			if err != nil {
				t.Fatalf("CurrentRoster: %v", err)
			}
			if diff := cmp.Diff([]string{"bob", "carol"}, rosterNames(users)); diff != "" {
				t.Fatalf("home roster mismatch (-want +got):\n%s", diff)
			}

			if n := e.notifier.count(c.ID, events.TypeUserLeft); n != 0 {
				t.Fatalf("carol must not see userLeft, got %d", n)
			}
		})
	}
}

func TestRejoinSameConnectionIsNotAnnounced(t *testing.T) {
	e := newEnv(t)

	a, b := newConn("alice"), newConn("bob")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")

	e.mustJoin(t, b, "room", "")

	if n := e.notifier.count(a.ID, events.TypeUserJoined); n != 1 {
		t.Fatalf("expected one userJoined for alice, got %d", n)
	}

	// новое соединение того же пользователя анонсируется
	e.mustJoin(t, otherConn(b), "room", "")

	if n := e.notifier.count(a.ID, events.TypeUserJoined); n != 2 {
		t.Fatalf("expected userJoined for the new connection, got %d", n)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := newConn("alice")

	if err := e.membership.Leave(ctx, a); err != nil {
		t.Fatalf("leave without room: %v", err)
	}

	e.mustJoin(t, a, "room", "")

	for i := 0; i < 2; i++ {
		if err := e.membership.LeaveRoom(ctx, a, "room"); err != nil {
			t.Fatalf("LeaveRoom #%d: %v", i, err)
		}
	}

	if _, ok := e.membership.CurrentRoom(a.ID); ok {
		t.Fatal("binding must be removed after leave")
	}
}

func TestChangeRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b, c := newConn("alice"), newConn("bob"), newConn("carol")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")
	e.mustJoin(t, c, "room", "")

	if err := e.membership.ChangeRole(ctx, "room", a.User.ID, b.User.ID, models.RoleModerator); err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}

	for _, conn := range []runtime.Conn{a, b, c} {
		ev := decode[events.UserRoleChangedEvent](t, e.notifier.last(t, conn.ID, events.TypeUserRoleChanged))
		if ev.UserID != b.User.ID || ev.NewRole != models.RoleModerator {
			t.Fatalf("unexpected userRoleChanged for %s: %+v", conn.User.Name, ev)
		}
	}

	role, err := e.rooms.GetRole(ctx, "room", b.User.ID)
	if err != nil || role != models.RoleModerator {
		t.Fatalf("persisted role: %s, %v", role, err)
	}

	allowed, err := e.permissions.Authorize(ctx, "room", b.User.ID, models.ActionKickUsers)
	if err != nil || !allowed {
		t.Fatalf("moderator must be able to kick: %v, %v", allowed, err)
	}

	users, _ := e.membership.CurrentRoster(ctx, "room")
	for _, u := range users {
		if u.UserID == b.User.ID && u.Role != models.RoleModerator {
			t.Fatalf("roster role not updated: %s", u.Role)
		}
	}

	tests := []struct {
		name      string
		requester uuid.UUID
		target    uuid.UUID
		role      models.Role
		want      error
	}{
		{"self change", a.User.ID, a.User.ID, models.RoleMember, errs.ErrForbidden},
		{"member cannot manage", c.User.ID, b.User.ID, models.RoleMember, errs.ErrForbidden},
		{"invalid role", a.User.ID, b.User.ID, models.Role("admin"), errs.ErrInvalidInput},
		{"unknown target", a.User.ID, uuid.New(), models.RoleMember, errs.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := e.membership.ChangeRole(ctx, "room", tc.requester, tc.target, tc.role)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestChangeRoleOwnerRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b, c := newConn("alice"), newConn("bob"), newConn("carol")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")
	e.mustJoin(t, c, "room", "")

	// модератору без can_manage_room выдаем право управления
	manage := true
	if _, err := e.rooms.SetPermissions(ctx, "room", models.RoleModerator, models.PermissionsPatch{CanManageRoom: &manage}); err != nil {
		t.Fatalf("SetPermissions: %v", err)
	}
	if err := e.membership.ChangeRole(ctx, "room", a.User.ID, b.User.ID, models.RoleModerator); err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}

	if err := e.membership.ChangeRole(ctx, "room", b.User.ID, c.User.ID, models.RoleOwner); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("non-owner granting owner: expected ErrForbidden, got %v", err)
	}

	if err := e.membership.ChangeRole(ctx, "room", b.User.ID, a.User.ID, models.RoleMember); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("non-owner demoting owner: expected ErrForbidden, got %v", err)
	}

	if err := e.membership.ChangeRole(ctx, "room", b.User.ID, c.User.ID, models.RoleModerator); err != nil {
		t.Fatalf("moderator with manage right: %v", err)
	}

	if err := e.membership.ChangeRole(ctx, "room", a.User.ID, c.User.ID, models.RoleOwner); err != nil {
		t.Fatalf("owner granting owner: %v", err)
	}
}

func TestKick(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b, c := newConn("alice"), newConn("bob"), newConn("carol")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")
	e.mustJoin(t, c, "room", "")

	if err := e.membership.Kick(ctx, "room", c.User.ID, b.User.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("member kick: expected ErrForbidden, got %v", err)
	}
	if err := e.membership.Kick(ctx, "room", a.User.ID, a.User.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("self kick: expected ErrForbidden, got %v", err)
	}

	if err := e.membership.Kick(ctx, "room", a.User.ID, b.User.ID); err != nil {
		t.Fatalf("Kick: %v", err)
	}

	types := e.notifier.types(b.ID)
	if types[len(types)-1] != events.TypeKicked {
		t.Fatalf("kicked must be the last event, got %v", types)
	}
	if !e.notifier.isClosed(b.ID) {
		t.Fatal("kicked connection must be closed")
	}

	if _, ok := e.membership.CurrentRoom(b.ID); ok {
		t.Fatal("kicked connection must be unbound")
	}

	if _, err := e.rooms.GetRole(ctx, "room", b.User.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("role row must be removed, got %v", err)
	}

	left := decode[events.PresenceEvent](t, e.notifier.last(t, c.ID, events.TypeUserLeft))
	if diff := cmp.Diff([]string{"alice", "carol"}, rosterNames(left.Users)); diff != "" {
		t.Fatalf("roster after kick (-want +got):\n%s", diff)
	}

	if err := e.membership.Kick(ctx, "room", a.User.ID, b.User.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second kick: expected ErrNotFound, got %v", err)
	}
}

func TestSupersededBroadcasterClearsSlot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := newConn("alice"), newConn("bob")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")

	if err := e.broadcast.StartBroadcast(ctx, a, "room", models.MediaCamera); err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}

	e.mustJoin(t, otherConn(a), "room", "")

	if n := e.notifier.count(b.ID, events.TypeBroadcastStopped); n != 1 {
		t.Fatalf("expected broadcastStopped after reconnect, got %d", n)
	}

	users, _ := e.membership.CurrentRoster(ctx, "room")
	if len(users) != 2 {
		t.Fatalf("reconnect must not duplicate the roster entry: %v", rosterNames(users))
	}
}

func TestJoinStoreFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.rooms.Fail(errors.New("connection refused"))

	_, err := e.membership.Join(ctx, newConn("alice"), "room", "")
	if err == nil || errs.IsDomain(err) {
		t.Fatalf("expected internal error, got %v", err)
	}

	e.rooms.Fail(nil)

	// сбой не ломает очередь комнаты
	e.mustJoin(t, newConn("bob"), "room", "")
}
