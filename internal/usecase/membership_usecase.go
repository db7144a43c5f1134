package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/application/metric"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/memory"
)

const maxRoomIDLength = 64

// JoinResult - то, что получает вошедший участник
type JoinResult struct {
	Room          *models.Room
	Role          models.Role
	Permissions   models.Permissions
	Customization models.Customization
	Users         []events.UserView
}

// MembershipUsecase управляет составом комнат: вход, выход, смена роли и исключение.
// Все изменения состава комнаты проходят через ее очередь, включая выход при обрыве соединения.
type MembershipUsecase interface {
	Join(ctx context.Context, conn runtime.Conn, roomID, password string) (*JoinResult, error)
	// Leave - выход из текущей комнаты соединения; без комнаты ничего не делает
	Leave(ctx context.Context, conn runtime.Conn) error
	LeaveRoom(ctx context.Context, conn runtime.Conn, roomID string) error

	ChangeRole(ctx context.Context, roomID string, requesterID, targetID uuid.UUID, newRole models.Role) error
	Kick(ctx context.Context, roomID string, requesterID, targetID uuid.UUID) error

	CurrentRoster(ctx context.Context, roomID string) ([]events.UserView, error)
	CurrentRoom(connID string) (string, bool)

	// WithSession выполняет fn в очереди комнаты, если соединение сейчас в ней состоит.
	// Пустой roomID означает текущую комнату соединения.
	WithSession(
		ctx context.Context,
		conn runtime.Conn,
		roomID string,
		fn func(st *runtime.RoomState, s runtime.Session) error,
	) error
}

type membershipUsecase struct {
	historyLimit           int
	defaultMaxParticipants int

	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	rooms       memory.RoomRuntimeRepository

	permissions PermissionUsecase
	presence    PresenceUsecase

	// bindings хранит map[conn_id]room_id
	bindings map[string]string
	mu       sync.Mutex
}

func NewMembershipUsecase(
	historyLimit int,
	defaultMaxParticipants int,
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	rooms memory.RoomRuntimeRepository,
	permissions PermissionUsecase,
	presence PresenceUsecase,
) MembershipUsecase {
	return &membershipUsecase{
		historyLimit:           historyLimit,
		defaultMaxParticipants: defaultMaxParticipants,
		roomRepo:               roomRepo,
		messageRepo:            messageRepo,
		rooms:                  rooms,
		permissions:            permissions,
		presence:               presence,
		bindings:               make(map[string]string),
	}
}

func (uc *membershipUsecase) Join(ctx context.Context, conn runtime.Conn, roomID, password string) (*JoinResult, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" || len(roomID) > maxRoomIDLength {
		return nil, fmt.Errorf("room id must be 1-%d characters: %w", maxRoomIDLength, errs.ErrInvalidInput)
	}

	previous, switching := uc.CurrentRoom(conn.ID)
	switching = switching && previous != roomID

	var result *JoinResult

	err := uc.rooms.Do(ctx, roomID, func(st *runtime.RoomState) error {
		var err error
		result, err = uc.join(ctx, st, conn, password)
		return err
	})
	if err != nil {
		metric.RecordJoin(errs.Code(err))
		return nil, fmt.Errorf("join room %s: %w", roomID, err)
	}

	metric.RecordJoin("ok")

	// старую комнату покидаем только после успешного входа в новую:
	// отказ по паролю или вместимости оставляет участника на месте
	if switching {
		if err = uc.LeaveRoom(ctx, conn, previous); err != nil {
			slog.Warn(
				"leave previous room",
				slog.String(constant.RoomID, previous),
				slog.String(constant.ConnID, conn.ID),
				slog.Any(constant.Error, err),
			)
		}
	}

	slog.Info(
		"user joined room",
		slog.String(constant.RoomID, roomID),
		slog.Any(constant.UserID, conn.User.ID),
		slog.String(constant.ConnID, conn.ID),
		slog.String(constant.Role, result.Role.String()),
	)

	return result, nil
}

func (uc *membershipUsecase) join(
	ctx context.Context,
	st *runtime.RoomState,
	conn runtime.Conn,
	password string,
) (*JoinResult, error) {
	userID := conn.User.ID

	room, err := uc.resolveRoom(ctx, st.ID, userID)
	if err != nil {
		return nil, err
	}

	role, hasRole, err := uc.permissions.StoredRole(ctx, room.ID, userID)
	if err != nil {
		return nil, err
	}

	// участники с ролью входят без пароля
	if room.IsPrivate && !hasRole {
		ok, err := uc.roomRepo.VerifyPassword(ctx, room.ID, password)
		if err != nil {
			return nil, fmt.Errorf("verify password: %w", err)
		}

		if !ok {
			return nil, errs.ErrInvalidPassword
		}
	}

	prev, present := st.Get(userID)

	if !hasRole && !present && st.Len() >= room.MaxParticipants {
		return nil, errs.ErrRoomFull
	}

	if !hasRole {
		role = models.RoleMember
		if room.CreatedBy(userID) {
			role = models.RoleOwner
		}

		if err = uc.roomRepo.SetRole(ctx, room.ID, userID, role); err != nil {
			return nil, fmt.Errorf("persist role: %w", err)
		}
	}

	perms, err := uc.roomRepo.GetPermissions(ctx, room.ID, role)
	if err != nil {
		return nil, fmt.Errorf("get permissions: %w", err)
	}

	customization, err := uc.roomRepo.GetCustomization(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("get customization: %w", err)
	}

	history, err := uc.messageRepo.RecentMessages(ctx, room.ID, uc.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}

	session := runtime.Session{
		ConnID:   conn.ID,
		UserID:   userID,
		UserName: conn.User.Name,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if present {
		session.JoinedAt = prev.JoinedAt
	}

	if stale, superseded := st.Put(session); superseded {
		uc.unbind(stale.ConnID, st.ID)

		if slot, ok := st.ClearBroadcaster(stale.ConnID); ok {
			uc.presence.AnnounceBroadcastStopped(st, slot)
		}
	}

	uc.bind(conn.ID, st.ID)

	result := &JoinResult{
		Room:          room,
		Role:          role,
		Permissions:   perms,
		Customization: customization,
		Users:         st.Users(),
	}

	uc.presence.NotifyConnection(conn.ID, events.New(events.TypeRoomJoined, events.RoomJoinedEvent{
		Room:          room,
		Role:          role,
		Permissions:   perms,
		Customization: customization,
		ConnID:        conn.ID,
	}))
	uc.presence.NotifyConnection(conn.ID, events.New(events.TypeMessageHistory, history))
	uc.presence.NotifyConnection(conn.ID, events.New(events.TypeRoomUsers, result.Users))

	if slot, ok := st.Broadcaster(); ok && slot.ConnID != conn.ID {
		uc.presence.NotifyConnection(conn.ID, events.New(events.TypeBroadcastStarted, events.BroadcastStartedEvent{
			BroadcasterID:     slot.UserID,
			BroadcasterName:   slot.UserName,
			BroadcasterConnID: slot.ConnID,
			Kind:              slot.Kind,
		}))
	}

	// повторный joinRoom того же соединения не анонсируется заново
	if !present || prev.ConnID != conn.ID {
		uc.presence.AnnounceJoin(st, session)
	}

	return result, nil
}

// resolveRoom находит комнату или создает ее при первом входе
func (uc *membershipUsecase) resolveRoom(ctx context.Context, roomID string, userID uuid.UUID) (*models.Room, error) {
	room, err := uc.roomRepo.FindRoom(ctx, roomID)
	if err == nil {
		return room, nil
	}

	if !errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("find room: %w", err)
	}

	room, created, err := uc.roomRepo.CreateRoomIfAbsent(ctx, models.NewAutoRoom(roomID, userID, uc.defaultMaxParticipants))
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	if created {
		slog.Info("room auto-created", slog.String(constant.RoomID, roomID), slog.Any(constant.UserID, userID))
	}

	return room, nil
}

func (uc *membershipUsecase) Leave(ctx context.Context, conn runtime.Conn) error {
	roomID, ok := uc.CurrentRoom(conn.ID)
	if !ok {
		return nil
	}

	return uc.LeaveRoom(ctx, conn, roomID)
}

func (uc *membershipUsecase) LeaveRoom(ctx context.Context, conn runtime.Conn, roomID string) error {
	return uc.rooms.Do(ctx, roomID, func(st *runtime.RoomState) error {
		uc.unbind(conn.ID, roomID)

		s, ok := st.RemoveConn(conn.ID)
		if !ok {
			return nil
		}

		if slot, ok := st.ClearBroadcaster(conn.ID); ok {
			uc.presence.AnnounceBroadcastStopped(st, slot)
		}

		uc.presence.AnnounceLeave(st, s)

		slog.Info(
			"user left room",
			slog.String(constant.RoomID, roomID),
			slog.Any(constant.UserID, s.UserID),
			slog.String(constant.ConnID, conn.ID),
		)

		return nil
	})
}

func (uc *membershipUsecase) ChangeRole(
	ctx context.Context,
	roomID string,
	requesterID, targetID uuid.UUID,
	newRole models.Role,
) error {
	if !newRole.Valid() {
		return fmt.Errorf("role %q: %w", newRole, errs.ErrInvalidInput)
	}

	if requesterID == targetID {
		return fmt.Errorf("cannot change own role: %w", errs.ErrForbidden)
	}

	return uc.rooms.Do(ctx, roomID, func(st *runtime.RoomState) error {
		requesterRole, targetRole, err := uc.authorizeManagement(ctx, st, requesterID, targetID, models.ActionManageRoom)
		if err != nil {
			return err
		}

		if (newRole == models.RoleOwner || targetRole == models.RoleOwner) && requesterRole != models.RoleOwner {
			return fmt.Errorf("only an owner can grant or revoke owner: %w", errs.ErrForbidden)
		}

		if err = uc.roomRepo.SetRole(ctx, roomID, targetID, newRole); err != nil {
			return fmt.Errorf("persist role: %w", err)
		}

		ev := events.UserRoleChangedEvent{UserID: targetID, NewRole: newRole}
		if s, ok := st.Get(targetID); ok {
			st.SetRole(targetID, newRole)
			ev.UserName = s.UserName
		}

		uc.presence.NotifyRoom(st, events.New(events.TypeUserRoleChanged, ev), "")

		slog.Info(
			"role changed",
			slog.String(constant.RoomID, roomID),
			slog.Any(constant.UserID, requesterID),
			slog.Any(constant.TargetID, targetID),
			slog.String(constant.Role, newRole.String()),
		)

		return nil
	})
}

func (uc *membershipUsecase) Kick(ctx context.Context, roomID string, requesterID, targetID uuid.UUID) error {
	if requesterID == targetID {
		return fmt.Errorf("cannot kick yourself: %w", errs.ErrForbidden)
	}

	return uc.rooms.Do(ctx, roomID, func(st *runtime.RoomState) error {
		requesterRole, targetRole, err := uc.authorizeManagement(ctx, st, requesterID, targetID, models.ActionKickUsers)
		if err != nil {
			return err
		}

		if targetRole == models.RoleOwner && requesterRole != models.RoleOwner {
			return fmt.Errorf("only an owner can remove an owner: %w", errs.ErrForbidden)
		}

		if err = uc.roomRepo.DeleteRole(ctx, roomID, targetID); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("delete role: %w", err)
		}

		s, connected := st.Get(targetID)
		if connected {
			st.RemoveConn(s.ConnID)
			uc.unbind(s.ConnID, roomID)

			uc.presence.NotifyConnection(s.ConnID, events.New(events.TypeKicked, events.KickedEvent{
				Message: "You have been removed from the room",
				RoomID:  roomID,
			}))
			uc.presence.Disconnect(s.ConnID)

			if slot, ok := st.ClearBroadcaster(s.ConnID); ok {
				uc.presence.AnnounceBroadcastStopped(st, slot)
			}

			uc.presence.AnnounceLeave(st, s)
		}

		slog.Info(
			"user kicked",
			slog.String(constant.RoomID, roomID),
			slog.Any(constant.UserID, requesterID),
			slog.Any(constant.TargetID, targetID),
		)

		return nil
	})
}

// authorizeManagement проверяет право requester на action и наличие роли у target
func (uc *membershipUsecase) authorizeManagement(
	ctx context.Context,
	st *runtime.RoomState,
	requesterID, targetID uuid.UUID,
	action models.Action,
) (requesterRole, targetRole models.Role, err error) {
	if _, err = uc.roomRepo.FindRoom(ctx, st.ID); err != nil {
		return "", "", err
	}

	requesterRole, ok, err := uc.permissions.RoleIn(ctx, st, requesterID)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", fmt.Errorf("requester has no role in room: %w", errs.ErrForbidden)
	}

	allowed, err := uc.permissions.RoleAllows(ctx, st.ID, requesterRole, action)
	if err != nil {
		return "", "", err
	}
	if !allowed {
		return "", "", fmt.Errorf("%s requires %s: %w", requesterRole, action, errs.ErrForbidden)
	}

	targetRole, ok, err = uc.permissions.RoleIn(ctx, st, targetID)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", fmt.Errorf("target is not a member: %w", errs.ErrNotFound)
	}

	return requesterRole, targetRole, nil
}

func (uc *membershipUsecase) CurrentRoster(ctx context.Context, roomID string) ([]events.UserView, error) {
	var users []events.UserView

	err := uc.rooms.Do(ctx, roomID, func(st *runtime.RoomState) error {
		users = st.Users()
		return nil
	})

	return users, err
}

func (uc *membershipUsecase) CurrentRoom(connID string) (string, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	roomID, ok := uc.bindings[connID]
	return roomID, ok
}

func (uc *membershipUsecase) WithSession(
	ctx context.Context,
	conn runtime.Conn,
	roomID string,
	fn func(st *runtime.RoomState, s runtime.Session) error,
) error {
	current, ok := uc.CurrentRoom(conn.ID)
	if !ok || (roomID != "" && roomID != current) {
		return fmt.Errorf("not joined to room %q: %w", roomID, errs.ErrNotFound)
	}

	return uc.rooms.Do(ctx, current, func(st *runtime.RoomState) error {
		s, ok := st.ByConn(conn.ID)
		if !ok {
			return fmt.Errorf("not joined to room %q: %w", current, errs.ErrNotFound)
		}

		return fn(st, s)
	})
}

func (uc *membershipUsecase) bind(connID, roomID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.bindings[connID] = roomID
}

// unbind снимает привязку, только если соединение все еще привязано к roomID
func (uc *membershipUsecase) unbind(connID, roomID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.bindings[connID] == roomID {
		delete(uc.bindings, connID)
	}
}
