package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
)

// RoomRepository - долговременные данные комнат: сама комната, роли участников,
// разрешения ролей и оформление
type RoomRepository interface {
	// FindRoom возвращает errs.ErrNotFound, если комнаты нет
	FindRoom(ctx context.Context, id string) (*models.Room, error)
	// CreateRoomIfAbsent идемпотентна: при гонке проигравший получает уже
	// существующую комнату и created=false. Новая комната получает разрешения
	// и оформление по умолчанию.
	CreateRoomIfAbsent(ctx context.Context, room *models.Room) (stored *models.Room, created bool, err error)
	UpdateSecurity(ctx context.Context, id string, patch models.SecurityPatch) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)

	GetRole(ctx context.Context, roomID string, userID uuid.UUID) (models.Role, error)
	SetRole(ctx context.Context, roomID string, userID uuid.UUID, role models.Role) error
	DeleteRole(ctx context.Context, roomID string, userID uuid.UUID) error

	GetPermissions(ctx context.Context, roomID string, role models.Role) (models.Permissions, error)
	SetPermissions(ctx context.Context, roomID string, role models.Role, patch models.PermissionsPatch) (models.Permissions, error)

	GetCustomization(ctx context.Context, roomID string) (models.Customization, error)
	SetCustomization(ctx context.Context, roomID string, patch models.CustomizationPatch) (models.Customization, error)

	VerifyPassword(ctx context.Context, roomID, plaintext string) (bool, error)
}

const roomColumns = "id, name, description, is_private, password_hash, max_participants, owner_id, created_at, updated_at"

type roomRepo struct {
	db *sqlx.DB
}

func NewRoomRepo(db *sqlx.DB) RoomRepository {
	return &roomRepo{db: db}
}

type permissionsRow struct {
	RoomID string      `db:"room_id"`
	Role   models.Role `db:"role"`
	models.Permissions
}

type customizationRow struct {
	RoomID string `db:"room_id"`
	models.Customization
}

func (r *roomRepo) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room

	query := r.db.Rebind("SELECT " + roomColumns + " FROM rooms WHERE id = ?")

	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, notFound(err, "room")
	}

	return &room, nil
}

func (r *roomRepo) CreateRoomIfAbsent(ctx context.Context, room *models.Room) (*models.Room, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (:id, :name, :description, :is_private, :password_hash, :max_participants, :owner_id, :created_at, :updated_at)
		ON CONFLICT (id) DO NOTHING`,
		room,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert room: %w", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert room rows affected: %w", err)
	}

	created := aff == 1

	if created {
		for _, role := range models.Roles {
			_, err = tx.NamedExecContext(ctx, `
				INSERT INTO room_permissions (room_id, role, can_broadcast, can_kick_users, can_delete_messages, can_invite_users, can_manage_room)
				VALUES (:room_id, :role, :can_broadcast, :can_kick_users, :can_delete_messages, :can_invite_users, :can_manage_room)
				ON CONFLICT (room_id, role) DO NOTHING`,
				permissionsRow{RoomID: room.ID, Role: role, Permissions: models.DefaultPermissions(role)},
			)
			if err != nil {
				return nil, false, fmt.Errorf("insert default permissions for %s: %w", role, err)
			}
		}

		if err = insertCustomization(ctx, tx, room.ID, models.DefaultCustomization()); err != nil {
			return nil, false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit room: %w", err)
	}

	stored, err := r.FindRoom(ctx, room.ID)
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

func insertCustomization(ctx context.Context, tx *sqlx.Tx, roomID string, c models.Customization) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO room_customization (
			room_id, primary_color, background_color, text_color, accent_color, logo_url, welcome_message,
			enable_chat, enable_video, enable_screen_share, enable_recordings, enable_analytics, auto_record
		) VALUES (
			:room_id, :primary_color, :background_color, :text_color, :accent_color, :logo_url, :welcome_message,
			:enable_chat, :enable_video, :enable_screen_share, :enable_recordings, :enable_analytics, :auto_record
		)
		ON CONFLICT (room_id) DO UPDATE SET
			primary_color = excluded.primary_color,
			background_color = excluded.background_color,
			text_color = excluded.text_color,
			accent_color = excluded.accent_color,
			logo_url = excluded.logo_url,
			welcome_message = excluded.welcome_message,
			enable_chat = excluded.enable_chat,
			enable_video = excluded.enable_video,
			enable_screen_share = excluded.enable_screen_share,
			enable_recordings = excluded.enable_recordings,
			enable_analytics = excluded.enable_analytics,
			auto_record = excluded.auto_record`,
		customizationRow{RoomID: roomID, Customization: c},
	)
	if err != nil {
		return fmt.Errorf("upsert customization: %w", err)
	}

	return nil
}

func (r *roomRepo) UpdateSecurity(ctx context.Context, id string, patch models.SecurityPatch) (*models.Room, error) {
	room, err := r.FindRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*room)
	updated.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE rooms SET is_private = ?, password_hash = ?, max_participants = ?, updated_at = ?
		WHERE id = ?`)

	_, err = r.db.ExecContext(ctx, query,
		updated.IsPrivate,
		updated.PasswordHash,
		updated.MaxParticipants,
		updated.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update room security: %w", err)
	}

	return &updated, nil
}

func (r *roomRepo) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room

	if err := r.db.SelectContext(ctx, &rooms, "SELECT "+roomColumns+" FROM rooms ORDER BY created_at, id"); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	return rooms, nil
}

func (r *roomRepo) GetRole(ctx context.Context, roomID string, userID uuid.UUID) (models.Role, error) {
	var role models.Role

	query := r.db.Rebind("SELECT role FROM room_roles WHERE room_id = ? AND user_id = ?")

	if err := r.db.GetContext(ctx, &role, query, roomID, userID); err != nil {
		return "", notFound(err, "role")
	}

	return role, nil
}

func (r *roomRepo) SetRole(ctx context.Context, roomID string, userID uuid.UUID, role models.Role) error {
	now := time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO room_roles (room_id, user_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (room_id, user_id) DO UPDATE SET role = excluded.role, updated_at = excluded.updated_at`)

	if _, err := r.db.ExecContext(ctx, query, roomID, userID, role, now, now); err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	return nil
}

func (r *roomRepo) DeleteRole(ctx context.Context, roomID string, userID uuid.UUID) error {
	query := r.db.Rebind("DELETE FROM room_roles WHERE room_id = ? AND user_id = ?")

	res, err := r.db.ExecContext(ctx, query, roomID, userID)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	if aff, err := res.RowsAffected(); err == nil && aff == 0 {
		return fmt.Errorf("delete role: %w", errs.ErrNotFound)
	}

	return nil
}

func (r *roomRepo) GetPermissions(ctx context.Context, roomID string, role models.Role) (models.Permissions, error) {
	return getPermissions(ctx, r.db, roomID, role)
}

func getPermissions(ctx context.Context, q sqlx.QueryerContext, roomID string, role models.Role) (models.Permissions, error) {
	var p models.Permissions

	query := sqlx.Rebind(sqlx.BindType(driverName(q)), `
		SELECT can_broadcast, can_kick_users, can_delete_messages, can_invite_users, can_manage_room
		FROM room_permissions WHERE room_id = ? AND role = ?`)

	if err := sqlx.GetContext(ctx, q, &p, query, roomID, role); err != nil {
		return models.Permissions{}, notFound(err, "permissions")
	}

	return p, nil
}

func (r *roomRepo) SetPermissions(
	ctx context.Context,
	roomID string,
	role models.Role,
	patch models.PermissionsPatch,
) (models.Permissions, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Permissions{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := getPermissions(ctx, tx, roomID, role)
	if err != nil {
		return models.Permissions{}, err
	}

	updated := patch.Apply(current)

	_, err = tx.NamedExecContext(ctx, `
		UPDATE room_permissions SET
			can_broadcast = :can_broadcast,
			can_kick_users = :can_kick_users,
			can_delete_messages = :can_delete_messages,
			can_invite_users = :can_invite_users,
			can_manage_room = :can_manage_room
		WHERE room_id = :room_id AND role = :role`,
		permissionsRow{RoomID: roomID, Role: role, Permissions: updated},
	)
	if err != nil {
		return models.Permissions{}, fmt.Errorf("update permissions: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.Permissions{}, fmt.Errorf("commit permissions: %w", err)
	}

	return updated, nil
}

func (r *roomRepo) GetCustomization(ctx context.Context, roomID string) (models.Customization, error) {
	return getCustomization(ctx, r.db, roomID)
}

func getCustomization(ctx context.Context, q sqlx.QueryerContext, roomID string) (models.Customization, error) {
	var c models.Customization

	query := sqlx.Rebind(sqlx.BindType(driverName(q)), `
		SELECT primary_color, background_color, text_color, accent_color, logo_url, welcome_message,
			enable_chat, enable_video, enable_screen_share, enable_recordings, enable_analytics, auto_record
		FROM room_customization WHERE room_id = ?`)

	if err := sqlx.GetContext(ctx, q, &c, query, roomID); err != nil {
		return models.Customization{}, notFound(err, "customization")
	}

	return c, nil
}

func (r *roomRepo) SetCustomization(
	ctx context.Context,
	roomID string,
	patch models.CustomizationPatch,
) (models.Customization, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Customization{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := getCustomization(ctx, tx, roomID)
	if err != nil {
		return models.Customization{}, err
	}

	updated := patch.Apply(current)

	if err = insertCustomization(ctx, tx, roomID, updated); err != nil {
		return models.Customization{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Customization{}, fmt.Errorf("commit customization: %w", err)
	}

	return updated, nil
}

func (r *roomRepo) VerifyPassword(ctx context.Context, roomID, plaintext string) (bool, error) {
	room, err := r.FindRoom(ctx, roomID)
	if err != nil {
		return false, err
	}

	if !room.HasPassword() || plaintext == "" {
		return false, nil
	}

	return bcrypt.CompareHashAndPassword([]byte(*room.PasswordHash), []byte(plaintext)) == nil, nil
}

// driverName нужен, чтобы переписать плейсхолдеры и для *sqlx.DB, и для *sqlx.Tx
func driverName(q sqlx.QueryerContext) string {
	if d, ok := q.(interface{ DriverName() string }); ok {
		return d.DriverName()
	}

	return ""
}
