package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/input"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/memory"
)

// RoomInfo - публичные сведения о комнате
type RoomInfo struct {
	Room         *models.Room      `json:"room"`
	Users        []events.UserView `json:"users"`
	UserCount    int               `json:"userCount"`
	MessageCount int               `json:"messageCount"`
}

// RoomSettings - настройки комнаты для участников с ролью
type RoomSettings struct {
	Room          *models.Room                       `json:"room"`
	Permissions   map[models.Role]models.Permissions `json:"permissions"`
	Customization models.Customization               `json:"customization"`
}

type RoomUsecase interface {
	CreateRoom(ctx context.Context, in *input.CreateRoomInput) (*models.Room, error)
	GetRoomInfo(ctx context.Context, roomID string) (*RoomInfo, error)
	GetSettings(ctx context.Context, roomID string, userID uuid.UUID) (*RoomSettings, error)

	UpdateSecurity(ctx context.Context, roomID string, userID uuid.UUID, in *input.UpdateSecurityInput) (*RoomSettings, error)
	UpdateCustomization(
		ctx context.Context,
		roomID string,
		userID uuid.UUID,
		patch models.CustomizationPatch,
	) (models.Customization, error)

	// ImportRooms создает комнаты из определений; существующие комнаты не меняются
	ImportRooms(ctx context.Context, defs []input.RoomDefinition) (created int, err error)
	ExportRooms(ctx context.Context) ([]input.RoomDefinition, error)
}

type roomUsecase struct {
	defaultMaxParticipants int

	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	rooms       memory.RoomRuntimeRepository

	membership  MembershipUsecase
	permissions PermissionUsecase
	presence    PresenceUsecase
}

func NewRoomUsecase(
	defaultMaxParticipants int,
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	rooms memory.RoomRuntimeRepository,
	membership MembershipUsecase,
	permissions PermissionUsecase,
	presence PresenceUsecase,
) RoomUsecase {
	return &roomUsecase{
		defaultMaxParticipants: defaultMaxParticipants,
		roomRepo:               roomRepo,
		messageRepo:            messageRepo,
		userRepo:               userRepo,
		rooms:                  rooms,
		membership:             membership,
		permissions:            permissions,
		presence:               presence,
	}
}

func (uc *roomUsecase) CreateRoom(ctx context.Context, in *input.CreateRoomInput) (*models.Room, error) {
	room, err := uc.newRoom(in)
	if err != nil {
		return nil, err
	}

	stored, created, err := uc.roomRepo.CreateRoomIfAbsent(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	if !created {
		return nil, fmt.Errorf("room %s: %w", stored.ID, errs.ErrAlreadyExists)
	}

	if in.OwnerID != nil {
		if err = uc.roomRepo.SetRole(ctx, stored.ID, *in.OwnerID, models.RoleOwner); err != nil {
			return nil, fmt.Errorf("set owner role: %w", err)
		}
	}

	slog.Info("room created", slog.String(constant.RoomID, stored.ID), slog.Any(constant.UserID, in.OwnerID))

	return stored, nil
}

func (uc *roomUsecase) newRoom(in *input.CreateRoomInput) (*models.Room, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" || len(id) > maxRoomIDLength {
		return nil, fmt.Errorf("room id must be 1-%d characters: %w", maxRoomIDLength, errs.ErrInvalidInput)
	}

	if in.MaxParticipants < 0 {
		return nil, fmt.Errorf("max participants must be positive: %w", errs.ErrInvalidInput)
	}

	if in.IsPrivate && in.Password == "" {
		return nil, fmt.Errorf("private room requires a password: %w", errs.ErrInvalidInput)
	}

	now := time.Now().UTC()

	room := &models.Room{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		IsPrivate:       in.IsPrivate,
		MaxParticipants: in.MaxParticipants,
		OwnerID:         in.OwnerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if room.Name == "" {
		room.Name = fmt.Sprintf("Room %s", id)
	}

	if room.MaxParticipants == 0 {
		room.MaxParticipants = uc.defaultMaxParticipants
	}

	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}

		room.PasswordHash = &hash
	}

	return room, nil
}

func (uc *roomUsecase) GetRoomInfo(ctx context.Context, roomID string) (*RoomInfo, error) {
	room, err := uc.roomRepo.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	users, err := uc.membership.CurrentRoster(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("current roster: %w", err)
	}

	count, err := uc.messageRepo.CountMessages(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	return &RoomInfo{
		Room:         room,
		Users:        users,
		UserCount:    len(users),
		MessageCount: count,
	}, nil
}

func (uc *roomUsecase) GetSettings(ctx context.Context, roomID string, userID uuid.UUID) (*RoomSettings, error) {
	if _, ok, err := uc.permissions.StoredRole(ctx, roomID, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("no role in room %s: %w", roomID, errs.ErrForbidden)
	}

	return uc.settings(ctx, roomID)
}

func (uc *roomUsecase) settings(ctx context.Context, roomID string) (*RoomSettings, error) {
	room, err := uc.roomRepo.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	perms := make(map[models.Role]models.Permissions, len(models.Roles))
	for _, role := range models.Roles {
		p, err := uc.roomRepo.GetPermissions(ctx, roomID, role)
		if err != nil {
			return nil, fmt.Errorf("get %s permissions: %w", role, err)
		}

		perms[role] = p
	}

	customization, err := uc.roomRepo.GetCustomization(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get customization: %w", err)
	}

	return &RoomSettings{
		Room:          room,
		Permissions:   perms,
		Customization: customization,
	}, nil
}

func (uc *roomUsecase) UpdateSecurity(
	ctx context.Context,
	roomID string,
	userID uuid.UUID,
	in *input.UpdateSecurityInput,
) (*RoomSettings, error) {
	if in.MaxParticipants != nil && *in.MaxParticipants < 1 {
		return nil, fmt.Errorf("max participants must be positive: %w", errs.ErrInvalidInput)
	}

	for role := range in.Permissions {
		if !role.Valid() {
			return nil, fmt.Errorf("role %q: %w", role, errs.ErrInvalidInput)
		}
	}

	patch := models.SecurityPatch{
		IsPrivate:       in.IsPrivate,
		MaxParticipants: in.MaxParticipants,
	}

	if in.Password != nil {
		hash := ""
		if *in.Password != "" {
			var err error
			if hash, err = hashPassword(*in.Password); err != nil {
				return nil, err
			}
		}

		patch.PasswordHash = &hash
	}

	err := uc.rooms.Do(ctx, roomID, func(st *runtime.RoomState) error {
		if err := uc.authorizeManage(ctx, st, userID); err != nil {
			return err
		}

		current, err := uc.roomRepo.FindRoom(ctx, roomID)
		if err != nil {
			return err
		}

		// приватная комната без пароля закрыта для всех новых участников
		if next := patch.Apply(*current); next.IsPrivate && !next.HasPassword() {
			return fmt.Errorf("private room requires a password: %w", errs.ErrInvalidInput)
		}

		if _, err := uc.roomRepo.UpdateSecurity(ctx, roomID, patch); err != nil {
			return fmt.Errorf("update security: %w", err)
		}

		for role, p := range in.Permissions {
			if _, err := uc.roomRepo.SetPermissions(ctx, roomID, role, p); err != nil {
				return fmt.Errorf("set %s permissions: %w", role, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("room security updated", slog.String(constant.RoomID, roomID), slog.Any(constant.UserID, userID))

	return uc.settings(ctx, roomID)
}

func (uc *roomUsecase) UpdateCustomization(
	ctx context.Context,
	roomID string,
	userID uuid.UUID,
	patch models.CustomizationPatch,
) (models.Customization, error) {
	var updated models.Customization

	err := uc.rooms.Do(ctx, roomID, func(st *runtime.RoomState) error {
		if err := uc.authorizeManage(ctx, st, userID); err != nil {
			return err
		}

		var err error
		if updated, err = uc.roomRepo.SetCustomization(ctx, roomID, patch); err != nil {
			return fmt.Errorf("set customization: %w", err)
		}

		uc.presence.NotifyRoom(st, events.New(events.TypeCustomizationUpdated, events.CustomizationUpdatedEvent{
			Customization: updated,
		}), "")

		return nil
	})
	if err != nil {
		return models.Customization{}, err
	}

	slog.Info("room customization updated", slog.String(constant.RoomID, roomID), slog.Any(constant.UserID, userID))

	return updated, nil
}

func (uc *roomUsecase) authorizeManage(ctx context.Context, st *runtime.RoomState, userID uuid.UUID) error {
	if _, err := uc.roomRepo.FindRoom(ctx, st.ID); err != nil {
		return err
	}

	allowed, err := uc.permissions.AuthorizeIn(ctx, st, userID, models.ActionManageRoom)
	if err != nil {
		return err
	}

	if !allowed {
		return fmt.Errorf("%s required: %w", models.ActionManageRoom, errs.ErrForbidden)
	}

	return nil
}

func (uc *roomUsecase) ImportRooms(ctx context.Context, defs []input.RoomDefinition) (int, error) {
	created := 0

	for _, def := range defs {
		ok, err := uc.importRoom(ctx, def)
		if err != nil {
			return created, fmt.Errorf("import room %q: %w", def.ID, err)
		}

		if ok {
			created++
		}
	}

	return created, nil
}

func (uc *roomUsecase) importRoom(ctx context.Context, def input.RoomDefinition) (bool, error) {
	in := &input.CreateRoomInput{
		ID:              def.ID,
		Name:            def.Name,
		Description:     def.Description,
		IsPrivate:       def.Private,
		Password:        def.Password,
		MaxParticipants: def.MaxParticipants,
	}

	if def.OwnerEmail != "" {
		owner, err := uc.userRepo.GetUserByEmail(ctx, normalizeEmail(def.OwnerEmail))
		if err != nil {
			return false, fmt.Errorf("owner %s: %w", def.OwnerEmail, err)
		}

		in.OwnerID = &owner.ID
	}

	_, err := uc.CreateRoom(ctx, in)
	if errors.Is(err, errs.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for role, patch := range def.Permissions {
		if !role.Valid() {
			return false, fmt.Errorf("role %q: %w", role, errs.ErrInvalidInput)
		}

		if _, err = uc.roomRepo.SetPermissions(ctx, def.ID, role, patch); err != nil {
			return false, fmt.Errorf("set %s permissions: %w", role, err)
		}
	}

	if def.Customization != nil {
		if _, err = uc.roomRepo.SetCustomization(ctx, def.ID, *def.Customization); err != nil {
			return false, fmt.Errorf("set customization: %w", err)
		}
	}

	return true, nil
}

func (uc *roomUsecase) ExportRooms(ctx context.Context) ([]input.RoomDefinition, error) {
	rooms, err := uc.roomRepo.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	defs := make([]input.RoomDefinition, 0, len(rooms))

	for _, room := range rooms {
		settings, err := uc.settings(ctx, room.ID)
		if err != nil {
			return nil, err
		}

		def := input.RoomDefinition{
			ID:              room.ID,
			Name:            room.Name,
			Description:     room.Description,
			Private:         room.IsPrivate,
			MaxParticipants: room.MaxParticipants,
			Customization:   customizationPatch(settings.Customization),
			Permissions:     make(map[models.Role]models.PermissionsPatch, len(settings.Permissions)),
		}

		if room.OwnerID != nil {
			owner, err := uc.userRepo.GetUserByID(ctx, *room.OwnerID)
			if err != nil && !errors.Is(err, errs.ErrNotFound) {
				return nil, fmt.Errorf("owner of %s: %w", room.ID, err)
			}
			if owner != nil {
				def.OwnerEmail = owner.Email
			}
		}

		for role, p := range settings.Permissions {
			def.Permissions[role] = permissionsPatch(p)
		}

		defs = append(defs, def)
	}

	return defs, nil
}

func customizationPatch(c models.Customization) *models.CustomizationPatch {
	return &models.CustomizationPatch{
		PrimaryColor:      &c.PrimaryColor,
		BackgroundColor:   &c.BackgroundColor,
		TextColor:         &c.TextColor,
		AccentColor:       &c.AccentColor,
		LogoURL:           &c.LogoURL,
		WelcomeMessage:    &c.WelcomeMessage,
		EnableChat:        &c.EnableChat,
		EnableVideo:       &c.EnableVideo,
		EnableScreenShare: &c.EnableScreenShare,
		EnableRecordings:  &c.EnableRecordings,
		EnableAnalytics:   &c.EnableAnalytics,
		AutoRecord:        &c.AutoRecord,
	}
}

func permissionsPatch(p models.Permissions) models.PermissionsPatch {
	return models.PermissionsPatch{
		CanBroadcast:      &p.CanBroadcast,
		CanKickUsers:      &p.CanKickUsers,
		CanDeleteMessages: &p.CanDeleteMessages,
		CanInviteUsers:    &p.CanInviteUsers,
		CanManageRoom:     &p.CanManageRoom,
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}
