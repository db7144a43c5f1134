package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/memory"
)

// PermissionUsecase отвечает на вопрос "может ли пользователь выполнить действие в комнате".
// Роль берется из живого состава комнаты, а если пользователь не подключен, из БД.
// Без роли ни одно действие не разрешено.
type PermissionUsecase interface {
	// Authorize - проверка для REST, выполняется в очереди комнаты
	Authorize(ctx context.Context, roomID string, userID uuid.UUID, action models.Action) (bool, error)
	// AuthorizeIn - то же, но для кода, который уже владеет состоянием комнаты
	AuthorizeIn(ctx context.Context, st *runtime.RoomState, userID uuid.UUID, action models.Action) (bool, error)

	RoleIn(ctx context.Context, st *runtime.RoomState, userID uuid.UUID) (models.Role, bool, error)
	StoredRole(ctx context.Context, roomID string, userID uuid.UUID) (models.Role, bool, error)
	RoleAllows(ctx context.Context, roomID string, role models.Role, action models.Action) (bool, error)
}

type permissionUsecase struct {
	roomRepo repository.RoomRepository
	rooms    memory.RoomRuntimeRepository
}

func NewPermissionUsecase(roomRepo repository.RoomRepository, rooms memory.RoomRuntimeRepository) PermissionUsecase {
	return &permissionUsecase{
		roomRepo: roomRepo,
		rooms:    rooms,
	}
}

func (uc *permissionUsecase) Authorize(
	ctx context.Context,
	roomID string,
	userID uuid.UUID,
	action models.Action,
) (bool, error) {
	var allowed bool

	err := uc.rooms.Do(ctx, roomID, func(st *runtime.RoomState) error {
		var err error
		allowed, err = uc.AuthorizeIn(ctx, st, userID, action)
		return err
	})

	return allowed, err
}

func (uc *permissionUsecase) AuthorizeIn(
	ctx context.Context,
	st *runtime.RoomState,
	userID uuid.UUID,
	action models.Action,
) (bool, error) {
	role, ok, err := uc.RoleIn(ctx, st, userID)
	if err != nil || !ok {
		return false, err
	}

	return uc.RoleAllows(ctx, st.ID, role, action)
}

func (uc *permissionUsecase) RoleIn(
	ctx context.Context,
	st *runtime.RoomState,
	userID uuid.UUID,
) (models.Role, bool, error) {
	if s, ok := st.Get(userID); ok {
		return s.Role, true, nil
	}

	return uc.StoredRole(ctx, st.ID, userID)
}

func (uc *permissionUsecase) StoredRole(ctx context.Context, roomID string, userID uuid.UUID) (models.Role, bool, error) {
	role, err := uc.roomRepo.GetRole(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("get role: %w", err)
	}

	return role, true, nil
}

func (uc *permissionUsecase) RoleAllows(
	ctx context.Context,
	roomID string,
	role models.Role,
	action models.Action,
) (bool, error) {
	perms, err := uc.roomRepo.GetPermissions(ctx, roomID, role)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("get permissions: %w", err)
	}

	return perms.Allows(action), nil
}
