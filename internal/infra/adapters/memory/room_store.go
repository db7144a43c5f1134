package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
)

var _ repository.RoomRepository = (*RoomStore)(nil)

type roleKey struct {
	roomID string
	userID uuid.UUID
}

type permKey struct {
	roomID string
	role   models.Role
}

// RoomStore - RoomRepository в памяти для тестов usecase и HTTP-слоя,
// повторяет семантику SQL-реализации. В сервере не используется.
type RoomStore struct {
	mu sync.RWMutex

	rooms         map[string]models.Room
	roles         map[roleKey]models.Role
	permissions   map[permKey]models.Permissions
	customization map[string]models.Customization

	// creates считает успешные вставки комнат
	creates int
	failErr error
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:         make(map[string]models.Room),
		roles:         make(map[roleKey]models.Role),
		permissions:   make(map[permKey]models.Permissions),
		customization: make(map[string]models.Customization),
	}
}

// Fail заставляет все операции возвращать err; nil возвращает нормальную работу
func (s *RoomStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failErr = err
}

// Creates возвращает количество реально созданных комнат
func (s *RoomStore) Creates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.creates
}

func (s *RoomStore) FindRoom(_ context.Context, id string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return nil, s.failErr
	}

	room, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room: %w", errs.ErrNotFound)
	}

	return copyRoom(room), nil
}

func (s *RoomStore) CreateRoomIfAbsent(_ context.Context, room *models.Room) (*models.Room, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return nil, false, s.failErr
	}

	if existing, ok := s.rooms[room.ID]; ok {
		return copyRoom(existing), false, nil
	}

	stored := *copyRoom(*room)
	s.rooms[room.ID] = stored
	s.creates++

	for _, role := range models.Roles {
		s.permissions[permKey{room.ID, role}] = models.DefaultPermissions(role)
	}
	s.customization[room.ID] = models.DefaultCustomization()

	return copyRoom(stored), true, nil
}

func (s *RoomStore) UpdateSecurity(_ context.Context, id string, patch models.SecurityPatch) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return nil, s.failErr
	}

	room, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room: %w", errs.ErrNotFound)
	}

	updated := patch.Apply(room)
	updated.UpdatedAt = time.Now().UTC()
	s.rooms[id] = updated

	return copyRoom(updated), nil
}

func (s *RoomStore) ListRooms(_ context.Context) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return nil, s.failErr
	}

	rooms := make([]models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, *copyRoom(r))
	}

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

	return rooms, nil
}

func (s *RoomStore) GetRole(_ context.Context, roomID string, userID uuid.UUID) (models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return "", s.failErr
	}

	role, ok := s.roles[roleKey{roomID, userID}]
	if !ok {
		return "", fmt.Errorf("role: %w", errs.ErrNotFound)
	}

	return role, nil
}

func (s *RoomStore) SetRole(_ context.Context, roomID string, userID uuid.UUID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return s.failErr
	}

	if _, ok := s.rooms[roomID]; !ok {
		return fmt.Errorf("room: %w", errs.ErrNotFound)
	}

	s.roles[roleKey{roomID, userID}] = role

	return nil
}

func (s *RoomStore) DeleteRole(_ context.Context, roomID string, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return s.failErr
	}

	key := roleKey{roomID, userID}
	if _, ok := s.roles[key]; !ok {
		return fmt.Errorf("delete role: %w", errs.ErrNotFound)
	}

	delete(s.roles, key)

	return nil
}

func (s *RoomStore) GetPermissions(_ context.Context, roomID string, role models.Role) (models.Permissions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return models.Permissions{}, s.failErr
	}

	p, ok := s.permissions[permKey{roomID, role}]
	if !ok {
		return models.Permissions{}, fmt.Errorf("permissions: %w", errs.ErrNotFound)
	}

	return p, nil
}

func (s *RoomStore) SetPermissions(
	_ context.Context,
	roomID string,
	role models.Role,
	patch models.PermissionsPatch,
) (models.Permissions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return models.Permissions{}, s.failErr
	}

	key := permKey{roomID, role}

	current, ok := s.permissions[key]
	if !ok {
		return models.Permissions{}, fmt.Errorf("permissions: %w", errs.ErrNotFound)
	}

	updated := patch.Apply(current)
	s.permissions[key] = updated

	return updated, nil
}

func (s *RoomStore) GetCustomization(_ context.Context, roomID string) (models.Customization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return models.Customization{}, s.failErr
	}

	c, ok := s.customization[roomID]
	if !ok {
		return models.Customization{}, fmt.Errorf("customization: %w", errs.ErrNotFound)
	}

	return c, nil
}

func (s *RoomStore) SetCustomization(
	_ context.Context,
	roomID string,
	patch models.CustomizationPatch,
) (models.Customization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return models.Customization{}, s.failErr
	}

	current, ok := s.customization[roomID]
	if !ok {
		return models.Customization{}, fmt.Errorf("customization: %w", errs.ErrNotFound)
	}

	updated := patch.Apply(current)
	s.customization[roomID] = updated

	return updated, nil
}

func (s *RoomStore) VerifyPassword(ctx context.Context, roomID, plaintext string) (bool, error) {
	room, err := s.FindRoom(ctx, roomID)
	if err != nil {
		return false, err
	}

	if !room.HasPassword() || plaintext == "" {
		return false, nil
	}

	return bcrypt.CompareHashAndPassword([]byte(*room.PasswordHash), []byte(plaintext)) == nil, nil
}

func copyRoom(r models.Room) *models.Room {
	if r.PasswordHash != nil {
		hash := *r.PasswordHash
		r.PasswordHash = &hash
	}
	if r.OwnerID != nil {
		owner := *r.OwnerID
		r.OwnerID = &owner
	}

	return &r
}
