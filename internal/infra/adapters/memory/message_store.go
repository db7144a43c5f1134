package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
)

var _ repository.MessageRepository = (*MessageStore)(nil)

// MessageStore - MessageRepository в памяти, тестовая замена SQL-хранилища
type MessageStore struct {
	mu     sync.RWMutex
	nextID int64
	byRoom map[string][]models.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{byRoom: make(map[string][]models.Message)}
}

func (s *MessageStore) AppendMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg.ID = s.nextID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	s.byRoom[msg.RoomID] = append(s.byRoom[msg.RoomID], *msg)

	return nil
}

func (s *MessageStore) RecentMessages(_ context.Context, roomID string, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byRoom[roomID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}

	out := make([]models.Message, len(all))
	copy(out, all)

	return out, nil
}

func (s *MessageStore) CountMessages(_ context.Context, roomID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byRoom[roomID]), nil
}
