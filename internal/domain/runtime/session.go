package runtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
)

// Conn - аутентифицированное соединение клиента
type Conn struct {
	ID   string
	User models.Identity
}

// Session - запись участника в живом составе комнаты
type Session struct {
	ConnID   string
	UserID   uuid.UUID
	UserName string
	RoomID   string
	Role     models.Role
	JoinedAt time.Time
}

func (s Session) View() events.UserView {
	return events.UserView{
		UserID:   s.UserID,
		UserName: s.UserName,
		Role:     s.Role,
		ConnID:   s.ConnID,
		JoinedAt: s.JoinedAt,
	}
}

// BroadcasterSlot - текущий транслятор комнаты
type BroadcasterSlot struct {
	UserID   uuid.UUID
	UserName string
	ConnID   string
	Kind     models.MediaKind
	Since    time.Time
}
