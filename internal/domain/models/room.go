package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Description     string     `json:"description" db:"description"`
	IsPrivate       bool       `json:"is_private" db:"is_private"`
	PasswordHash    *string    `json:"-" db:"password_hash"`
	MaxParticipants int        `json:"max_participants" db:"max_participants"`
	OwnerID         *uuid.UUID `json:"owner_id" db:"owner_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// NewAutoRoom - комната, создаваемая при первом входе по неизвестному id
func NewAutoRoom(id string, ownerID uuid.UUID, maxParticipants int) *Room {
	now := time.Now().UTC()

	return &Room{
		ID:              id,
		Name:            fmt.Sprintf("Room %s", id),
		Description:     "Auto-created room",
		MaxParticipants: maxParticipants,
		OwnerID:         &ownerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CreatedBy сообщает, является ли пользователь создателем комнаты
func (r *Room) CreatedBy(userID uuid.UUID) bool {
	return r.OwnerID != nil && *r.OwnerID == userID
}

func (r *Room) HasPassword() bool {
	return r.PasswordHash != nil && *r.PasswordHash != ""
}

// SecurityPatch - изменение приватности, пароля и вместимости комнаты.
// Password хранится уже в виде bcrypt-хеша; пустая строка снимает пароль.
type SecurityPatch struct {
	IsPrivate       *bool
	PasswordHash    *string
	MaxParticipants *int
}

func (p SecurityPatch) Apply(to Room) Room {
	if p.IsPrivate != nil {
		to.IsPrivate = *p.IsPrivate
	}
	if p.PasswordHash != nil {
		if *p.PasswordHash == "" {
			to.PasswordHash = nil
		} else {
			hash := *p.PasswordHash
			to.PasswordHash = &hash
		}
	}
	if p.MaxParticipants != nil {
		to.MaxParticipants = *p.MaxParticipants
	}

	return to
}

// MediaKind - тип транслируемого медиа
type MediaKind string

const (
	MediaCamera MediaKind = "camera"
	MediaScreen MediaKind = "screen"
)

func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(s) {
	case "", MediaCamera:
		return MediaCamera, nil
	case MediaScreen:
		return MediaScreen, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}
