package input

import (
	"github.com/google/uuid"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
)

type CreateRoomInput struct {
	ID              string
	Name            string
	Description     string
	IsPrivate       bool
	Password        string
	MaxParticipants int
	OwnerID         *uuid.UUID
}

// UpdateSecurityInput - пароль передается открытым текстом и хешируется в usecase.
// Пустая строка в Password снимает пароль.
type UpdateSecurityInput struct {
	IsPrivate       *bool
	Password        *string
	MaxParticipants *int
	Permissions     map[models.Role]models.PermissionsPatch
}

// RoomDefinition - комната в YAML-файле для импорта и экспорта
type RoomDefinition struct {
	ID              string                                  `yaml:"id"`
	Name            string                                  `yaml:"name,omitempty"`
	Description     string                                  `yaml:"description,omitempty"`
	Private         bool                                    `yaml:"private,omitempty"`
	Password        string                                  `yaml:"password,omitempty"`
	MaxParticipants int                                     `yaml:"max_participants,omitempty"`
	OwnerEmail      string                                  `yaml:"owner_email,omitempty"`
	Customization   *models.CustomizationPatch              `yaml:"customization,omitempty"`
	Permissions     map[models.Role]models.PermissionsPatch `yaml:"permissions,omitempty"`
}
