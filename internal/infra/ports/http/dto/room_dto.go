package dto

import (
	"github.com/pion/webrtc/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
)

type CreateRoomRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	IsPrivate       bool   `json:"isPrivate"`
	Password        string `json:"password"`
	MaxParticipants int    `json:"maxParticipants"`
}

// UpdateSecurityRequest - все поля необязательны; пустой password снимает пароль
type UpdateSecurityRequest struct {
	IsPrivate       *bool                                   `json:"isPrivate,omitempty"`
	Password        *string                                 `json:"password,omitempty"`
	MaxParticipants *int                                    `json:"maxParticipants,omitempty"`
	Permissions     map[models.Role]models.PermissionsPatch `json:"permissions,omitempty"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type RoomResponse struct {
	Room *models.Room `json:"room"`
}

type CustomizationResponse struct {
	Customization models.Customization `json:"customization"`
}

type IceServersResponse struct {
	IceServers []webrtc.ICEServer `json:"iceServers"`
}
