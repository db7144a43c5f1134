package models

import (
	"errors"
	"fmt"
)

var ErrUnknownAction = errors.New("unknown action")

// Action - действие в комнате, требующее разрешения
type Action string

const (
	ActionBroadcast      Action = "can_broadcast"
	ActionKickUsers      Action = "can_kick_users"
	ActionDeleteMessages Action = "can_delete_messages"
	ActionInviteUsers    Action = "can_invite_users"
	ActionManageRoom     Action = "can_manage_room"
)

func ParseAction(s string) (Action, error) {
	a := Action(s)
	switch a {
	case ActionBroadcast, ActionKickUsers, ActionDeleteMessages, ActionInviteUsers, ActionManageRoom:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Permissions - набор разрешений роли в конкретной комнате
type Permissions struct {
	CanBroadcast      bool `json:"can_broadcast" db:"can_broadcast" yaml:"can_broadcast"`
	CanKickUsers      bool `json:"can_kick_users" db:"can_kick_users" yaml:"can_kick_users"`
	CanDeleteMessages bool `json:"can_delete_messages" db:"can_delete_messages" yaml:"can_delete_messages"`
	CanInviteUsers    bool `json:"can_invite_users" db:"can_invite_users" yaml:"can_invite_users"`
	CanManageRoom     bool `json:"can_manage_room" db:"can_manage_room" yaml:"can_manage_room"`
}

func (p Permissions) Allows(a Action) bool {
	switch a {
	case ActionBroadcast:
		return p.CanBroadcast
	case ActionKickUsers:
		return p.CanKickUsers
	case ActionDeleteMessages:
		return p.CanDeleteMessages
	case ActionInviteUsers:
		return p.CanInviteUsers
	case ActionManageRoom:
		return p.CanManageRoom
	default:
		return false
	}
}

// DefaultPermissions возвращает разрешения роли для новой комнаты
func DefaultPermissions(r Role) Permissions {
	switch r {
	case RoleOwner:
		return Permissions{
			CanBroadcast:      true,
			CanKickUsers:      true,
			CanDeleteMessages: true,
			CanInviteUsers:    true,
			CanManageRoom:     true,
		}
	case RoleModerator:
		return Permissions{
			CanBroadcast:      true,
			CanKickUsers:      true,
			CanDeleteMessages: true,
			CanInviteUsers:    true,
		}
	case RoleMember:
		return Permissions{
			CanBroadcast:   true,
			CanInviteUsers: true,
		}
	default:
		return Permissions{}
	}
}

// PermissionsPatch - частичное обновление; nil поля не меняются
type PermissionsPatch struct {
	CanBroadcast      *bool `json:"can_broadcast,omitempty" yaml:"can_broadcast,omitempty"`
	CanKickUsers      *bool `json:"can_kick_users,omitempty" yaml:"can_kick_users,omitempty"`
	CanDeleteMessages *bool `json:"can_delete_messages,omitempty" yaml:"can_delete_messages,omitempty"`
	CanInviteUsers    *bool `json:"can_invite_users,omitempty" yaml:"can_invite_users,omitempty"`
	CanManageRoom     *bool `json:"can_manage_room,omitempty" yaml:"can_manage_room,omitempty"`
}

func (p PermissionsPatch) Apply(to Permissions) Permissions {
	if p.CanBroadcast != nil {
		to.CanBroadcast = *p.CanBroadcast
	}
	if p.CanKickUsers != nil {
		to.CanKickUsers = *p.CanKickUsers
	}
	if p.CanDeleteMessages != nil {
		to.CanDeleteMessages = *p.CanDeleteMessages
	}
	if p.CanInviteUsers != nil {
		to.CanInviteUsers = *p.CanInviteUsers
	}
	if p.CanManageRoom != nil {
		to.CanManageRoom = *p.CanManageRoom
	}

	return to
}

func (p PermissionsPatch) Empty() bool {
	return p.CanBroadcast == nil &&
		p.CanKickUsers == nil &&
		p.CanDeleteMessages == nil &&
		p.CanInviteUsers == nil &&
		p.CanManageRoom == nil
}
