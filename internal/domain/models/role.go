package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRole = errors.New("invalid role")

type Role string

const (
	RoleOwner     Role = "owner"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// Roles перечисляет все роли в порядке убывания привилегий
var Roles = []Role{RoleOwner, RoleModerator, RoleMember}

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleModerator, RoleMember:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}

	return r, nil
}
