package model

import (
	"fmt"
	"strings"
)

// Role is the caller's marketplace role, parsed once at the auth boundary.
// Services compare against these constants only and never against raw strings.
type Role string

const (
	RoleStudent Role = "student"
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

func (r Role) String() string {
	return string(r)
}
