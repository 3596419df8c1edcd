// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
	"time"
)

const (
	MaxUserIDLen = 64
)

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
	ErrUnknownRole   = errors.New("unknown role")
)

type UserID string

type Role string

const (
	RoleRecruiter Role = "recruiter"
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
)

// Identity is what a verified credential resolves to. It is attached at
// handshake time and trusted for the lifetime of the connection.
type Identity struct {
	UserID          UserID
	Role            Role
	AuthenticatedAt time.Time
}

func NewIdentity(userID string, role string, at time.Time) (Identity, error) {
	if userID == "" {
		return Identity{}, ErrUserIDEmpty
	}
	if len(userID) > MaxUserIDLen {
		return Identity{}, ErrUserIDTooLong
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: UserID(userID), Role: parsed, AuthenticatedAt: at}, nil
}

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleRecruiter, RoleCandidate, RoleAdmin:
		return Role(raw), nil
	default:
		return "", ErrUnknownRole
	}
}
