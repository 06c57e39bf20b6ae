package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role enumerates the two account roles. The set is closed: every switch on
// Role must handle both values and deny anything else.
type Role string

const (
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

// Roles lists every valid role.
var Roles = []Role{RoleManager, RoleEmployee}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleEmployee:
		return true
	default:
		return false
	}
}

// ParseRole converts a raw string into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Identity is the subset of a user carried by a session token.
type Identity struct {
	SubjectID   string
	Role        Role
	DisplayName string
}

// SessionToken is a signed session token together with its validity window.
type SessionToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
