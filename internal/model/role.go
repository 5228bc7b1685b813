package model

import (
    "fmt"
    "strings"
)

// Role is the authorization scope of a profile.  The set is closed: every
// value outside the four constants below is rejected by ParseRole, and the
// authorization boundary switches over it exhaustively.
type Role string

const (
    RoleAdmin    Role = "admin"
    RoleHeadUser Role = "headuser"
    RoleGuard    Role = "guard"
    RoleUser     Role = "user"
)

// AllRoles lists every role in privilege order.
var AllRoles = []Role{RoleAdmin, RoleHeadUser, RoleGuard, RoleUser}

// ParseRole normalizes s and returns the matching role.
func ParseRole(s string) (Role, error) {
    switch Role(strings.ToLower(strings.TrimSpace(s))) {
    case RoleAdmin:
        return RoleAdmin, nil
    case RoleHeadUser:
        return RoleHeadUser, nil
    case RoleGuard:
        return RoleGuard, nil
    case RoleUser:
        return RoleUser, nil
    }
    return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
    _, err := ParseRole(string(r))
    return err == nil
}

// CanManageOrders reports whether the role may list and edit every order.
func (r Role) CanManageOrders() bool {
    switch r {
    case RoleAdmin, RoleHeadUser:
        return true
    case RoleGuard, RoleUser:
        return false
    }
    return false
}

func (r Role) String() string { return string(r) }
