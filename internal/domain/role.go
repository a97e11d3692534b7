package domain

import (
	"database/sql"
	"fmt"
	"time"
)

// Role is the closed set of application roles. A user holds exactly one role
// at a time.
type Role string

const (
	RoleNone  Role = "None"
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole validates a role token.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleNone, RoleUser, RoleAdmin:
		return Role(s), nil
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

// NextRole is the single role-transition function: any current role moves to
// the requested role; requesting the held role is a no-op.
func NextRole(current, requested Role) Role {
	if requested == current {
		return current
	}
	return requested
}

// AppUser is an account that can take custody of records
// (corresponds to the app_users table).
type AppUser struct {
	ID        string    `db:"user_id"` // UUID, PRIMARY KEY
	Email     string    `db:"email"`   // NOT NULL, UNIQUE
	Role      Role      `db:"role"`    // NOT NULL, default 'None'
	CreatedOn time.Time `db:"created_on"`

	// Filled by list queries only, not stored.
	CheckedOutCount sql.NullInt64 `db:"checked_out_count"`
}

// ToJSON converts the user to the HTTP response shape.
func (u *AppUser) ToJSON() map[string]any {
	m := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"role":       string(u.Role),
		"created_on": u.CreatedOn.Format(time.RFC3339),
	}
	if u.CheckedOutCount.Valid {
		m["checked_out_count"] = u.CheckedOutCount.Int64
	}
	return m
}
