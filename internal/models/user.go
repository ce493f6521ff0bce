package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "Admin"
	RolePimpinan UserRole = "Pimpinan"
	RoleStaf     UserRole = "Staf"
	RoleNasabah  UserRole = "Nasabah"
)

// StaffRoles authenticate by username.
var StaffRoles = []UserRole{RoleAdmin, RolePimpinan, RoleStaf}

// AllRoles lists every role known to the portal.
var AllRoles = []UserRole{RoleAdmin, RolePimpinan, RoleStaf, RoleNasabah}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to the internal staff family.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RolePimpinan || r == RoleStaf
}

// User represents an account stored in the users table. Password hash and
// the current refresh token never leave the server.
type User struct {
	ID           string    `db:"id" json:"id"`
	NIK          *string   `db:"nik" json:"nik,omitempty"`
	Name         string    `db:"name" json:"name"`
	Username     *string   `db:"username" json:"username,omitempty"`
	Email        *string   `db:"email" json:"email,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Role         UserRole  `db:"role" json:"role"`
	RefreshToken *string   `db:"refresh_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// DisplayName returns the name recorded in activity logs.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Username != nil {
		return *u.Username
	}
	return ""
}

// StringPtr returns nil for empty strings so optional unique columns stay NULL.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences an optional column.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
