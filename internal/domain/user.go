package domain

import "time"

// User is the credential store record for a TaskFlow account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the user onto the claims a session token carries.
func (u *User) Identity() Identity {
	return Identity{SubjectID: u.ID, Role: u.Role, DisplayName: u.Name}
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Name     *string
	Email    *string
	Role     *Role
	IsActive *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil && p.IsActive == nil
}

// Apply copies the present fields onto u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}
