package models

import "time"

// User is a stored account. Password always holds a bcrypt hash.
type User struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(30);not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	FirstName string    `json:"firstName" gorm:"type:varchar(100)"`
	LastName  string    `json:"lastName" gorm:"type:varchar(100)"`
	Roles     []Role    `json:"roles" gorm:"many2many:users_roles;"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName keeps the table off the reserved postgres word "user".
func (User) TableName() string {
	return "user_account"
}

// RoleNames returns the names of the roles assigned to the user.
func (u User) RoleNames() []RoleKind {
	names := make([]RoleKind, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// UserCreate carries the fields of a new account. Password is plaintext.
type UserCreate struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Roles     []RoleKind
}

// UserUpdate is a sparse change set. A nil field means "leave unchanged";
// Roles distinguishes nil (absent) from an empty slice (clear all roles).
type UserUpdate struct {
	Username  *string
	Password  *string
	FirstName *string
	LastName  *string
	Roles     []RoleKind
}
