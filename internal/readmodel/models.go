package readmodel

import (
	"errors"
	"time"
)

const RoleAdmin = "admin"

var ErrUserNotFound = errors.New("user not found")

// UserReadModel is a row of the users table. Role is "admin" for shop
// administrators; any other value is an ordinary account.
type UserReadModel struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never expose in JSON
	Name         string    `json:"name" db:"name"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (u UserReadModel) IsAdmin() bool {
	return u.Role == RoleAdmin
}
