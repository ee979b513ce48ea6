package model

import (
	"time"
)

const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

type User struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    *string    `db:"password_hash" json:"-"` // Nullable for OAuth users
	Role            string     `db:"role" json:"role"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"emailVerifiedAt"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
