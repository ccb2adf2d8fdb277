package domain

import (
	"context"
	"time"
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username" gorm:"uniqueIndex;notNull"`
	Email    string `json:"email" gorm:"uniqueIndex;notNull"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`

	// Password is only ever populated on incoming register / login data.
	// PasswordHash is what actually gets stored.
	Password     string `json:"-" gorm:"-"`
	PasswordHash string `json:"-" gorm:"notNull"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserService interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
	ByID(ctx context.Context, id int) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
}
