package repository

import (
	authdomain "mailboard-backend/internal/auth/domain"
)

// UserRepository defines persistence operations for users. Lookups
// return (nil, nil) when no row matches.
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByID(id string) (*authdomain.User, error)
	FindByEmail(email string) (*authdomain.User, error)
	FindAll() ([]*authdomain.User, error)
	Update(user *authdomain.User) error
}
