package repository

import "github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"

// UserRepository defines the interface for user-related database operations.
// Lookups return (nil, nil) when no row matches, letting the services
// attach the proper error kind.
type UserRepository interface {
	Create(u *entity.User) error
	GetByID(id string) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetByConfirmationCode(code string) (*entity.User, error)
	GetByResetToken(tokenHash string) (*entity.User, error)
	Update(u *entity.User) error
	Delete(id string) error
}
