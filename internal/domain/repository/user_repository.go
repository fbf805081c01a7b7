package repository

import (
	"context"

	"github.com/oksasatya/go-notes-api/internal/domain/entity"
)

// UserRepository is the credential store.
type UserRepository interface {
	// Create inserts u and fills ID and CreatedAt. Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
