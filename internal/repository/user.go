package repository

import (
	"context"

	"room-designer/internal/domain"
)

// UserRepository stores accounts.
type UserRepository interface {
	// FindByEmail returns ErrUserNotFound when no account uses the email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByID returns ErrUserNotFound when the id is unknown.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save creates or updates the user. A taken email yields ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
