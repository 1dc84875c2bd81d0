package ports

import (
	"context"

	"github.com/taskhub/task-api/internal/core/domain"
)

// AuthService orchestrates registration and login against the user store.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}
