package ports

import (
	"context"

	"github.com/taskhub/task-api/internal/core/domain"
)

// UserRepository defines the persistence interface for identities.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}
