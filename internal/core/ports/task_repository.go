package ports

import (
	"context"

	"github.com/taskhub/task-api/internal/core/domain"
)

// ListTasksFilter carries all query parameters for listing tasks.
// OwnerID is always enforced by the service layer for non-admin callers.
type ListTasksFilter struct {
	OwnerID string // empty = no filter (admin); non-empty = scoped to owner
	Status  string // optional: filter by task status
	Search  string // optional: partial match on title
	Page    int    // 1-based
	Limit   int    // max rows per page (capped at 100 by service)
}

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) (*domain.Task, error)
	// FindByID retrieves a task by id. When ownerID is non-empty, the query is
	// additionally filtered by owner_id, so foreign tasks are indistinguishable
	// from missing ones.
	FindByID(ctx context.Context, id string, ownerID string) (*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id string, ownerID string) error
	// List returns a page of tasks matching filter and the total count.
	List(ctx context.Context, filter ListTasksFilter) ([]*domain.Task, int64, error)
}
