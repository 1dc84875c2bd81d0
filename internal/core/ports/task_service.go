package ports

import (
	"context"
	"time"

	"github.com/taskhub/task-api/internal/core/domain"
)

// Actor identifies the authenticated caller of a task operation.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// CreateTaskInput carries all data needed to create a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	DueDate     *time.Time
}

// UpdateTaskInput carries the mutable fields of a task. Nil pointers leave
// the current value untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	DueDate     *time.Time
}

// ListTasksInput carries pagination and filtering options for List.
type ListTasksInput struct {
	Status  string
	Search  string
	OwnerID string // admin only; ignored for regular users
	Page    int
	Limit   int
}

// TaskPage is one page of results plus pagination metadata.
type TaskPage struct {
	Tasks      []*domain.Task
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// TaskService implements ownership-scoped task CRUD.
type TaskService interface {
	Create(ctx context.Context, actor Actor, in CreateTaskInput) (*domain.Task, error)
	Get(ctx context.Context, actor Actor, id string) (*domain.Task, error)
	Update(ctx context.Context, actor Actor, id string, in UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, actor Actor, id string) error
	List(ctx context.Context, actor Actor, in ListTasksInput) (*TaskPage, error)
}
