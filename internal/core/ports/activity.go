package ports

import (
	"context"
	"time"

	"github.com/taskhub/task-api/internal/core/domain"
)

// ActivityInput is the DTO handed from the service layer to the recorder.
type ActivityInput struct {
	TaskID    string
	ActorID   string
	Action    string
	Detail    string
	Timestamp time.Time
}

// ActivityService persists a single activity record.
type ActivityService interface {
	Record(ctx context.Context, in ActivityInput) error
}

// ActivityRepository handles activity trail persistence.
type ActivityRepository interface {
	Insert(ctx context.Context, rec *domain.ActivityRecord) error
	ListByTask(ctx context.Context, taskID string) ([]*domain.ActivityRecord, error)
}
