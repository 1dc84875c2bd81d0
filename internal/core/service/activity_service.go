package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-api/internal/api/metrics"
	"github.com/taskhub/task-api/internal/core/domain"
	"github.com/taskhub/task-api/internal/core/ports"
)

type activityService struct {
	repo ports.ActivityRepository
	log  zerolog.Logger
}

// NewActivityService returns an ActivityService persisting to the given
// repository.
func NewActivityService(repo ports.ActivityRepository, log zerolog.Logger) ports.ActivityService {
	return &activityService{repo: repo, log: log}
}

// Record persists a single activity entry.
func (s *activityService) Record(ctx context.Context, in ports.ActivityInput) error {
	rec := &domain.ActivityRecord{
		TaskID:    in.TaskID,
		ActorID:   in.ActorID,
		Action:    in.Action,
		Detail:    in.Detail,
		Timestamp: in.Timestamp,
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		metrics.ActivityErrorsTotal.WithLabelValues("insert_failed").Inc()
		return fmt.Errorf("record activity: %w", err)
	}

	metrics.ActivityRecordsTotal.WithLabelValues(in.Action).Inc()
	s.log.Debug().
		Str("task_id", in.TaskID).
		Str("action", in.Action).
		Msg("activity recorded")
	return nil
}
