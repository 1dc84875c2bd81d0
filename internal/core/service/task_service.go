package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-api/internal/api/metrics"
	"github.com/taskhub/task-api/internal/core/domain"
	"github.com/taskhub/task-api/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ActivityDispatcher is the interface the task service uses to enqueue
// activity records for asynchronous persistence.
type ActivityDispatcher interface {
	Enqueue(in ports.ActivityInput)
}

// TaskService implements ownership-scoped task CRUD.
type TaskService struct {
	repo       ports.TaskRepository
	dispatcher ActivityDispatcher
	log        zerolog.Logger
}

// NewTaskService wires the task repository and the activity dispatcher
// (nil disables activity recording).
func NewTaskService(repo ports.TaskRepository, dispatcher ActivityDispatcher, log zerolog.Logger) *TaskService {
	return &TaskService{repo: repo, dispatcher: dispatcher, log: log}
}

// scope returns the owner filter for the actor: admins see everything.
func scope(actor ports.Actor) string {
	if actor.IsAdmin() {
		return ""
	}
	return actor.UserID
}

func (s *TaskService) Create(ctx context.Context, actor ports.Actor, in ports.CreateTaskInput) (*domain.Task, error) {
	status := domain.TaskStatus(in.Status)
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, in.Status)
	}

	now := time.Now().UTC()
	task := &domain.Task{
		OwnerID:     actor.UserID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create task")
		return nil, err
	}

	metrics.TasksCreatedTotal.WithLabelValues(string(created.Status)).Inc()
	s.record(created.ID, actor.UserID, "created", "")
	s.log.Info().Str("task_id", created.ID).Str("owner_id", actor.UserID).Msg("task created")
	return created, nil
}

func (s *TaskService) Get(ctx context.Context, actor ports.Actor, id string) (*domain.Task, error) {
	return s.repo.FindByID(ctx, id, scope(actor))
}

func (s *TaskService) Update(ctx context.Context, actor ports.Actor, id string, in ports.UpdateTaskInput) (*domain.Task, error) {
	task, err := s.repo.FindByID(ctx, id, scope(actor))
	if err != nil {
		return nil, err
	}

	var detail string
	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.Status != nil {
		status := domain.TaskStatus(*in.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *in.Status)
		}
		if status != task.Status {
			detail = fmt.Sprintf("status %s -> %s", task.Status, status)
		}
		task.Status = status
	}
	task.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, task); err != nil {
		s.log.Error().Err(err).Str("task_id", id).Msg("failed to update task")
		return nil, err
	}

	s.record(task.ID, actor.UserID, "updated", detail)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, actor ports.Actor, id string) error {
	if err := s.repo.Delete(ctx, id, scope(actor)); err != nil {
		return err
	}
	s.record(id, actor.UserID, "deleted", "")
	s.log.Info().Str("task_id", id).Str("actor_id", actor.UserID).Msg("task deleted")
	return nil
}

func (s *TaskService) List(ctx context.Context, actor ports.Actor, in ports.ListTasksInput) (*ports.TaskPage, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	ownerID := scope(actor)
	if actor.IsAdmin() && in.OwnerID != "" {
		ownerID = in.OwnerID
	}

	tasks, total, err := s.repo.List(ctx, ports.ListTasksFilter{
		OwnerID: ownerID,
		Status:  in.Status,
		Search:  in.Search,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.TaskPage{
		Tasks:      tasks,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (s *TaskService) record(taskID, actorID, action, detail string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Enqueue(ports.ActivityInput{
		TaskID:    taskID,
		ActorID:   actorID,
		Action:    action,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}
