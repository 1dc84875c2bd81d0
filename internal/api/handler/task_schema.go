package handler

import (
	"time"

	"github.com/taskhub/task-api/internal/core/domain"
)

// --- Request types ---

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"omitempty,max=2000"`
	Status      string     `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	DueDate     *time.Time `json:"due_date"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Status      *string    `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	DueDate     *time.Time `json:"due_date"`
}

type listTasksQuery struct {
	Status  string `query:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Search  string `query:"search" validate:"omitempty,max=200"`
	OwnerID string `query:"owner_id"`
	Page    int    `query:"page" validate:"omitempty,min=1"`
	Limit   int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// --- Response types ---

type paginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type listTasksResponse struct {
	Data       []*domain.Task     `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

type activityResponse struct {
	Data []*domain.ActivityRecord `json:"data"`
}
