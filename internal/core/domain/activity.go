package domain

import "time"

// ActivityRecord is a single audit entry describing a mutation on a task.
type ActivityRecord struct {
	TaskID    string    `json:"task_id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
