package task

import (
	"encoding/json"
	"errors"
	"time"

	domain "github.com/Aftab-Fury/Task-Manager/domain/task"
	"github.com/Aftab-Fury/Task-Manager/domain/user"
)

// TaskInput carries the writable fields of a task. Nil fields are left
// unchanged on partial updates.
type TaskInput struct {
	Name          *string         `json:"name,omitempty"`
	Description   *string         `json:"description,omitempty"`
	TaskType      *string         `json:"task_type,omitempty"`
	Status        *string         `json:"status,omitempty"`
	AssignedToIDs json.RawMessage `json:"assigned_to_ids,omitempty"`
}

// Filter selects tasks by exact status and type. Empty fields match all.
type Filter struct {
	Status   string `json:"status,omitempty"`
	TaskType string `json:"task_type,omitempty"`
}

// TaskView is the representation of a task returned to callers.
type TaskView struct {
	ID              uint           `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	TaskType        domain.Type    `json:"task_type"`
	Status          domain.Status  `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at"`
	IsCompleted     bool           `json:"is_completed"`
	DurationSeconds *float64       `json:"duration_seconds"`
	CreatedBy       user.Profile   `json:"created_by"`
	AssignedTo      []user.Profile `json:"assigned_to"`
}

// ServiceError is the wire form of a classified failure.
type ServiceError struct {
	Code    domain.Code     `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// toServiceError converts err into its wire form. Unclassified errors are
// reported as a generic server_error.
func toServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var e *domain.Error
	if !errors.As(err, &e) || e.Code == domain.CodeInternal {
		return &ServiceError{Code: domain.CodeInternal, Message: domain.ErrInternal.Message}
	}
	se := &ServiceError{Code: e.Code, Message: e.Message}
	if e.Details != nil {
		if raw, mErr := json.Marshal(e.Details); mErr == nil {
			se.Details = raw
		}
	}
	return se
}

// Err converts the wire form back into a *domain.Error.
func (e *ServiceError) Err() error {
	if e == nil {
		return nil
	}
	de := &domain.Error{Code: e.Code, Message: e.Message}
	if len(e.Details) > 0 {
		de.Details = e.Details
	}
	return de
}

// CreateTaskRequest asks for a new task owned by ActorID.
type CreateTaskRequest struct {
	ActorID uint      `json:"actor_id"`
	Input   TaskInput `json:"input"`
}

// GetTaskRequest addresses one task.
type GetTaskRequest struct {
	ActorID uint `json:"actor_id"`
	TaskID  uint `json:"task_id"`
}

// ListTasksRequest lists tasks matching Filter.
type ListTasksRequest struct {
	ActorID uint   `json:"actor_id"`
	Filter  Filter `json:"filter"`
}

// UpdateTaskRequest replaces (Partial=false) or patches a task.
type UpdateTaskRequest struct {
	ActorID uint      `json:"actor_id"`
	TaskID  uint      `json:"task_id"`
	Input   TaskInput `json:"input"`
	Partial bool      `json:"partial"`
}

// AssignTaskRequest replaces the assignees of a task.
type AssignTaskRequest struct {
	ActorID uint            `json:"actor_id"`
	TaskID  uint            `json:"task_id"`
	UserIDs json.RawMessage `json:"user_ids,omitempty"`
}

// UserTasksRequest lists the tasks assigned to a user given by id or
// username.
type UserTasksRequest struct {
	ActorID uint   `json:"actor_id"`
	UserRef string `json:"user_ref"`
}

// TaskResponse carries a single task or an error.
type TaskResponse struct {
	Task  *TaskView     `json:"task,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

// TaskListResponse carries a list of tasks or an error.
type TaskListResponse struct {
	Tasks []TaskView    `json:"tasks"`
	Error *ServiceError `json:"error,omitempty"`
}

// AssignmentsResponse carries the assignees of a task or an error.
type AssignmentsResponse struct {
	Users []user.Profile `json:"users"`
	Error *ServiceError  `json:"error,omitempty"`
}

// DeleteTaskResponse reports the outcome of a delete.
type DeleteTaskResponse struct {
	Error *ServiceError `json:"error,omitempty"`
}
