package task

import (
	"context"

	domain "github.com/Aftab-Fury/Task-Manager/domain/task"
	"github.com/go-monolith/mono"
)

// Handlers report failures in the response body so the error classification
// reaches the caller intact.

func (m *TaskModule) handleCreate(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	v, err := m.service.Create(ctx, req.ActorID, req.Input)
	return TaskResponse{Task: v, Error: m.serviceError(ServiceCreateTask, err)}, nil
}

func (m *TaskModule) handleGet(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	v, err := m.service.Get(ctx, req.ActorID, req.TaskID)
	return TaskResponse{Task: v, Error: m.serviceError(ServiceGetTask, err)}, nil
}

func (m *TaskModule) handleList(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.service.List(ctx, req.ActorID, req.Filter)
	return TaskListResponse{Tasks: tasks, Error: m.serviceError(ServiceListTasks, err)}, nil
}

func (m *TaskModule) handleUpdate(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	v, err := m.service.Update(ctx, req.ActorID, req.TaskID, req.Input, req.Partial)
	return TaskResponse{Task: v, Error: m.serviceError(ServiceUpdateTask, err)}, nil
}

func (m *TaskModule) handleDelete(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	err := m.service.Delete(ctx, req.ActorID, req.TaskID)
	return DeleteTaskResponse{Error: m.serviceError(ServiceDeleteTask, err)}, nil
}

func (m *TaskModule) handleAssign(ctx context.Context, req AssignTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	v, err := m.service.Assign(ctx, req.ActorID, req.TaskID, req.UserIDs)
	return TaskResponse{Task: v, Error: m.serviceError(ServiceAssignTask, err)}, nil
}

func (m *TaskModule) handleAssignments(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (AssignmentsResponse, error) {
	users, err := m.service.Assignments(ctx, req.ActorID, req.TaskID)
	return AssignmentsResponse{Users: users, Error: m.serviceError(ServiceTaskAssignments, err)}, nil
}

func (m *TaskModule) handleUserTasks(ctx context.Context, req UserTasksRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.service.ListForUserRef(ctx, req.ActorID, req.UserRef)
	return TaskListResponse{Tasks: tasks, Error: m.serviceError(ServiceUserTasks, err)}, nil
}

// serviceError converts err for the wire and logs the failures that are
// hidden behind a generic server_error.
func (m *TaskModule) serviceError(service string, err error) *ServiceError {
	se := toServiceError(err)
	if se != nil && se.Code == domain.CodeInternal {
		m.logger.Error("service failed", "service", service, "error", err)
	}
	return se
}
