package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Aftab-Fury/Task-Manager/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Service names registered by the task module.
const (
	ServiceCreateTask      = "create-task"
	ServiceGetTask         = "get-task"
	ServiceListTasks       = "list-tasks"
	ServiceUpdateTask      = "update-task"
	ServiceDeleteTask      = "delete-task"
	ServiceAssignTask      = "assign-task"
	ServiceTaskAssignments = "task-assignments"
	ServiceUserTasks       = "user-tasks"
)

// TaskPort is the task API consumed by other modules. Failures that carry a
// classification are returned as *task.Error from the domain package.
type TaskPort interface {
	Create(ctx context.Context, actor uint, in TaskInput) (*TaskView, error)
	Get(ctx context.Context, actor, id uint) (*TaskView, error)
	List(ctx context.Context, actor uint, f Filter) ([]TaskView, error)
	Update(ctx context.Context, actor, id uint, in TaskInput, partial bool) (*TaskView, error)
	Delete(ctx context.Context, actor, id uint) error
	Assign(ctx context.Context, actor, id uint, userIDs json.RawMessage) (*TaskView, error)
	Assignments(ctx context.Context, actor, id uint) ([]user.Profile, error)
	ListForUserRef(ctx context.Context, actor uint, ref string) ([]TaskView, error)
}

// TaskAdapter implements TaskPort over the service container.
type TaskAdapter struct {
	container mono.ServiceContainer
}

var _ TaskPort = (*TaskAdapter)(nil)

// NewTaskAdapter creates a new adapter for task services. container is the
// ServiceContainer received via SetDependencyServiceContainer.
func NewTaskAdapter(container mono.ServiceContainer) *TaskAdapter {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &TaskAdapter{container: container}
}

func (a *TaskAdapter) Create(ctx context.Context, actor uint, in TaskInput) (*TaskView, error) {
	req := CreateTaskRequest{ActorID: actor, Input: in}
	var resp TaskResponse
	if err := callService(ctx, a.container, ServiceCreateTask, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Error.Err()
}

func (a *TaskAdapter) Get(ctx context.Context, actor, id uint) (*TaskView, error) {
	req := GetTaskRequest{ActorID: actor, TaskID: id}
	var resp TaskResponse
	if err := callService(ctx, a.container, ServiceGetTask, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Error.Err()
}

func (a *TaskAdapter) List(ctx context.Context, actor uint, f Filter) ([]TaskView, error) {
	req := ListTasksRequest{ActorID: actor, Filter: f}
	var resp TaskListResponse
	if err := callService(ctx, a.container, ServiceListTasks, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, resp.Error.Err()
}

func (a *TaskAdapter) Update(ctx context.Context, actor, id uint, in TaskInput, partial bool) (*TaskView, error) {
	req := UpdateTaskRequest{ActorID: actor, TaskID: id, Input: in, Partial: partial}
	var resp TaskResponse
	if err := callService(ctx, a.container, ServiceUpdateTask, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Error.Err()
}

func (a *TaskAdapter) Delete(ctx context.Context, actor, id uint) error {
	req := GetTaskRequest{ActorID: actor, TaskID: id}
	var resp DeleteTaskResponse
	if err := callService(ctx, a.container, ServiceDeleteTask, &req, &resp); err != nil {
		return err
	}
	return resp.Error.Err()
}

func (a *TaskAdapter) Assign(ctx context.Context, actor, id uint, userIDs json.RawMessage) (*TaskView, error) {
	req := AssignTaskRequest{ActorID: actor, TaskID: id, UserIDs: userIDs}
	var resp TaskResponse
	if err := callService(ctx, a.container, ServiceAssignTask, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Task, resp.Error.Err()
}

func (a *TaskAdapter) Assignments(ctx context.Context, actor, id uint) ([]user.Profile, error) {
	req := GetTaskRequest{ActorID: actor, TaskID: id}
	var resp AssignmentsResponse
	if err := callService(ctx, a.container, ServiceTaskAssignments, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, resp.Error.Err()
}

func (a *TaskAdapter) ListForUserRef(ctx context.Context, actor uint, ref string) ([]TaskView, error) {
	req := UserTasksRequest{ActorID: actor, UserRef: ref}
	var resp TaskListResponse
	if err := callService(ctx, a.container, ServiceUserTasks, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, resp.Error.Err()
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}
