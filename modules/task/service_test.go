package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	domain "github.com/Aftab-Fury/Task-Manager/domain/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice uint = 1
	bob   uint = 2
	carol uint = 3
)

type serviceFixture struct {
	svc   *Service
	users *fakeUsers
	clock *fakeClock
	cache *mapCache
}

func setupTestService(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		users: newFakeUsers("alice", "bob", "carol"),
		clock: newFakeClock(),
		cache: newMapCache(),
	}
	f.svc = NewService(setupTestRepository(t), f.users, WithClock(f.clock.Now), WithCache(f.cache))
	return f
}

func (f *serviceFixture) create(t *testing.T, actor uint, name string) *TaskView {
	t.Helper()
	v, err := f.svc.Create(context.Background(), actor, TaskInput{
		Name:        ptr(name),
		Description: ptr("description of " + name),
	})
	require.NoError(t, err)
	return v
}

func TestService_CreateDefaults(t *testing.T) {
	f := setupTestService(t)

	v := f.create(t, alice, "  Write the changelog  ")

	assert.NotZero(t, v.ID)
	assert.Equal(t, "Write the changelog", v.Name)
	assert.Equal(t, domain.StatusPending, v.Status)
	assert.Equal(t, domain.TypeOther, v.TaskType)
	assert.True(t, v.CreatedAt.Equal(f.clock.Now()))
	assert.Nil(t, v.CompletedAt)
	assert.False(t, v.IsCompleted)
	assert.Nil(t, v.DurationSeconds)
	assert.Equal(t, "alice", v.CreatedBy.Username)
	assert.Empty(t, v.AssignedTo)
	assert.NotNil(t, v.AssignedTo)
}

func TestService_CreateValidation(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		actor    uint
		input    TaskInput
		wantCode domain.Code
	}{
		{name: "anonymous", actor: 0, input: TaskInput{Name: ptr("Valid name"), Description: ptr("d")}, wantCode: domain.CodeUnauthenticated},
		{name: "missing name", actor: alice, input: TaskInput{Description: ptr("d")}, wantCode: domain.CodeValidation},
		{name: "missing description", actor: alice, input: TaskInput{Name: ptr("Valid name")}, wantCode: domain.CodeValidation},
		{name: "short name", actor: alice, input: TaskInput{Name: ptr(" ab "), Description: ptr("d")}, wantCode: domain.CodeValidation},
		{name: "bad type", actor: alice, input: TaskInput{Name: ptr("Valid name"), Description: ptr("d"), TaskType: ptr("research")}, wantCode: domain.CodeValidation},
		{name: "bad status", actor: alice, input: TaskInput{Name: ptr("Valid name"), Description: ptr("d"), Status: ptr("done")}, wantCode: domain.CodeValidation},
		{name: "unknown assignee", actor: alice, input: TaskInput{Name: ptr("Valid name"), Description: ptr("d"), AssignedToIDs: json.RawMessage(`[2, 99]`)}, wantCode: domain.CodeInvalidUserIDs},
		{name: "malformed assignees", actor: alice, input: TaskInput{Name: ptr("Valid name"), Description: ptr("d"), AssignedToIDs: json.RawMessage(`"2"`)}, wantCode: domain.CodeInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.actor, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.CodeOf(err))
		})
	}

	tasks, err := f.svc.List(ctx, alice, Filter{})
	require.NoError(t, err)
	assert.Empty(t, tasks, "rejected creates must not persist anything")
}

func TestService_CreateCompletedWithAssignees(t *testing.T) {
	f := setupTestService(t)

	v, err := f.svc.Create(context.Background(), alice, TaskInput{
		Name:          ptr("Deploy v2"),
		Description:   ptr("Roll out the release"),
		TaskType:      ptr("deployment"),
		Status:        ptr("completed"),
		AssignedToIDs: json.RawMessage(`[3, 2, 3]`),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TypeDeployment, v.TaskType)
	assert.True(t, v.IsCompleted)
	require.NotNil(t, v.CompletedAt)
	assert.True(t, v.CompletedAt.Equal(f.clock.Now()))
	require.NotNil(t, v.DurationSeconds)
	assert.Equal(t, 0.0, *v.DurationSeconds)
	require.Len(t, v.AssignedTo, 2)
	assert.Equal(t, bob, v.AssignedTo[0].ID)
	assert.Equal(t, carol, v.AssignedTo[1].ID)
}

func TestService_GetErrors(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Readable task")

	_, err := f.svc.Get(ctx, 0, v.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.Get(ctx, alice, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.Get(ctx, bob, v.ID)
	require.NoError(t, err, "any authenticated user may read")
	assert.Equal(t, v.ID, got.ID)
}

func TestService_UpdateLifecycle(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Lifecycle task")

	f.clock.Advance(30 * time.Minute)
	got, err := f.svc.Update(ctx, alice, v.ID, TaskInput{Status: ptr("in_progress")}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Nil(t, got.CompletedAt)

	f.clock.Advance(90 * time.Minute)
	got, err = f.svc.Update(ctx, alice, v.ID, TaskInput{Status: ptr("completed")}, true)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(f.clock.Now()))
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, (2 * time.Hour).Seconds(), *got.DurationSeconds)

	// Re-sending completed keeps the original completion time.
	f.clock.Advance(time.Hour)
	again, err := f.svc.Update(ctx, alice, v.ID, TaskInput{Status: ptr("completed"), Name: ptr("Renamed task")}, true)
	require.NoError(t, err)
	assert.True(t, again.CompletedAt.Equal(*got.CompletedAt))
	assert.Equal(t, "Renamed task", again.Name)

	_, err = f.svc.Update(ctx, alice, v.ID, TaskInput{Status: ptr("pending")}, true)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	stored, err := f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, "Renamed task", stored.Name)
}

func TestService_UpdateErrorPrecedence(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Owned by alice")

	tests := []struct {
		name     string
		actor    uint
		id       uint
		input    TaskInput
		partial  bool
		wantCode domain.Code
	}{
		{name: "anonymous", actor: 0, id: 999, input: TaskInput{Name: ptr("x")}, partial: true, wantCode: domain.CodeUnauthenticated},
		{name: "missing beats forbidden", actor: bob, id: 999, input: TaskInput{Name: ptr("x")}, partial: true, wantCode: domain.CodeNotFound},
		{name: "forbidden beats invalid", actor: bob, id: v.ID, input: TaskInput{Name: ptr("x")}, partial: true, wantCode: domain.CodeDenied},
		{name: "owner invalid name", actor: alice, id: v.ID, input: TaskInput{Name: ptr("x")}, partial: true, wantCode: domain.CodeValidation},
		{name: "full update needs description", actor: alice, id: v.ID, input: TaskInput{Name: ptr("New name")}, partial: false, wantCode: domain.CodeValidation},
		{name: "unknown assignee", actor: alice, id: v.ID, input: TaskInput{AssignedToIDs: json.RawMessage(`[42]`)}, partial: true, wantCode: domain.CodeInvalidUserIDs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(ctx, tt.actor, tt.id, tt.input, tt.partial)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.CodeOf(err))
		})
	}

	stored, err := f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Owned by alice", stored.Name)
}

func TestService_UpdateAssignees(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Team task")

	got, err := f.svc.Update(ctx, alice, v.ID, TaskInput{AssignedToIDs: json.RawMessage(`[2]`)}, true)
	require.NoError(t, err)
	require.Len(t, got.AssignedTo, 1)

	got, err = f.svc.Update(ctx, alice, v.ID, TaskInput{Description: ptr("still assigned")}, true)
	require.NoError(t, err)
	assert.Len(t, got.AssignedTo, 1, "absent assigned_to_ids leaves assignees alone")

	got, err = f.svc.Update(ctx, alice, v.ID, TaskInput{AssignedToIDs: json.RawMessage(`null`)}, true)
	require.NoError(t, err)
	assert.Len(t, got.AssignedTo, 1, "null assigned_to_ids leaves assignees alone")

	got, err = f.svc.Update(ctx, alice, v.ID, TaskInput{AssignedToIDs: json.RawMessage(`[]`)}, true)
	require.NoError(t, err)
	assert.Empty(t, got.AssignedTo)
}

func TestService_Assign(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Needs hands")

	_, err := f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[]`))
	assert.ErrorIs(t, err, domain.ErrMissingUserIDs)

	_, err = f.svc.Assign(ctx, alice, v.ID, nil)
	assert.ErrorIs(t, err, domain.ErrMissingUserIDs)

	_, err = f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[2, 98, 99]`))
	require.ErrorIs(t, err, domain.ErrInvalidUserIDs)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.MissingIDsDetail{MissingIDs: []uint{98, 99}}, de.Details)

	_, err = f.svc.Assign(ctx, bob, v.ID, json.RawMessage(`[2]`))
	assert.ErrorIs(t, err, domain.ErrDenied)

	_, err = f.svc.Assign(ctx, alice, 999, json.RawMessage(`[2]`))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[3, 2]`))
	require.NoError(t, err)
	require.Len(t, got.AssignedTo, 2)

	got, err = f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[1]`))
	require.NoError(t, err)
	require.Len(t, got.AssignedTo, 1, "assign replaces the previous set")
	assert.Equal(t, alice, got.AssignedTo[0].ID)

	users, err := f.svc.Assignments(ctx, carol, v.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestService_AssignSameSetTwice(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Pair programming")

	first, err := f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[2, 3]`))
	require.NoError(t, err)
	second, err := f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[3, 2]`))
	require.NoError(t, err)

	assert.Equal(t, first.AssignedTo, second.AssignedTo)
	users, err := f.svc.Assignments(ctx, alice, v.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, bob, users[0].ID)
	assert.Equal(t, carol, users[1].ID)
}

func TestService_RejectedAssignKeepsExistingSet(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Staffed task")
	_, err := f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[2, 3]`))
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{name: "empty list", payload: `[]`, wantErr: domain.ErrMissingUserIDs},
		{name: "one unknown id", payload: `[1, 77]`, wantErr: domain.ErrInvalidUserIDs},
		{name: "not a list", payload: `{"a":1}`, wantErr: domain.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Assign(ctx, alice, v.ID, json.RawMessage(tt.payload))
			require.ErrorIs(t, err, tt.wantErr)

			users, err := f.svc.Assignments(ctx, alice, v.ID)
			require.NoError(t, err)
			require.Len(t, users, 2)
			assert.Equal(t, bob, users[0].ID)
			assert.Equal(t, carol, users[1].ID)
		})
	}
}

func TestService_Delete(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Disposable")

	assert.ErrorIs(t, f.svc.Delete(ctx, bob, v.ID), domain.ErrDenied)
	assert.ErrorIs(t, f.svc.Delete(ctx, alice, 999), domain.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, alice, v.ID))

	_, err := f.svc.Get(ctx, alice, v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ListForUserRef(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	v := f.create(t, alice, "For bob")
	_, err := f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[2]`))
	require.NoError(t, err)
	f.create(t, alice, "Unassigned")

	byID, err := f.svc.ListForUserRef(ctx, carol, "2")
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, v.ID, byID[0].ID)

	byName, err := f.svc.ListForUserRef(ctx, carol, "bob")
	require.NoError(t, err)
	assert.Equal(t, byID, byName)

	none, err := f.svc.ListForUserRef(ctx, carol, "carol")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.svc.ListForUserRef(ctx, carol, "mallory")
	require.ErrorIs(t, err, domain.ErrNotFound)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.UsernameDetail{Username: "mallory"}, de.Details)

	_, err = f.svc.ListForUserRef(ctx, 0, "bob")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestService_ListResolvesUsersInOneLookup(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Task one", "Task two", "Task three"} {
		v := f.create(t, alice, name)
		_, err := f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[2, 3]`))
		require.NoError(t, err)
	}

	f.users.calls = 0
	tasks, err := f.svc.List(ctx, bob, Filter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
	assert.Equal(t, 1, f.users.calls)
}

func TestService_CacheInvalidation(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Cached task")

	_, err := f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.cache.Stats().Hits)

	_, err = f.svc.Update(ctx, alice, v.ID, TaskInput{Name: ptr("Fresh name")}, true)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh name", got.Name)
}

func TestService_LoadSkipsFillAfterInvalidation(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v := f.create(t, alice, "Racing task")

	stale, err := f.svc.repo.FindByID(ctx, v.ID)
	require.NoError(t, err)

	// A write commits between the read and the fill.
	gen := f.svc.cacheGeneration()
	_, err = f.svc.Update(ctx, alice, v.ID, TaskInput{Name: ptr("Renamed task")}, true)
	require.NoError(t, err)
	f.svc.fill(ctx, v.ID, gen, stale)

	var cached domain.Task
	found, err := f.cache.Get(ctx, cacheKey(v.ID), &cached)
	require.NoError(t, err)
	assert.False(t, found)

	got, err := f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed task", got.Name)
}

func TestService_LoadIgnoresCallerCancellation(t *testing.T) {
	f := setupTestService(t)
	v := f.create(t, alice, "Shared lookup")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := f.svc.load(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
}

func TestService_CachedCompletedTaskStaysCompleted(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	v, err := f.svc.Create(ctx, alice, TaskInput{
		Name:        ptr("Done already"),
		Description: ptr("finished"),
		Status:      ptr("completed"),
	})
	require.NoError(t, err)

	// Populate the cache, then reopen through the service.
	_, err = f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	cached, err := f.svc.load(ctx, v.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, cached.ApplyStatus(domain.StatusInProgress, f.clock.Now()), domain.ErrIllegalTransition)

	_, err = f.svc.Update(ctx, alice, v.ID, TaskInput{Status: ptr("in_progress")}, true)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestService_EndToEndFlow(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	v, err := f.svc.Create(ctx, alice, TaskInput{
		Name:        ptr("Quarterly report"),
		Description: ptr("Compile the numbers"),
		TaskType:    ptr("documentation"),
	})
	require.NoError(t, err)

	_, err = f.svc.Assign(ctx, alice, v.ID, json.RawMessage(`[2]`))
	require.NoError(t, err)

	bobTasks, err := f.svc.ListForUserRef(ctx, bob, "bob")
	require.NoError(t, err)
	require.Len(t, bobTasks, 1)

	_, err = f.svc.Update(ctx, bob, v.ID, TaskInput{Status: ptr("completed")}, true)
	assert.ErrorIs(t, err, domain.ErrDenied, "assignees cannot modify tasks they do not own")

	f.clock.Advance(45 * time.Minute)
	done, err := f.svc.Update(ctx, alice, v.ID, TaskInput{Status: ptr("completed")}, true)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	assert.Equal(t, (45 * time.Minute).Seconds(), *done.DurationSeconds)

	completed, err := f.svc.List(ctx, bob, Filter{Status: "completed", TaskType: "documentation"})
	require.NoError(t, err)
	require.Len(t, completed, 1)

	require.NoError(t, f.svc.Delete(ctx, alice, v.ID))
	bobTasks, err = f.svc.ListForUserRef(ctx, bob, "2")
	require.NoError(t, err)
	assert.Empty(t, bobTasks)
}
