package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	domain "github.com/Aftab-Fury/Task-Manager/domain/task"
	"github.com/Aftab-Fury/Task-Manager/domain/user"
	"github.com/Aftab-Fury/Task-Manager/modules/auth"
	"github.com/Aftab-Fury/Task-Manager/modules/cache"
	"golang.org/x/sync/singleflight"
)

// Service implements task lifecycle, assignment and query operations.
type Service struct {
	repo    *Repository
	users   auth.UserPort
	cache   cache.CacheService
	sfGroup singleflight.Group
	now     func() time.Time
	logger  *slog.Logger

	// cacheMu orders cache fills against invalidations.
	cacheMu       sync.Mutex
	invalidations uint64
}

var _ TaskPort = (*Service)(nil)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables read-through caching of task lookups.
func WithCache(c cache.CacheService) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a task service. users resolves user references.
func NewService(repo *Repository, users auth.UserPort, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		users:  users,
		cache:  cache.Noop{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cacheKey(id uint) string {
	return "id:" + strconv.FormatUint(uint64(id), 10)
}

func requireActor(actor uint) error {
	if actor == 0 {
		return domain.ErrUnauthenticated
	}
	return nil
}

// Create stores a new task owned by actor.
func (s *Service) Create(ctx context.Context, actor uint, in TaskInput) (*TaskView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := requireFields(in); err != nil {
		return nil, err
	}

	t, err := domain.New(*in.Name, *in.Description, actor)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = s.now().UTC()
	if err := s.apply(t, in); err != nil {
		return nil, err
	}
	if provided(in.AssignedToIDs) {
		ids, err := s.resolveAssignees(ctx, in.AssignedToIDs, false)
		if err != nil {
			return nil, err
		}
		t.SetAssignees(ids)
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("task created", "task_id", t.ID, "actor", actor)
	return s.view(ctx, t)
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, actor, id uint) (*TaskView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(domain.OpGet, t, actor); err != nil {
		return nil, err
	}
	return s.view(ctx, t)
}

// List returns the tasks matching f. Unknown filter values match nothing.
func (s *Service) List(ctx context.Context, actor uint, f Filter) ([]TaskView, error) {
	if err := domain.Authorize(domain.OpList, nil, actor); err != nil {
		return nil, err
	}
	tasks, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tasks)
}

// Update modifies a task. A full update (partial=false) requires name and
// description; fields absent from in are left unchanged either way.
func (s *Service) Update(ctx context.Context, actor, id uint, in TaskInput, partial bool) (*TaskView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var updated *domain.Task
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		t, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.Authorize(domain.OpUpdate, t, actor); err != nil {
			return err
		}
		if !partial {
			if err := requireFields(in); err != nil {
				return err
			}
		}
		if in.Name != nil {
			if err := t.Rename(*in.Name); err != nil {
				return err
			}
		}
		if in.Description != nil {
			if err := t.Describe(*in.Description); err != nil {
				return err
			}
		}
		if err := s.apply(t, in); err != nil {
			return err
		}

		replace := provided(in.AssignedToIDs)
		if replace {
			ids, err := s.resolveAssignees(ctx, in.AssignedToIDs, false)
			if err != nil {
				return err
			}
			t.SetAssignees(ids)
		}
		t.DeriveCompletion(s.now())

		if err := tx.Save(ctx, t, replace); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.logger.Info("task updated", "task_id", id, "actor", actor, "partial", partial)
	return s.view(ctx, updated)
}

// Delete removes a task and its assignments.
func (s *Service) Delete(ctx context.Context, actor, id uint) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		t, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.Authorize(domain.OpDelete, t, actor); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.logger.Info("task deleted", "task_id", id, "actor", actor)
	return nil
}

// Assign replaces the assignees of a task with the users listed in rawIDs.
// The whole request is rejected when any id does not resolve.
func (s *Service) Assign(ctx context.Context, actor, id uint, rawIDs json.RawMessage) (*TaskView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var updated *domain.Task
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		t, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.Authorize(domain.OpAssign, t, actor); err != nil {
			return err
		}
		ids, err := s.resolveAssignees(ctx, rawIDs, true)
		if err != nil {
			return err
		}
		if err := tx.ReplaceAssignments(ctx, t, ids); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.logger.Info("task assigned", "task_id", id, "actor", actor, "assignees", updated.AssigneeIDs())
	return s.view(ctx, updated)
}

// Assignments returns the profiles of the users assigned to a task.
func (s *Service) Assignments(ctx context.Context, actor, id uint) ([]user.Profile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(domain.OpAssignments, t, actor); err != nil {
		return nil, err
	}
	v, err := s.view(ctx, t)
	if err != nil {
		return nil, err
	}
	return v.AssignedTo, nil
}

// ListForUser returns the tasks assigned to userID. A user without tasks
// yields an empty list.
func (s *Service) ListForUser(ctx context.Context, actor, userID uint) ([]TaskView, error) {
	if err := domain.Authorize(domain.OpList, nil, actor); err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListAssignedTo(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tasks)
}

// ListForUsername resolves username and returns the tasks assigned to that
// user.
func (s *Service) ListForUsername(ctx context.Context, actor uint, username string) ([]TaskView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	p, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, domain.UserNotFound(username)
		}
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}
	return s.ListForUser(ctx, actor, p.ID)
}

// ListForUserRef treats an all-digit ref as a user id and anything else as a
// username.
func (s *Service) ListForUserRef(ctx context.Context, actor uint, ref string) ([]TaskView, error) {
	if id, err := strconv.ParseUint(ref, 10, 0); err == nil && id > 0 {
		return s.ListForUser(ctx, actor, uint(id))
	}
	return s.ListForUsername(ctx, actor, ref)
}

// apply sets the enumerated fields present in in.
func (s *Service) apply(t *domain.Task, in TaskInput) error {
	if in.TaskType != nil {
		tt, err := domain.ParseType(*in.TaskType)
		if err != nil {
			return err
		}
		t.TaskType = tt
	}
	if in.Status != nil {
		st, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return err
		}
		if err := t.ApplyStatus(st, s.now()); err != nil {
			return err
		}
	}
	return nil
}

// resolveAssignees parses raw ids and checks them against the identity
// store. An empty list is an error only when requireNonEmpty is set.
func (s *Service) resolveAssignees(ctx context.Context, raw json.RawMessage, requireNonEmpty bool) ([]uint, error) {
	ids, err := domain.ParseUserIDs(raw)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		if requireNonEmpty {
			return nil, domain.ErrMissingUserIDs
		}
		return ids, nil
	}

	profiles, err := s.users.FindUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve users: %w", err)
	}
	found := make([]uint, 0, len(profiles))
	for _, p := range profiles {
		found = append(found, p.ID)
	}
	if err := domain.ValidateAssignment(ids, found); err != nil {
		return nil, err
	}
	return ids, nil
}

// load returns a task through the cache. Concurrent misses for the same id
// share one database read.
func (s *Service) load(ctx context.Context, id uint) (*domain.Task, error) {
	key := cacheKey(id)

	var cached domain.Task
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("cache read failed", "task_id", id, "error", err)
	}
	if found {
		cached.MarkLoaded()
		return &cached, nil
	}

	// The shared lookup must not fail because the first caller went away.
	val, err, _ := s.sfGroup.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		gen := s.cacheGeneration()
		t, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, id, gen, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*domain.Task), nil
}

func (s *Service) cacheGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.invalidations
}

// fill caches t unless an invalidation happened since gen was taken, in
// which case t may predate a committed write.
func (s *Service) fill(ctx context.Context, id uint, gen uint64, t *domain.Task) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.invalidations != gen {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(id), t); err != nil {
		s.logger.Warn("cache write failed", "task_id", id, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, id uint) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.invalidations++
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.logger.Warn("cache invalidation failed", "task_id", id, "error", err)
	}
}

func (s *Service) view(ctx context.Context, t *domain.Task) (*TaskView, error) {
	views, err := s.views(ctx, []domain.Task{*t})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views renders tasks with their creator and assignee profiles, resolved in
// one lookup.
func (s *Service) views(ctx context.Context, tasks []domain.Task) ([]TaskView, error) {
	out := make([]TaskView, 0, len(tasks))
	if len(tasks) == 0 {
		return out, nil
	}

	seen := map[uint]struct{}{}
	var ids []uint
	add := func(id uint) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for i := range tasks {
		add(tasks[i].CreatedByID)
		for _, id := range tasks[i].AssigneeIDs() {
			add(id)
		}
	}

	profiles, err := s.users.FindUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve users: %w", err)
	}
	byID := make(map[uint]user.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	profile := func(id uint) user.Profile {
		if p, ok := byID[id]; ok {
			return p
		}
		return user.Profile{ID: id}
	}

	for i := range tasks {
		t := &tasks[i]
		v := TaskView{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			TaskType:    t.TaskType,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt,
			CompletedAt: t.CompletedAt,
			IsCompleted: t.IsCompleted(),
			CreatedBy:   profile(t.CreatedByID),
			AssignedTo:  []user.Profile{},
		}
		if d, ok := t.Duration(); ok {
			secs := d.Seconds()
			v.DurationSeconds = &secs
		}
		for _, id := range t.AssigneeIDs() {
			v.AssignedTo = append(v.AssignedTo, profile(id))
		}
		out = append(out, v)
	}
	return out, nil
}

func requireFields(in TaskInput) error {
	if in.Name == nil {
		return domain.Required("name")
	}
	if in.Description == nil {
		return domain.Required("description")
	}
	return nil
}

// provided reports whether raw carries a value other than null.
func provided(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
