package task

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Aftab-Fury/Task-Manager/domain/task"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides access to task storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the task tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&domain.Task{}, &domain.Assignment{})
}

// Transaction runs fn with a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Create inserts t together with its assignments.
func (r *Repository) Create(ctx context.Context, t *domain.Task) error {
	return r.Transaction(ctx, func(tx *Repository) error {
		assignees := t.AssigneeIDs()
		if err := tx.db.Omit(clause.Associations).Create(t).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return tx.replaceAssignments(t, assignees)
	})
}

// FindByID loads a task and its assignments.
func (r *Repository) FindByID(ctx context.Context, id uint) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).Preload("Assignments").First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound(id)
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// List returns the tasks matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]domain.Task, error) {
	q := r.db.WithContext(ctx).Preload("Assignments")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TaskType != "" {
		q = q.Where("task_type = ?", f.TaskType)
	}
	return r.find(q)
}

// ListAssignedTo returns the tasks assigned to userID, newest first.
func (r *Repository) ListAssignedTo(ctx context.Context, userID uint) ([]domain.Task, error) {
	db := r.db.WithContext(ctx)
	sub := db.Model(&domain.Assignment{}).Select("task_id").Where("user_id = ?", userID)
	return r.find(db.Preload("Assignments").Where("id IN (?)", sub))
}

func (r *Repository) find(q *gorm.DB) ([]domain.Task, error) {
	tasks := []domain.Task{}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Save writes the scalar fields of t. When replaceAssignments is set the
// stored assignment set is replaced with t.Assignments.
func (r *Repository) Save(ctx context.Context, t *domain.Task, replaceAssignments bool) error {
	return r.Transaction(ctx, func(tx *Repository) error {
		assignees := t.AssigneeIDs()
		result := tx.db.Model(t).
			Select("name", "description", "task_type", "status", "completed_at").
			Updates(t)
		if result.Error != nil {
			return fmt.Errorf("failed to update task: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NotFound(t.ID)
		}
		if !replaceAssignments {
			return nil
		}
		return tx.replaceAssignments(t, assignees)
	})
}

// ReplaceAssignments stores userIDs as the complete assignment set of t.
func (r *Repository) ReplaceAssignments(ctx context.Context, t *domain.Task, userIDs []uint) error {
	return r.Transaction(ctx, func(tx *Repository) error {
		return tx.replaceAssignments(t, userIDs)
	})
}

func (r *Repository) replaceAssignments(t *domain.Task, userIDs []uint) error {
	if err := r.db.Where("task_id = ?", t.ID).Delete(&domain.Assignment{}).Error; err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	t.SetAssignees(userIDs)
	if len(t.Assignments) == 0 {
		return nil
	}
	if err := r.db.Create(&t.Assignments).Error; err != nil {
		return fmt.Errorf("failed to store assignments: %w", err)
	}
	return nil
}

// Delete removes a task and its assignments.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.Transaction(ctx, func(tx *Repository) error {
		if err := tx.db.Where("task_id = ?", id).Delete(&domain.Assignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		result := tx.db.Delete(&domain.Task{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete task: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NotFound(id)
		}
		return nil
	})
}
