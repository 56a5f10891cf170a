// Package task contains the task domain: the entity and its lifecycle rules,
// assignment validation, the access policy and the error taxonomy.
package task

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Type categorizes the work a task represents.
type Type string

const (
	TypeDevelopment   Type = "development"
	TypeTesting       Type = "testing"
	TypeDocumentation Type = "documentation"
	TypeDeployment    Type = "deployment"
	TypeOther         Type = "other"
)

// MinNameLength is the minimum number of characters of a trimmed task name.
const MinNameLength = 3

// MaxNameLength is the column width of a task name.
const MaxNameLength = 200

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusInProgress, StatusCompleted:
		return st, nil
	}
	return "", validationError("status", `"`+s+`" is not a valid choice.`)
}

// ParseType converts s into a Type.
func ParseType(s string) (Type, error) {
	switch tt := Type(s); tt {
	case TypeDevelopment, TypeTesting, TypeDocumentation, TypeDeployment, TypeOther:
		return tt, nil
	}
	return "", validationError("task_type", `"`+s+`" is not a valid choice.`)
}

// NormalizeName trims surrounding whitespace and enforces the length bounds.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	if n < MinNameLength {
		return "", validationError("name", "name too short")
	}
	if n > MaxNameLength {
		return "", validationError("name", "name too long")
	}
	return trimmed, nil
}

// Task represents a unit of trackable work.
type Task struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:200;not null" json:"name"`
	Description string       `gorm:"type:text;not null" json:"description"`
	TaskType    Type         `gorm:"size:20;not null;default:other;index" json:"task_type"`
	Status      Status       `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt   time.Time    `gorm:"not null;index" json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at"`
	CreatedByID uint         `gorm:"not null;index" json:"created_by_id"`
	Assignments []Assignment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"assignments"`

	// loadedStatus is the status the task had when it was read from storage.
	loadedStatus Status
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Assignment links a task to one responsible user.
type Assignment struct {
	TaskID uint `gorm:"primaryKey;autoIncrement:false" json:"task_id"`
	UserID uint `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
}

// TableName returns the table name for the Assignment entity.
func (Assignment) TableName() string {
	return "task_assignments"
}

// New builds a pending task of type other owned by createdBy.
func New(name, description string, createdBy uint) (*Task, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	d, err := normalizeDescription(description)
	if err != nil {
		return nil, err
	}
	return &Task{
		Name:        n,
		Description: d,
		TaskType:    TypeOther,
		Status:      StatusPending,
		CreatedByID: createdBy,
	}, nil
}

func normalizeDescription(description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", Required("description")
	}
	return description, nil
}

// Rename sets a new, normalized name.
func (t *Task) Rename(name string) error {
	n, err := NormalizeName(name)
	if err != nil {
		return err
	}
	t.Name = n
	return nil
}

// Describe sets a new description.
func (t *Task) Describe(description string) error {
	d, err := normalizeDescription(description)
	if err != nil {
		return err
	}
	t.Description = d
	return nil
}

// IsCompleted reports whether the task is completed.
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// ApplyStatus moves the task to next. A completed task cannot be moved to any
// other status.
func (t *Task) ApplyStatus(next Status, now time.Time) error {
	if _, err := ParseStatus(string(next)); err != nil {
		return err
	}
	if t.Status == StatusCompleted && next != StatusCompleted {
		return ErrIllegalTransition
	}
	t.Status = next
	t.DeriveCompletion(now)
	return nil
}

// DeriveCompletion makes CompletedAt agree with Status.
func (t *Task) DeriveCompletion(now time.Time) {
	if t.Status != StatusCompleted {
		t.CompletedAt = nil
		return
	}
	if t.CompletedAt == nil {
		ts := now.UTC()
		t.CompletedAt = &ts
	}
}

// Duration returns the time from creation to completion. ok is false when the
// task is not completed.
func (t *Task) Duration() (d time.Duration, ok bool) {
	if t.CompletedAt == nil {
		return 0, false
	}
	return t.CompletedAt.Sub(t.CreatedAt), true
}

// AssigneeIDs returns the ids of the assigned users in ascending order.
func (t *Task) AssigneeIDs() []uint {
	ids := make([]uint, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SetAssignees replaces the assignment set with userIDs.
func (t *Task) SetAssignees(userIDs []uint) {
	assignments := make([]Assignment, 0, len(userIDs))
	for _, id := range userIDs {
		assignments = append(assignments, Assignment{TaskID: t.ID, UserID: id})
	}
	t.Assignments = assignments
}

// MarkLoaded records the current status as the persisted one. Tasks restored
// from a cache call this so the transition guard still applies.
func (t *Task) MarkLoaded() {
	t.loadedStatus = t.Status
}

// AfterFind implements gorm.AfterFindInterface.
func (t *Task) AfterFind(_ *gorm.DB) error {
	t.MarkLoaded()
	return nil
}

// AfterSave implements gorm.AfterSaveInterface.
func (t *Task) AfterSave(_ *gorm.DB) error {
	t.MarkLoaded()
	return nil
}

// BeforeSave implements gorm.BeforeSaveInterface. Every write path re-checks
// the field rules and the completion guard, then re-derives CompletedAt.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	name, err := NormalizeName(t.Name)
	if err != nil {
		return err
	}
	t.Name = name
	if _, err := normalizeDescription(t.Description); err != nil {
		return err
	}
	if t.TaskType == "" {
		t.TaskType = TypeOther
	}
	if _, err := ParseType(string(t.TaskType)); err != nil {
		return err
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if _, err := ParseStatus(string(t.Status)); err != nil {
		return err
	}
	prev := t.loadedStatus
	if prev == "" && t.ID != 0 {
		stored, err := storedStatus(tx, t.ID)
		if err != nil {
			return err
		}
		prev = stored
	}
	if prev == StatusCompleted && t.Status != StatusCompleted {
		return ErrIllegalTransition
	}
	t.DeriveCompletion(tx.NowFunc())
	return nil
}

// storedStatus reads the persisted status of task id within tx. A missing
// row yields an empty status.
func storedStatus(tx *gorm.DB, id uint) (Status, error) {
	var status string
	err := tx.Session(&gorm.Session{NewDB: true}).
		Model(&Task{}).
		Select("status").
		Where("id = ?", id).
		Scan(&status).Error
	if err != nil {
		return "", fmt.Errorf("failed to read stored status: %w", err)
	}
	return Status(status), nil
}
