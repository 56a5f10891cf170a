package task

// Operation names an action on a single task.
type Operation string

const (
	OpGet         Operation = "get"
	OpList        Operation = "list"
	OpAssignments Operation = "assignments"
	OpUpdate      Operation = "update"
	OpDelete      Operation = "delete"
	OpAssign      Operation = "assign"
)

// IsWrite reports whether op mutates the task.
func (op Operation) IsWrite() bool {
	switch op {
	case OpUpdate, OpDelete, OpAssign:
		return true
	}
	return false
}

// Authorize decides whether actor may perform op on t. Reads are open to any
// authenticated user; writes are reserved for the creator. An actor of zero is
// unauthenticated.
func Authorize(op Operation, t *Task, actor uint) error {
	if actor == 0 {
		return ErrUnauthenticated
	}
	if !op.IsWrite() {
		return nil
	}
	if t == nil || t.CreatedByID != actor {
		return ErrDenied
	}
	return nil
}
