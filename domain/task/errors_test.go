package task

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{name: "task not found", err: NotFound(7), target: ErrNotFound, want: true},
		{name: "username not found", err: UserNotFound("ghost"), target: ErrNotFound, want: true},
		{name: "wrapped", err: fmt.Errorf("loading: %w", NotFound(7)), target: ErrNotFound, want: true},
		{name: "different code", err: NotFound(7), target: ErrDenied, want: false},
		{name: "invalid ids", err: InvalidUserIDs([]uint{3}), target: ErrInvalidUserIDs, want: true},
		{name: "plain error", err: errors.New("boom"), target: ErrInternal, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("wrap: %w", ErrIllegalTransition)); got != CodeIllegalTransition {
		t.Errorf("CodeOf() = %q, want %q", got, CodeIllegalTransition)
	}
	if got := CodeOf(errors.New("db down")); got != CodeInternal {
		t.Errorf("CodeOf(unclassified) = %q, want %q", got, CodeInternal)
	}
}

func TestInvalidUserIDsDetails(t *testing.T) {
	err := InvalidUserIDs([]uint{4, 9})
	d, ok := err.Details.(MissingIDsDetail)
	if !ok {
		t.Fatalf("Details = %T, want MissingIDsDetail", err.Details)
	}
	if len(d.MissingIDs) != 2 || d.MissingIDs[0] != 4 || d.MissingIDs[1] != 9 {
		t.Errorf("MissingIDs = %v, want [4 9]", d.MissingIDs)
	}
	if err.Message != ErrInvalidUserIDs.Message {
		t.Errorf("Message = %q, want %q", err.Message, ErrInvalidUserIDs.Message)
	}
}

func TestRequired(t *testing.T) {
	err := Required("name")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Required() = %v, want validation error", err)
	}
	if err.Message != "name is required" {
		t.Errorf("Message = %q, want %q", err.Message, "name is required")
	}
	if d, ok := err.Details.(FieldDetail); !ok || d.Field != "name" {
		t.Errorf("Details = %#v, want field name", err.Details)
	}
}
