package models

import (
	"cmp"
	"slices"
)

type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// IsPlaceholder reports whether the task carries a client-side id
// that has not been confirmed by the server yet.
func (t Task) IsPlaceholder() bool {
	return t.ID < 0
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	if t.Description != nil {
		description := *t.Description
		t.Description = &description
	}
	return t
}

type CreateTaskParams struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type UpdateTaskParams struct {
	ID          int64   `json:"-"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether no field would be changed.
func (p UpdateTaskParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Apply overlays the provided fields on top of the task.
// UpdatedAt is left untouched.
func (p UpdateTaskParams) Apply(task Task) Task {
	task = task.Clone()
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		description := *p.Description
		task.Description = &description
	}
	if p.Completed != nil {
		task.Completed = *p.Completed
	}
	return task
}

// SortForDisplay orders incomplete tasks first, then the newest ones.
func SortForDisplay(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if a.Completed != b.Completed {
			if a.Completed {
				return 1
			}
			return -1
		}
		if c := b.CreatedAt.Compare(a.CreatedAt.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// Preview shortens a description for list views.
func Preview(description string) string {
	const maxRunes = 60
	runes := []rune(description)
	if len(runes) <= maxRunes {
		return description
	}
	return string(runes[:maxRunes]) + "..."
}

func StringPtr(s string) *string {
	return &s
}

func BoolPtr(b bool) *bool {
	return &b
}
