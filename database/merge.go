package database

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional is a field of a partial update. A field missing from the JSON
// payload stays unset; an explicit null sets it and marks it Null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a set, non-null Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a set Optional that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Present reports whether the field carries a value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Null = true
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// UpdateTodo is a partial edit of the todo identified by ID.
type UpdateTodo struct {
	ID          int
	Title       Optional[string]
	Description Optional[string]
	Completed   Optional[bool]
	Priority    Optional[Priority]
	DueDate     Optional[time.Time]
	ListName    Optional[string]
	Order       Optional[int]
	Subtasks    Optional[[]Subtask]
}

// Apply merges the present fields of u over t. Title, completed, priority,
// list name, order and subtasks cannot be cleared, so a null for them is
// treated as absent. ID and CreatedAt are never touched.
func (u UpdateTodo) Apply(t Todo) Todo {
	out := t.clone()

	if u.Title.Present() {
		out.Title = u.Title.Value
	}
	if u.Description.Set {
		if u.Description.Null {
			out.Description = nil
		} else {
			d := u.Description.Value
			out.Description = &d
		}
	}
	if u.Completed.Present() {
		out.Completed = u.Completed.Value
	}
	if u.Priority.Present() {
		out.Priority = u.Priority.Value
	}
	if u.DueDate.Set {
		if u.DueDate.Null {
			out.DueDate = nil
		} else {
			d := u.DueDate.Value
			out.DueDate = &d
		}
	}
	if u.ListName.Present() {
		out.ListName = u.ListName.Value
	}
	if u.Order.Present() {
		out.Order = u.Order.Value
	}
	if u.Subtasks.Present() {
		out.Subtasks = cloneSubtasks(u.Subtasks.Value)
	}

	return out
}
