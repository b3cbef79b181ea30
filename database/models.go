package database

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency of a todo.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight maps a priority to its sort weight (high=3, medium=2, low=1).
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

const (
	DefaultListName = "personal"
	AllListName     = "all"
)

type Todo struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	ListName    string     `json:"listName"`
	Order       int        `json:"order"`
	Subtasks    []Subtask  `json:"subtasks"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Subtask is a checklist item nested under a todo. Its id is chosen by the client.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type List struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// InsertTodo carries the caller-provided fields of a new todo. Completed and
// order are always assigned by the store.
type InsertTodo struct {
	Title       string
	Description *string
	Priority    Priority
	DueDate     *time.Time
	ListName    string
	Subtasks    []Subtask
}

type InsertList struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type InsertUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate accepts RFC 3339 timestamps as well as the date and
// datetime-local forms browsers submit. Zone-less values are read in loc.
func ParseDueDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func (t Todo) clone() Todo {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	t.Subtasks = cloneSubtasks(t.Subtasks)
	return t
}

func cloneSubtasks(in []Subtask) []Subtask {
	out := make([]Subtask, len(in))
	copy(out, in)
	return out
}
