package database

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an operation targets an id the store does not hold.
var ErrNotFound = errors.New("not found")

// Store holds todos, lists and users and owns their lifecycles.
type Store interface {
	GetUser(id int) (User, error)
	GetUserByUsername(username string) (User, error)
	CreateUser(in InsertUser) User

	GetTodos() []Todo
	GetTodoByID(id int) (Todo, error)
	GetTodosByList(listName string) []Todo
	CreateTodo(in InsertTodo) Todo
	UpdateTodo(u UpdateTodo) (Todo, error)
	DeleteTodo(id int) bool
	ReorderTodos(ids []int)

	GetLists() []List
	CreateList(in InsertList) List
	DeleteList(id int) bool
}

// MemStore keeps every entity in memory. The mutex only protects the maps;
// concurrent writers to the same todo still race and the last one wins.
type MemStore struct {
	mu sync.RWMutex

	users map[int]User
	todos map[int]Todo
	lists map[int]List

	nextUserID int
	nextTodoID int
	nextListID int

	now func() time.Time
}

type Option func(*MemStore)

// WithClock sets the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		s.now = now
	}
}

func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		users:      make(map[int]User),
		todos:      make(map[int]Todo),
		lists:      make(map[int]List),
		nextUserID: 1,
		nextTodoID: 1,
		nextListID: 1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultLists are created by SeedDefaultLists.
var DefaultLists = []InsertList{
	{Name: "personal", Color: "blue-500"},
	{Name: "work", Color: "green-500"},
	{Name: "shopping", Color: "purple-500"},
}

// SeedDefaultLists creates the built-in personal, work and shopping lists.
func (s *MemStore) SeedDefaultLists() []List {
	created := make([]List, 0, len(DefaultLists))
	for _, in := range DefaultLists {
		created = append(created, s.CreateList(in))
	}
	return created
}

// GetUser retrieves a user by id
func (s *MemStore) GetUser(id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username
func (s *MemStore) GetUserByUsername(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

// CreateUser stores a new user. Username uniqueness is left to the caller.
func (s *MemStore) CreateUser(in InsertUser) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := User{ID: s.nextUserID, Username: in.Username, Password: in.Password}
	s.nextUserID++
	s.users[u.ID] = u
	return u
}

// GetTodos returns every todo in custom order.
func (s *MemStore) GetTodos() []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectTodos(func(Todo) bool { return true })
}

// GetTodoByID retrieves a single todo
func (s *MemStore) GetTodoByID(id int) (Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.todos[id]
	if !ok {
		return Todo{}, fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return t.clone(), nil
}

// GetTodosByList returns the todos of one list in custom order. The "all"
// list matches every todo.
func (s *MemStore) GetTodosByList(listName string) []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if listName == AllListName {
		return s.collectTodos(func(Todo) bool { return true })
	}
	return s.collectTodos(func(t Todo) bool { return t.ListName == listName })
}

// CreateTodo assigns the next id, appends the todo to the end of the custom
// order and stamps createdAt. It always starts out incomplete.
func (s *MemStore) CreateTodo(in InsertTodo) Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxOrder := 0
	for _, t := range s.todos {
		if t.Order > maxOrder {
			maxOrder = t.Order
		}
	}
	nextOrder := maxOrder
	if nextOrder < math.MaxInt {
		nextOrder++
	}

	t := Todo{
		ID:        s.nextTodoID,
		Title:     in.Title,
		Priority:  in.Priority,
		ListName:  in.ListName,
		Order:     nextOrder,
		Subtasks:  withSubtaskIDs(in.Subtasks),
		CreatedAt: s.now(),
	}
	if in.Description != nil {
		d := *in.Description
		t.Description = &d
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.ListName == "" {
		t.ListName = DefaultListName
	}

	s.nextTodoID++
	s.todos[t.ID] = t
	return t.clone()
}

// UpdateTodo merges u over the stored todo and returns the result.
func (s *MemStore) UpdateTodo(u UpdateTodo) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.todos[u.ID]
	if !ok {
		return Todo{}, fmt.Errorf("todo %d: %w", u.ID, ErrNotFound)
	}
	if u.Subtasks.Present() {
		u.Subtasks.Value = withSubtaskIDs(u.Subtasks.Value)
	}

	merged := u.Apply(existing)
	s.todos[u.ID] = merged
	return merged.clone(), nil
}

// DeleteTodo removes a todo and reports whether it existed. Other todos keep
// their order values.
func (s *MemStore) DeleteTodo(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[id]; !ok {
		return false
	}
	delete(s.todos, id)
	return true
}

// ReorderTodos sets each listed todo's order to its index in ids. Unknown
// ids are skipped and unlisted todos keep their order.
func (s *MemStore) ReorderTodos(ids []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range ids {
		t, ok := s.todos[id]
		if !ok {
			continue
		}
		t.Order = i
		s.todos[id] = t
	}
}

// GetLists returns every list by id.
func (s *MemStore) GetLists() []List {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lists := make([]List, 0, len(s.lists))
	for _, l := range s.lists {
		lists = append(lists, l)
	}
	slices.SortFunc(lists, func(a, b List) int { return cmp.Compare(a.ID, b.ID) })
	return lists
}

// CreateList stores a new list. Duplicate names are accepted.
func (s *MemStore) CreateList(in InsertList) List {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := List{ID: s.nextListID, Name: in.Name, Color: in.Color}
	s.nextListID++
	s.lists[l.ID] = l
	return l
}

// DeleteList removes a list and reports whether it existed. Todos that
// reference the list by name are left alone.
func (s *MemStore) DeleteList(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[id]; !ok {
		return false
	}
	delete(s.lists, id)
	return true
}

func (s *MemStore) collectTodos(keep func(Todo) bool) []Todo {
	todos := make([]Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if keep(t) {
			todos = append(todos, t.clone())
		}
	}
	slices.SortFunc(todos, func(a, b Todo) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return todos
}

// withSubtaskIDs copies subtasks, giving any without an id a fresh UUID.
func withSubtaskIDs(in []Subtask) []Subtask {
	out := cloneSubtasks(in)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}

var _ Store = (*MemStore)(nil)
