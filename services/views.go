package services

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/CrowderSoup/todo-lists/database"
)

// Built-in views. Any other view name selects the list with that name.
const (
	ViewAll          = "all"
	ViewHighPriority = "high-priority"
	ViewToday        = "today"
	ViewThisWeek     = "this-week"
)

var BuiltinViews = []string{ViewAll, ViewToday, ViewThisWeek, ViewHighPriority}

type SortOption string

const (
	SortCustom       SortOption = "custom"
	SortDateAsc      SortOption = "dateAsc"
	SortDateDesc     SortOption = "dateDesc"
	SortPriorityAsc  SortOption = "priorityAsc"
	SortPriorityDesc SortOption = "priorityDesc"
)

var ErrInvalidSort = errors.New("invalid sort option")

// ParseSortOption maps a query value to a SortOption. Empty means custom.
func ParseSortOption(s string) (SortOption, error) {
	switch opt := SortOption(s); opt {
	case "":
		return SortCustom, nil
	case SortCustom, SortDateAsc, SortDateDesc, SortPriorityAsc, SortPriorityDesc:
		return opt, nil
	default:
		return "", fmt.Errorf("%w %q", ErrInvalidSort, s)
	}
}

// ApplyView filters todos down to view and orders the result by opt.
func ApplyView(todos []database.Todo, view string, opt SortOption, now time.Time) []database.Todo {
	out := FilterTodos(todos, view, now)
	SortTodos(out, opt)
	return out
}

// FilterTodos returns the todos that belong to view, as a new slice.
// Date windows start at midnight of now's day in now's location.
func FilterTodos(todos []database.Todo, view string, now time.Time) []database.Todo {
	keep := viewPredicate(view, now)
	out := make([]database.Todo, 0, len(todos))
	for _, t := range todos {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// CountByView counts todos in every built-in view and in every list.
func CountByView(todos []database.Todo, lists []database.List, now time.Time) map[string]int {
	counts := make(map[string]int, len(BuiltinViews)+len(lists))
	names := append([]string{}, BuiltinViews...)
	for _, l := range lists {
		names = append(names, l.Name)
	}
	for _, name := range names {
		if _, seen := counts[name]; seen {
			continue
		}
		keep := viewPredicate(name, now)
		n := 0
		for _, t := range todos {
			if keep(t) {
				n++
			}
		}
		counts[name] = n
	}
	return counts
}

func viewPredicate(view string, now time.Time) func(database.Todo) bool {
	switch view {
	case ViewAll:
		return func(database.Todo) bool { return true }
	case ViewHighPriority:
		return func(t database.Todo) bool { return t.Priority == database.PriorityHigh }
	case ViewToday:
		start := startOfDay(now)
		return dueWithin(start, start.AddDate(0, 0, 1))
	case ViewThisWeek:
		start := startOfDay(now)
		return dueWithin(start, start.AddDate(0, 0, 7))
	default:
		return func(t database.Todo) bool { return t.ListName == view }
	}
}

// dueWithin matches todos due in [from, to). Undated todos never match.
func dueWithin(from, to time.Time) func(database.Todo) bool {
	return func(t database.Todo) bool {
		if t.DueDate == nil {
			return false
		}
		return !t.DueDate.Before(from) && t.DueDate.Before(to)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SortTodos orders todos in place. Undated todos sort after dated ones in
// both date directions.
func SortTodos(todos []database.Todo, opt SortOption) {
	switch opt {
	case SortDateAsc:
		slices.SortStableFunc(todos, func(a, b database.Todo) int { return compareDue(a, b, false) })
	case SortDateDesc:
		slices.SortStableFunc(todos, func(a, b database.Todo) int { return compareDue(a, b, true) })
	case SortPriorityDesc:
		slices.SortStableFunc(todos, func(a, b database.Todo) int {
			return cmp.Compare(b.Priority.Weight(), a.Priority.Weight())
		})
	case SortPriorityAsc:
		slices.SortStableFunc(todos, func(a, b database.Todo) int {
			return cmp.Compare(a.Priority.Weight(), b.Priority.Weight())
		})
	default:
		slices.SortStableFunc(todos, func(a, b database.Todo) int { return cmp.Compare(a.Order, b.Order) })
	}
}

func compareDue(a, b database.Todo, desc bool) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	c := a.DueDate.Compare(*b.DueDate)
	if desc {
		return -c
	}
	return c
}
