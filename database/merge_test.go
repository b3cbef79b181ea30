package database

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalUnmarshal(t *testing.T) {
	var payload struct {
		Title       Optional[string] `json:"title"`
		Description Optional[string] `json:"description"`
		Order       Optional[int]    `json:"order"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","description":null}`), &payload))

	assert.True(t, payload.Title.Present())
	assert.Equal(t, "x", payload.Title.Value)
	assert.True(t, payload.Description.Set)
	assert.True(t, payload.Description.Null)
	assert.False(t, payload.Order.Set)
}

func TestApply(t *testing.T) {
	due := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	base := Todo{
		ID:          7,
		Title:       "plan trip",
		Description: strPtr("summer"),
		Priority:    PriorityMedium,
		DueDate:     &due,
		ListName:    "personal",
		Order:       3,
		Subtasks: []Subtask{
			{ID: "a", Title: "flights"},
			{ID: "b", Title: "hotel"},
		},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name   string
		update UpdateTodo
		check  func(t *testing.T, got Todo)
	}{
		{
			name:   "empty update is identity",
			update: UpdateTodo{ID: 7},
			check: func(t *testing.T, got Todo) {
				assert.Equal(t, base, got)
			},
		},
		{
			name:   "replaces present scalars",
			update: UpdateTodo{ID: 7, Title: Some("plan holiday"), Priority: Some(PriorityHigh), ListName: Some("travel")},
			check: func(t *testing.T, got Todo) {
				assert.Equal(t, "plan holiday", got.Title)
				assert.Equal(t, PriorityHigh, got.Priority)
				assert.Equal(t, "travel", got.ListName)
				assert.Equal(t, base.Order, got.Order)
				assert.Equal(t, base.CreatedAt, got.CreatedAt)
			},
		},
		{
			name:   "null clears nullable fields",
			update: UpdateTodo{ID: 7, Description: Null[string](), DueDate: Null[time.Time]()},
			check: func(t *testing.T, got Todo) {
				assert.Nil(t, got.Description)
				assert.Nil(t, got.DueDate)
			},
		},
		{
			name:   "null on required fields is ignored",
			update: UpdateTodo{ID: 7, Title: Null[string](), Subtasks: Null[[]Subtask]()},
			check: func(t *testing.T, got Todo) {
				assert.Equal(t, base.Title, got.Title)
				assert.Equal(t, base.Subtasks, got.Subtasks)
			},
		},
		{
			name: "subtasks are replaced as a whole",
			update: UpdateTodo{ID: 7, Subtasks: Some([]Subtask{
				{ID: "a", Title: "flights", Completed: true},
			})},
			check: func(t *testing.T, got Todo) {
				require.Len(t, got.Subtasks, 1)
				assert.True(t, got.Subtasks[0].Completed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.update.Apply(base)
			tt.check(t, got)
			assert.Equal(t, "summer", *base.Description, "input must not be mutated")
		})
	}
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-01-02T10:30:00Z", want: time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{in: "2024-01-02T10:30", want: time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{in: "2024-01-02", want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{in: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDueDate(tt.in, time.UTC)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
