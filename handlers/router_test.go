package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/todo-lists/database"
	"github.com/CrowderSoup/todo-lists/services"
)

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	store   *database.MemStore
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	validator, err := services.NewValidator()
	require.NoError(t, err)

	store := database.NewMemStore(database.WithClock(func() time.Time { return fixedNow }))
	logger := log.New(io.Discard)

	return &testServer{
		t:     t,
		store: store,
		handler: NewRouter(RouterConfig{
			Store:       store,
			Validator:   validator,
			Auth:        services.NewAuthService(store, "test-secret", time.Hour),
			Logger:      logger,
			CORSOrigins: []string{"*"},
			Now:         func() time.Time { return fixedNow },
		}),
	}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[messageResponse](t, rec).Message
}

func TestCreateTodoEndToEnd(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/todos", `{"title":"Buy milk","priority":"low"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(1), got["id"])
	assert.Equal(t, float64(1), got["order"])
	assert.Equal(t, false, got["completed"])
	assert.Equal(t, []any{}, got["subtasks"])
	assert.Equal(t, "low", got["priority"])
	assert.Equal(t, "personal", got["listName"])
	assert.Nil(t, got["dueDate"])
	assert.Equal(t, "2024-01-01T10:00:00Z", got["createdAt"])
}

func TestCreateTodoIgnoresServerFields(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/todos", `{"title":"x","completed":true,"order":99,"dueDate":"2024-01-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	todo := decode[database.Todo](t, rec)
	assert.False(t, todo.Completed)
	assert.Equal(t, 1, todo.Order)
	require.NotNil(t, todo.DueDate)
	assert.True(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC).Equal(*todo.DueDate))
}

func TestCreateTodoValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty title", body: `{"title":""}`},
		{name: "missing title", body: `{"priority":"low"}`},
		{name: "bad priority", body: `{"title":"x","priority":"urgent"}`},
		{name: "bad date", body: `{"title":"x","dueDate":"someday"}`},
		{name: "not json", body: `title=x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/todos", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.True(t, strings.HasPrefix(messageOf(t, rec), "Validation error"), rec.Body.String())
		})
	}
	assert.Empty(t, s.store.GetTodos())
}

func TestGetTodo(t *testing.T) {
	s := newTestServer(t)
	created := s.store.CreateTodo(database.InsertTodo{Title: "x"})

	rec := s.do(http.MethodGet, "/api/todos/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[database.Todo](t, rec).ID)

	rec = s.do(http.MethodGet, "/api/todos/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid ID format", messageOf(t, rec))

	rec = s.do(http.MethodGet, "/api/todos/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Todo not found", messageOf(t, rec))
}

func TestUpdateTodo(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/todos", `{"title":"plan","description":"notes","dueDate":"2024-01-03","subtasks":[{"id":"a","title":"one"},{"id":"b","title":"two"}]}`)

	t.Run("partial edit keeps other fields", func(t *testing.T) {
		rec := s.do(http.MethodPatch, "/api/todos/1", `{"completed":true}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		todo := decode[database.Todo](t, rec)
		assert.True(t, todo.Completed)
		assert.Equal(t, "plan", todo.Title)
		require.NotNil(t, todo.Description)
		assert.Equal(t, "notes", *todo.Description)
		assert.Len(t, todo.Subtasks, 2)
		assert.Equal(t, 1, todo.Order)
	})

	t.Run("subtask toggle resends the array", func(t *testing.T) {
		rec := s.do(http.MethodPatch, "/api/todos/1", `{"subtasks":[{"id":"a","title":"one","completed":true},{"id":"b","title":"two","completed":false}]}`)
		require.Equal(t, http.StatusOK, rec.Code)

		todo := decode[database.Todo](t, rec)
		assert.True(t, todo.Subtasks[0].Completed)
		assert.False(t, todo.Subtasks[1].Completed)
	})

	t.Run("null clears due date", func(t *testing.T) {
		rec := s.do(http.MethodPatch, "/api/todos/1", `{"dueDate":null}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, decode[database.Todo](t, rec).DueDate)
	})

	t.Run("body id cannot retarget", func(t *testing.T) {
		rec := s.do(http.MethodPatch, "/api/todos/1", `{"id":5,"title":"renamed"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decode[database.Todo](t, rec).ID)
	})

	t.Run("errors", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/api/todos/x", `{}`).Code)
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/api/todos/1", `{"title":""}`).Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodPatch, "/api/todos/9", `{"title":"y"}`).Code)
	})

	t.Run("order out of range", func(t *testing.T) {
		rec := s.do(http.MethodPatch, "/api/todos/1", `{"order":1e300}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		msg := messageOf(t, rec)
		assert.True(t, strings.HasPrefix(msg, "Validation error"), msg)
		assert.Contains(t, msg, `"order"`)
		assert.NotContains(t, msg, "json:")
	})
}

func TestCustomOrderExtremes(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/todos", `{"title":"first"}`)
	s.do(http.MethodPost, "/api/todos", `{"title":"second"}`)

	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/api/todos/1", `{"order":9007199254740991}`).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/api/todos/2", `{"order":-9007199254740991}`).Code)

	todos := decode[[]database.Todo](t, s.do(http.MethodGet, "/api/todos", ""))
	require.Len(t, todos, 2)
	assert.Equal(t, "second", todos[0].Title)
	assert.Equal(t, "first", todos[1].Title)
}

func TestBodyTooLarge(t *testing.T) {
	s := newTestServer(t)
	body := `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	rec := s.do(http.MethodPost, "/api/todos", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", messageOf(t, rec))
	assert.Empty(t, s.store.GetTodos())
}

func TestDeleteTodoTwice(t *testing.T) {
	s := newTestServer(t)
	s.store.CreateTodo(database.InsertTodo{Title: "x"})

	rec := s.do(http.MethodDelete, "/api/todos/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/todos/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodDelete, "/api/todos/one", "").Code)
}

func TestReorder(t *testing.T) {
	s := newTestServer(t)
	for _, title := range []string{"a", "b", "c"} {
		s.store.CreateTodo(database.InsertTodo{Title: title})
	}

	rec := s.do(http.MethodPost, "/api/todos/reorder", `{"ids":[3,1,2,40]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	todos := decode[[]database.Todo](t, s.do(http.MethodGet, "/api/todos", ""))
	require.Len(t, todos, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{todos[0].ID, todos[1].ID, todos[2].ID})
	assert.Equal(t, []int{0, 1, 2}, []int{todos[0].Order, todos[1].Order, todos[2].Order})

	for _, body := range []string{`{"ids":"1,2"}`, `{"ids":["1"]}`, `{}`} {
		rec := s.do(http.MethodPost, "/api/todos/reorder", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Invalid IDs format. Expected array of numbers.", messageOf(t, rec))
	}
}

func TestViewsAndCounts(t *testing.T) {
	s := newTestServer(t)
	today := fixedNow.Add(2 * time.Hour)
	nextWeek := fixedNow.AddDate(0, 0, 10)
	s.store.CreateTodo(database.InsertTodo{Title: "a", Priority: database.PriorityLow, ListName: "work", DueDate: &today})
	s.store.CreateTodo(database.InsertTodo{Title: "b", Priority: database.PriorityHigh, ListName: "work"})
	s.store.CreateTodo(database.InsertTodo{Title: "c", Priority: database.PriorityMedium, ListName: "shopping", DueDate: &nextWeek})
	s.store.SeedDefaultLists()

	titles := func(rec *httptest.ResponseRecorder) []string {
		out := []string{}
		for _, todo := range decode[[]database.Todo](t, rec) {
			out = append(out, todo.Title)
		}
		return out
	}

	assert.Equal(t, []string{"a"}, titles(s.do(http.MethodGet, "/api/todos?view=today", "")))
	assert.Equal(t, []string{"b"}, titles(s.do(http.MethodGet, "/api/todos?view=high-priority", "")))
	assert.Equal(t, []string{"b", "c", "a"}, titles(s.do(http.MethodGet, "/api/todos?sort=priorityDesc", "")))
	assert.Equal(t, []string{"a", "c", "b"}, titles(s.do(http.MethodGet, "/api/todos?sort=dateAsc", "")))
	assert.Equal(t, []string{"b", "a"}, titles(s.do(http.MethodGet, "/api/todos?view=work&sort=priorityDesc", "")))
	assert.Equal(t, []string{"a", "b"}, titles(s.do(http.MethodGet, "/api/todos/list/work", "")))
	assert.Equal(t, []string{"a", "b", "c"}, titles(s.do(http.MethodGet, "/api/todos/list/all", "")))

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/todos?sort=random", "").Code)

	counts := decode[map[string]int](t, s.do(http.MethodGet, "/api/todos/counts", ""))
	assert.Equal(t, 3, counts["all"])
	assert.Equal(t, 1, counts["today"])
	assert.Equal(t, 1, counts["this-week"])
	assert.Equal(t, 1, counts["high-priority"])
	assert.Equal(t, 2, counts["work"])
	assert.Equal(t, 0, counts["personal"])
}

func TestLists(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/lists", `{"name":"gym","color":"red-500"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[database.List](t, rec)
	assert.Equal(t, database.List{ID: 1, Name: "gym", Color: "red-500"}, created)

	rec = s.do(http.MethodPost, "/api/lists", `{"name":"gym","color":"blue-500"}`)
	assert.Equal(t, http.StatusCreated, rec.Code, "duplicate names are accepted")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/lists", `{"name":""}`).Code)

	lists := decode[[]database.List](t, s.do(http.MethodGet, "/api/lists", ""))
	assert.Len(t, lists, 2)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/lists/1", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/lists/1", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodDelete, "/api/lists/gym", "").Code)
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/users", `{"username":"ada","password":"lovelace"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1,"username":"ada"}`, rec.Body.String())

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/users", `{"username":"ada","password":"x"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/login", `{"username":"ada","password":"x"}`).Code)

	rec = s.do(http.MethodPost, "/api/auth/login", `{"username":"ada","password":"lovelace"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[map[string]string](t, rec)["token"]
	require.NotEmpty(t, token)

	rec = s.do(http.MethodGet, "/api/auth/verify", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"username":"ada"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/verify", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/verify", "", "Authorization", "Token abc").Code)
}

func TestMiddleware(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/todos", "", "X-Request-ID", "req-1")
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	rec = s.do(http.MethodGet, "/api/todos", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(http.MethodGet, "/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", messageOf(t, rec))

	rec = s.do(http.MethodPut, "/api/todos/1", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logging := NewLoggingMiddleware(log.New(&buf))
	h := logging.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, rec.Body.String())
	assert.Contains(t, buf.String(), "boom")
}
