package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/CrowderSoup/todo-lists/database"
	"github.com/CrowderSoup/todo-lists/services"
)

// TodoHandler handles todo endpoints
type TodoHandler struct {
	store     database.Store
	validator *services.Validator
	logger    *log.Logger
	now       func() time.Time
}

func NewTodoHandler(store database.Store, validator *services.Validator, logger *log.Logger, now func() time.Time) *TodoHandler {
	if now == nil {
		now = time.Now
	}
	return &TodoHandler{
		store:     store,
		validator: validator,
		logger:    logger,
		now:       now,
	}
}

// todoPayload is the wire form of both create and update bodies.
type todoPayload struct {
	Title       database.Optional[string]             `json:"title"`
	Description database.Optional[string]             `json:"description"`
	Completed   database.Optional[bool]               `json:"completed"`
	Priority    database.Optional[database.Priority]  `json:"priority"`
	DueDate     database.Optional[string]             `json:"dueDate"`
	ListName    database.Optional[string]             `json:"listName"`
	Order       database.Optional[int]                `json:"order"`
	Subtasks    database.Optional[[]database.Subtask] `json:"subtasks"`
}

func (p todoPayload) dueDate(loc *time.Location) (database.Optional[time.Time], error) {
	if !p.DueDate.Set {
		return database.Optional[time.Time]{}, nil
	}
	if p.DueDate.Null || p.DueDate.Value == "" {
		return database.Null[time.Time](), nil
	}
	t, err := database.ParseDueDate(p.DueDate.Value, loc)
	if err != nil {
		return database.Optional[time.Time]{}, &services.ValidationError{Path: "dueDate", Message: err.Error()}
	}
	return database.Some(t), nil
}

// toInsert ignores completed and order; the store assigns both.
func (p todoPayload) toInsert(loc *time.Location) (database.InsertTodo, error) {
	due, err := p.dueDate(loc)
	if err != nil {
		return database.InsertTodo{}, err
	}

	in := database.InsertTodo{
		Title:    p.Title.Value,
		Priority: p.Priority.Value,
		ListName: p.ListName.Value,
		Subtasks: p.Subtasks.Value,
	}
	if p.Description.Present() {
		d := p.Description.Value
		in.Description = &d
	}
	if due.Present() {
		in.DueDate = &due.Value
	}
	return in, nil
}

func (p todoPayload) toUpdate(id int, loc *time.Location) (database.UpdateTodo, error) {
	due, err := p.dueDate(loc)
	if err != nil {
		return database.UpdateTodo{}, err
	}
	return database.UpdateTodo{
		ID:          id,
		Title:       p.Title,
		Description: p.Description,
		Completed:   p.Completed,
		Priority:    p.Priority,
		DueDate:     due,
		ListName:    p.ListName,
		Order:       p.Order,
		Subtasks:    p.Subtasks,
	}, nil
}

// GetTodos lists todos in custom order, or through a view when the view or
// sort query parameters are given.
func (h *TodoHandler) GetTodos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	view, sortParam := query.Get("view"), query.Get("sort")

	todos := h.store.GetTodos()
	if view == "" && sortParam == "" {
		writeJSON(w, http.StatusOK, todos)
		return
	}

	opt, err := services.ParseSortOption(sortParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if view == "" {
		view = services.ViewAll
	}

	writeJSON(w, http.StatusOK, services.ApplyView(todos, view, opt, h.now()))
}

// GetTodo returns a single todo
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, invalidIDMessage)
		return
	}

	todo, err := h.store.GetTodoByID(id)
	if err != nil {
		writeFailure(w, h.logger, err, "Todo not found", "Failed to fetch todo")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// GetTodosByList returns the todos of one list in custom order
func (h *TodoHandler) GetTodosByList(w http.ResponseWriter, r *http.Request) {
	listName := mux.Vars(r)["listName"]
	writeJSON(w, http.StatusOK, h.store.GetTodosByList(listName))
}

// GetCounts returns how many todos each built-in view and list holds
func (h *TodoHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	counts := services.CountByView(h.store.GetTodos(), h.store.GetLists(), h.now())
	writeJSON(w, http.StatusOK, counts)
}

// CreateTodo validates and stores a new todo
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to create todo")
		return
	}

	var payload todoPayload
	if err := h.validator.Decode(services.SchemaInsertTodo, body, &payload); err != nil {
		writeFailure(w, h.logger, err, "", "Failed to create todo")
		return
	}
	in, err := payload.toInsert(h.now().Location())
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to create todo")
		return
	}

	todo := h.store.CreateTodo(in)
	h.logger.Debug("todo created", "id", todo.ID, "list", todo.ListName)
	writeJSON(w, http.StatusCreated, todo)
}

// UpdateTodo applies a partial edit to an existing todo
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, invalidIDMessage)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to update todo")
		return
	}

	var payload todoPayload
	if err := h.validator.Decode(services.SchemaUpdateTodo, body, &payload); err != nil {
		writeFailure(w, h.logger, err, "", "Failed to update todo")
		return
	}
	update, err := payload.toUpdate(id, h.now().Location())
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to update todo")
		return
	}

	todo, err := h.store.UpdateTodo(update)
	if err != nil {
		writeFailure(w, h.logger, err, "Todo not found", "Failed to update todo")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// DeleteTodo removes a todo
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, invalidIDMessage)
		return
	}

	if !h.store.DeleteTodo(id) {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	IDs []int `json:"ids"`
}

// ReorderTodos rewrites the custom order from a list of ids
func (h *TodoHandler) ReorderTodos(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to update todo order")
		return
	}

	var req reorderRequest
	if err := h.validator.Decode(services.SchemaReorder, body, &req); err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, "Invalid IDs format. Expected array of numbers.")
			return
		}
		writeFailure(w, h.logger, err, "", "Failed to update todo order")
		return
	}

	h.store.ReorderTodos(req.IDs)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
