package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/CrowderSoup/todo-lists/database"
	"github.com/CrowderSoup/todo-lists/services"
)

// ListHandler handles list endpoints
type ListHandler struct {
	store     database.Store
	validator *services.Validator
	logger    *log.Logger
}

func NewListHandler(store database.Store, validator *services.Validator, logger *log.Logger) *ListHandler {
	return &ListHandler{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

func (h *ListHandler) GetLists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.GetLists())
}

// CreateList stores a new list. A name already in use is accepted.
func (h *ListHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeFailure(w, h.logger, err, "", "Failed to create list")
		return
	}

	var in database.InsertList
	if err := h.validator.Decode(services.SchemaInsertList, body, &in); err != nil {
		writeFailure(w, h.logger, err, "", "Failed to create list")
		return
	}

	list := h.store.CreateList(in)
	h.logger.Debug("list created", "id", list.ID, "name", list.Name)
	writeJSON(w, http.StatusCreated, list)
}

// DeleteList removes a list; todos filed under it keep their list name
func (h *ListHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, invalidIDMessage)
		return
	}

	if !h.store.DeleteList(id) {
		writeError(w, http.StatusNotFound, "List not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
