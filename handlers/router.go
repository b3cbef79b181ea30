package handlers

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/CrowderSoup/todo-lists/database"
	"github.com/CrowderSoup/todo-lists/services"
)

// RouterConfig carries everything the API needs. Now defaults to time.Now.
type RouterConfig struct {
	Store       database.Store
	Validator   *services.Validator
	Auth        *services.AuthService
	Logger      *log.Logger
	CORSOrigins []string
	Now         func() time.Time
}

// NewRouter wires every /api route and wraps them in the request id, access
// log, panic recovery and CORS middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	todoHandler := NewTodoHandler(cfg.Store, cfg.Validator, cfg.Logger, cfg.Now)
	listHandler := NewListHandler(cfg.Store, cfg.Validator, cfg.Logger)
	authHandler := NewAuthHandler(cfg.Auth, cfg.Validator, cfg.Logger)
	logging := NewLoggingMiddleware(cfg.Logger)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()

	// Todo routes; fixed paths before {id}
	api.HandleFunc("/todos", todoHandler.GetTodos).Methods(http.MethodGet)
	api.HandleFunc("/todos", todoHandler.CreateTodo).Methods(http.MethodPost)
	api.HandleFunc("/todos/counts", todoHandler.GetCounts).Methods(http.MethodGet)
	api.HandleFunc("/todos/reorder", todoHandler.ReorderTodos).Methods(http.MethodPost)
	api.HandleFunc("/todos/list/{listName}", todoHandler.GetTodosByList).Methods(http.MethodGet)
	api.HandleFunc("/todos/{id}", todoHandler.GetTodo).Methods(http.MethodGet)
	api.HandleFunc("/todos/{id}", todoHandler.UpdateTodo).Methods(http.MethodPatch)
	api.HandleFunc("/todos/{id}", todoHandler.DeleteTodo).Methods(http.MethodDelete)

	// List routes
	api.HandleFunc("/lists", listHandler.GetLists).Methods(http.MethodGet)
	api.HandleFunc("/lists", listHandler.CreateList).Methods(http.MethodPost)
	api.HandleFunc("/lists/{id}", listHandler.DeleteList).Methods(http.MethodDelete)

	// User and token routes
	api.HandleFunc("/users", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/verify", authHandler.VerifyToken).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	})

	return c.Handler(RequestID(logging.AccessLog(logging.Recover(r))))
}
