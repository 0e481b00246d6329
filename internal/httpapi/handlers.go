package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"todolist/internal/model"
	"todolist/internal/validation"
)

// TodoService is the backend the handlers drive.
type TodoService interface {
	List(ctx context.Context, filters model.Filters) ([]model.Todo, error)
	Get(ctx context.Context, id uint) (*model.Todo, error)
	Create(ctx context.Context, draft model.Draft) (*model.Todo, error)
	Update(ctx context.Context, id uint, patch model.Patch) (*model.Todo, error)
	SetCompleted(ctx context.Context, id uint, completed bool) (*model.Todo, error)
	Delete(ctx context.Context, id uint) error
	Reorder(ctx context.Context, ids []uint) error
	Move(ctx context.Context, activeID, overID uint) ([]model.Todo, model.MoveResult, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// CompletionRequest is the body of PUT /api/todos/{id}/completion.
type CompletionRequest struct {
	Completed bool `json:"completed"`
}

// OrderRequest is the body of PUT /api/todos/order.
type OrderRequest struct {
	IDs []uint `json:"ids"`
}

// MoveRequest is the body of POST /api/todos/move.
type MoveRequest struct {
	ActiveID uint `json:"activeId"`
	OverID   uint `json:"overId"`
}

// ErrorResponse is returned for every failed request. Fields is set for validation failures.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields validation.Errors `json:"errors,omitempty"`
}

// Handlers holds the service, allowing methods to share it.
type Handlers struct {
	todos  TodoService
	logger *log.Logger
}

func NewHandlers(todos TodoService, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{todos: todos, logger: logger}
}

// NewRouter wires every route and the middleware.
func NewRouter(todos TodoService, logger *log.Logger) http.Handler {
	h := NewHandlers(todos, logger)

	router := mux.NewRouter()
	router.Use(WithRequestID, WithAccessLog(h.logger), WithRecover(h.logger))

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/todos", h.ListTodos).Methods(http.MethodGet)
	api.HandleFunc("/todos", h.CreateTodo).Methods(http.MethodPost)
	api.HandleFunc("/todos/order", h.ReorderTodos).Methods(http.MethodPut)
	api.HandleFunc("/todos/move", h.MoveTodo).Methods(http.MethodPost)
	api.HandleFunc("/todos/{id:[0-9]+}", h.GetTodo).Methods(http.MethodGet)
	api.HandleFunc("/todos/{id:[0-9]+}", h.UpdateTodo).Methods(http.MethodPatch)
	api.HandleFunc("/todos/{id:[0-9]+}", h.DeleteTodo).Methods(http.MethodDelete)
	api.HandleFunc("/todos/{id:[0-9]+}/completion", h.SetCompletion).Methods(http.MethodPut)
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)

	return router
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) ListTodos(w http.ResponseWriter, r *http.Request) {
	filters, err := model.ParseFilters(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	todos, err := h.todos.List(r.Context(), filters)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *Handlers) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	todo, err := h.todos.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *Handlers) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var draft model.Draft
	if !decode(w, r, &draft) {
		return
	}
	todo, err := h.todos.Create(r.Context(), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Printf("[info] todo created id=%d request=%s", todo.ID, RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, todo)
}

func (h *Handlers) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch model.Patch
	if !decode(w, r, &patch) {
		return
	}
	todo, err := h.todos.Update(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *Handlers) SetCompletion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CompletionRequest
	if !decode(w, r, &req) {
		return
	}
	todo, err := h.todos.SetCompleted(r.Context(), id, req.Completed)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *Handlers) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.todos.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Printf("[info] todo deleted id=%d request=%s", id, RequestIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ReorderTodos(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.todos.Reorder(r.Context(), req.IDs); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) MoveTodo(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decode(w, r, &req) {
		return
	}
	todos, _, err := h.todos.Move(r.Context(), req.ActiveID, req.OverID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.todos.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// fail maps service errors to status codes.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	noteError(w, err)
	var fields validation.Errors
	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Fields: fields})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "todo not found")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		h.logger.Printf("%s %s request=%s: %v", r.Method, r.URL.Path, RequestIDFromContext(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return 0, false
	}
	return uint(id), true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
