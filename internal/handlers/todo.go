package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/taskboard/apiserver/internal/auth"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
)

const todoNotFound = "todo not found"

// TodoHandler exposes the task store over HTTP. Clients call a task's
// title "text"; the translation happens here and nowhere else.
type TodoHandler struct {
	taskService *services.TaskService
}

// NewTodoHandler constructs a handler with the provided service.
func NewTodoHandler(taskService *services.TaskService) *TodoHandler {
	return &TodoHandler{taskService: taskService}
}

// TodoRouter registers todo routes on the given router. Every route
// requires authentication.
func TodoRouter(r chi.Router, taskService *services.TaskService, gate Authenticator) {
	handler := NewTodoHandler(taskService)

	r.Use(RequireAuth(gate))
	r.Get("/", handler.ListTodos)
	r.Post("/", handler.CreateTodo)
	r.Get("/stats", handler.Stats)
	r.Route("/{todoID}", func(r chi.Router) {
		r.Put("/", handler.UpdateTodo)
		r.Delete("/", handler.DeleteTodo)
		r.Patch("/toggle", handler.ToggleTodo)
	})
}

func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err, todoNotFound)
		return
	}

	todos := make([]TodoResponse, 0, len(tasks))
	for _, task := range tasks {
		todos = append(todos, newTodoResponse(task))
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.taskService.Create(r.Context(), ownerID, req.Text, req.Description)
	if err != nil {
		writeServiceError(w, r, err, todoNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, newTodoResponse(task))
}

func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.taskService.Update(r.Context(), ownerID, chi.URLParam(r, "todoID"), types.TaskPatch{
		Title:       req.Text,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		writeServiceError(w, r, err, todoNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newTodoResponse(task))
}

func (h *TodoHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Toggle(r.Context(), ownerID, chi.URLParam(r, "todoID"))
	if err != nil {
		writeServiceError(w, r, err, todoNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newTodoResponse(task))
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), ownerID, chi.URLParam(r, "todoID")); err != nil {
		writeServiceError(w, r, err, todoNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Todo deleted"})
}

func (h *TodoHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	stats, err := h.taskService.Stats(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err, todoNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type CreateTodoRequest struct {
	Text        string `json:"text"`
	Description string `json:"description"`
}

// UpdateTodoRequest holds the fields a PUT may change. Absent fields are
// left untouched.
type UpdateTodoRequest struct {
	Text        *string `json:"text"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type TodoResponse struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTodoResponse(task types.Task) TodoResponse {
	return TodoResponse{
		ID:          task.ID,
		Text:        task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func ownerFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return "", false
	}
	return ownerID, true
}
