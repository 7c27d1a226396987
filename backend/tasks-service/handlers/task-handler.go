package handlers

import (
	"net/http"

	"taskboard/backend/tasks-service/models"
	"taskboard/backend/tasks-service/services"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/httpx"

	"github.com/gorilla/mux"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Register mounts /tasks on r. Preflight is answered by httpx.EnableCORS
// before the router sees the request.
func (h *TaskHandler) Register(r *mux.Router) {
	r.HandleFunc("/tasks", h.Dispatch)
}

// Dispatch resolves the caller and routes by method.
func (h *TaskHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.FromRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.ListTasks(w, r, caller)
	case http.MethodPost:
		h.CreateTask(w, r, caller)
	case http.MethodPut:
		h.UpdateTask(w, r, caller)
	default:
		httpx.WriteMethodNotAllowed(w)
	}
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	tasks, err := h.service.ListTasks(r.Context(), caller)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	var req models.CreateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	task, err := h.service.CreateTask(r.Context(), caller, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	var req models.UpdateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	task, err := h.service.UpdateTask(r.Context(), caller, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.UpdateTaskResponse{
		Message:     "Task updated successfully",
		UpdatedTask: task,
	})
}
