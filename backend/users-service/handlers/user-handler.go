package handlers

import (
	"net/http"

	"taskboard/backend/users-service/models"
	"taskboard/backend/users-service/services"
	"taskboard/backend/utils/apperrors"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/httpx"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	UserService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{UserService: userService}
}

func (h *UserHandler) Register(r *mux.Router) {
	r.HandleFunc("/users", h.Dispatch)
}

// Dispatch rejects non-admin callers before looking at the method.
func (h *UserHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.FromRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if !caller.IsAdmin() {
		httpx.WriteError(w, apperrors.Forbidden("Unauthorized. Only admins can list users."))
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.ListUsers(w, r, caller)
	case http.MethodPost:
		h.CreateUser(w, r, caller)
	default:
		httpx.WriteMethodNotAllowed(w)
	}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	users, err := h.UserService.ListUsers(r.Context(), caller)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	var req models.CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	message, err := h.UserService.CreateUser(r.Context(), caller, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, models.MessageResponse{Message: message})
}
