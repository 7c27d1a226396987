package handlers

import (
	"net/http"

	"taskboard/backend/users-service/models"
	"taskboard/backend/users-service/services"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/httpx"

	"github.com/gorilla/mux"
)

type LoginHandler struct {
	UserService *services.UserService
}

func NewLoginHandler(userService *services.UserService) *LoginHandler {
	return &LoginHandler{UserService: userService}
}

func (h *LoginHandler) Register(r *mux.Router) {
	r.HandleFunc("/auth/login", h.Login)
	r.HandleFunc("/auth/change-password", h.ChangePassword)
}

// Login exchanges a username and password for a bearer token.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteMethodNotAllowed(w)
		return
	}

	var req models.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	resp, err := h.UserService.Login(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *LoginHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteMethodNotAllowed(w)
		return
	}

	caller, err := auth.FromRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req models.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.UserService.ChangePassword(r.Context(), caller, req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "Password changed successfully"})
}
