package handlers

import (
	"context"
	"net/http"
	"time"

	"taskboard/backend/notifications-service/models"
	"taskboard/backend/notifications-service/services"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/httpx"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/notify"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
)

type NotificationHandler struct {
	service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) Register(r *mux.Router) {
	r.HandleFunc("/notifications", h.GetNotifications).Methods(http.MethodGet)
	r.HandleFunc("/notifications/read", h.MarkNotificationAsRead).Methods(http.MethodPut)
}

// GetNotifications lists the caller's history; admins may pass ?assignedTo=.
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.FromRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	notifications, err := h.service.List(r.Context(), caller, r.URL.Query().Get("assignedTo"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkNotificationAsRead(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.FromRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req models.MarkReadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.service.MarkRead(r.Context(), caller, req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// Subscriber stores every message received on the notification topic.
// Failures are logged and the subscription keeps running.
func (h *NotificationHandler) Subscriber(timeout time.Duration) nats.MsgHandler {
	return func(m *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := h.service.HandleMessage(ctx, notify.DecodeMessage(m)); err != nil {
			logging.Logger.Errorf("Event ID: NOTIFICATION_STORE_FAILED, Description: Failed to store notification from %s: %v", m.Subject, err)
		}
	}
}
