package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskboard/backend/utils/apperrors"
	"taskboard/backend/utils/logging"
)

// CORSHeaders are merged into every response regardless of handler.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,Authorization,X-Api-Key",
	"Access-Control-Allow-Methods": "GET,POST,PUT,OPTIONS",
}

// EnableCORS sets the fixed cross-origin headers and answers preflight
// requests itself, before any authorization runs.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORSHeaders(w.Header())

		if r.Method == http.MethodOptions {
			WriteJSON(w, http.StatusOK, map[string]string{"message": "CORS preflight successful"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func SetCORSHeaders(h http.Header) {
	for k, v := range CORSHeaders {
		h.Set(k, v)
	}
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response body: %v", err)
	}
}

// StatusCode maps the error taxonomy onto HTTP status codes.
func StatusCode(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindBadRequest:
		return http.StatusBadRequest
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes {"error": message}. Internal failures are logged with
// their cause but only the client-safe message is returned.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	message := "Internal server error"

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	if status == http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %v", err)
	} else {
		logging.Logger.Warnf("Event ID: REQUEST_REJECTED, Description: %v", err)
	}

	WriteJSON(w, status, map[string]string{"error": message})
}

func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method Not Allowed"})
}

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperrors.BadRequest("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.BadRequest("invalid request body: %v", err)
	}
	return nil
}
