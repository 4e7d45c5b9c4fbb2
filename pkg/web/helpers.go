package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// GetUserEmail retrieves the caller's email from the request context.
// Returns the email and a boolean indicating success.
func GetUserEmail(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	email, ok := r.Context().Value(userEmailKey{}).(string)
	if !ok || email == "" {
		RespondError(w, logger, http.StatusUnauthorized, "Unauthorized: Missing or invalid user email")
		return "", false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		RespondError(w, logger, http.StatusBadRequest, "Invalid user email: "+email)
		return "", false
	}
	return email, true
}
