package api

import (
	"net/http"
	"time"
)

type whoAmIResponse struct {
	Message   string    `json:"message"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleWhoAmI echoes the verified admin identity.
func handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	writeJSON(w, http.StatusOK, whoAmIResponse{
		Message:   "Logged in as admin",
		Email:     id.Email,
		Subject:   id.Subject,
		ExpiresAt: id.ExpiresAt,
	})
}
