package rest

import (
	"log"
	"net/http"

	"baseoff-import/internal/transport/auth"
)

// me returns the authenticated operator's profile, including the active
// company affiliation their imports are logged under.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		log.Printf("[HTTP] me error: %v", err)
		ErrorNotFound(w, "user not found")
		return
	}

	Success(w, "", map[string]interface{}{
		"id":         user.ID,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"username":   user.Username,
		"email":      user.Email,
		"phone":      user.Phone,
		"company":    user.Company,
	})
}
