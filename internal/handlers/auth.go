package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/woodentreasures/playhouse-server/internal/utils"
)

// login authenticates an admin and returns access/refresh tokens
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := r.store.GetUserByEmail(body.Email)
	if err != nil || !utils.CheckPasswordHash(body.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	accessToken, refreshToken, err := utils.GenerateTokens(user, r.jwtSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}
