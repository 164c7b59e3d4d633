package server

import (
	"net/http"
	"strings"

	"bosko/core/apperr"
	"bosko/core/auth"
	"bosko/logger"
)

// LoginRequest is the login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler checks credentials and returns a session token.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, r, apperr.Validation("Email and password are required"))
		return
	}

	user, err := s.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to load user", err))
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Warn("login failed", logger.String("email", req.Email))
		writeError(w, r, apperr.Unauthorized("Invalid email or password"))
		return
	}
	if !user.IsActive {
		writeError(w, r, apperr.Forbidden("Account is disabled"))
		return
	}

	token, err := s.Issuer.IssueToken(user.ID, user.Email)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to issue token", err))
		return
	}

	logger.Info("login", logger.Int64("user_id", user.ID))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// CheckHandler reports the identity behind a valid token.
func (s *Server) CheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"id_user": userIDFrom(r.Context()),
		"email":   emailFrom(r.Context()),
	})
}
