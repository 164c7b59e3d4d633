package server

import (
	"context"
	"net/http"
	"strings"

	"bosko/core/apperr"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	emailKey
)

// AuthMiddleware requires a valid session token in the Authorization header.
// Websocket clients cannot set headers, so /api/events also accepts ?token=.
func (s *Server) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, r, apperr.Unauthorized("Invalid authorization header format"))
				return
			}
			raw = strings.TrimSpace(parts[1])
		} else if r.URL.Path == "/api/events" {
			raw = r.URL.Query().Get("token")
		}
		if raw == "" {
			writeError(w, r, apperr.Unauthorized("Authorization header is required"))
			return
		}

		claims, err := s.Issuer.ParseToken(raw)
		if err != nil {
			writeError(w, r, apperr.Unauthorized("Invalid token"))
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			writeError(w, r, apperr.Unauthorized("Invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, emailKey, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// userIDFrom returns the authenticated user id. Only valid behind AuthMiddleware.
func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

func emailFrom(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}
