package server

import (
	"net/http"

	"bosko/core/apperr"
	"bosko/model"
)

// UserInfoHandler returns the caller's account summary with their profiles.
func (s *Server) UserInfoHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to load user", err))
		return
	}
	if user == nil {
		writeError(w, r, apperr.NotFound("User not found"))
		return
	}

	last, err := s.Tracks.LastPublishAt(ctx, userID)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to load last publish date", err))
		return
	}
	profiles, err := s.Profiles.ListByUser(ctx, userID)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to load profiles", err))
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}

	writeJSON(w, http.StatusOK, model.UserInfo{
		ID:            user.ID,
		Email:         user.Email,
		IsActive:      user.IsActive,
		CreatedAt:     user.CreatedAt,
		LastPublishAt: last,
		Settings:      user.Settings,
		Profiles:      profiles,
	})
}
