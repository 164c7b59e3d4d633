package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bosko/core/apperr"
	"bosko/model"

	"github.com/gorilla/mux"
)

// ownedProfile loads a profile and checks it belongs to userID.
func (s *Server) ownedProfile(ctx context.Context, userID int64, id string) (*model.Profile, error) {
	p, err := s.Profiles.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}
	if p == nil {
		return nil, apperr.NotFound("Profile not found")
	}
	if p.UserID != userID {
		return nil, apperr.Forbidden("You do not have access to this profile")
	}
	return p, nil
}

// ownedCredential loads an OAuth record and checks it belongs to userID.
func (s *Server) ownedCredential(ctx context.Context, userID, id int64) (*model.OAuthCredential, error) {
	cred, err := s.Credentials.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to load oauth record", err)
	}
	if cred == nil {
		return nil, apperr.NotFound("OAuth record not found")
	}
	if cred.UserID != userID {
		return nil, apperr.Forbidden("OAuth record does not belong to user")
	}
	return cred, nil
}

func (s *Server) writeProfile(w http.ResponseWriter, r *http.Request, code int, id string) {
	p, err := s.Profiles.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to load profile", err))
		return
	}
	if p == nil {
		writeError(w, r, apperr.NotFound("Profile not found"))
		return
	}
	if p.Connections == nil {
		p.Connections = []model.ProfileConnection{}
	}
	writeJSON(w, code, p)
}

func (s *Server) ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.Profiles.ListByUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, apperr.Internal("failed to list profiles", err))
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string         `json:"name"`
		Settings model.Settings `json:"settings"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, apperr.Validation("Name is required"))
		return
	}

	p := &model.Profile{UserID: userIDFrom(r.Context()), Name: req.Name, Settings: req.Settings}
	if err := s.Profiles.Create(r.Context(), p); err != nil {
		writeError(w, r, apperr.Internal("failed to create profile", err))
		return
	}
	s.writeProfile(w, r, http.StatusCreated, p.ID)
}

func (s *Server) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.ownedProfile(r.Context(), userIDFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.ownedProfile(r.Context(), userIDFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}

	var body map[string]json.RawMessage
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	fields := map[string]interface{}{}
	if raw, ok := body["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil || strings.TrimSpace(name) == "" {
			writeError(w, r, apperr.Validation("Invalid name"))
			return
		}
		fields["name"] = name
	}
	if raw, ok := body["settings"]; ok {
		var settings model.Settings
		if err := json.Unmarshal(raw, &settings); err != nil {
			writeError(w, r, apperr.Validation("Invalid settings"))
			return
		}
		fields["settings"] = settings
	}
	if len(fields) == 0 {
		writeError(w, r, apperr.Validation("No fields to update"))
		return
	}

	if err := s.Profiles.Update(r.Context(), id, fields); err != nil {
		writeError(w, r, apperr.Internal("failed to update profile", err))
		return
	}
	s.writeProfile(w, r, http.StatusOK, id)
}

func (s *Server) DeleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.ownedProfile(r.Context(), userIDFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Profiles.Delete(r.Context(), id); err != nil {
		writeError(w, r, apperr.Internal("failed to delete profile", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func parsePlatform(s string) (model.Platform, error) {
	p := model.Platform(strings.ToUpper(s))
	if !p.Valid() {
		return "", apperr.Validation(`Invalid platform. Must be "YOUTUBE" or "BEATSTARS"`)
	}
	return p, nil
}

func (s *Server) CreateConnectionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	profileID := mux.Vars(r)["id"]
	if _, err := s.ownedProfile(ctx, userID, profileID); err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		Platform string               `json:"platform"`
		OAuthID  *int64               `json:"id_oauth"`
		Meta     model.ConnectionMeta `json:"meta"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	platform, err := parsePlatform(req.Platform)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.OAuthID == nil {
		writeError(w, r, apperr.Validation("id_oauth is required and must be a number"))
		return
	}
	cred, err := s.ownedCredential(ctx, userID, *req.OAuthID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cred.Platform != platform {
		writeError(w, r, apperr.Validation("OAuth record is for %s, not %s", cred.Platform, platform))
		return
	}

	existing, err := s.Profiles.GetConnection(ctx, profileID, platform)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to load connection", err))
		return
	}
	if existing != nil {
		writeError(w, r, apperr.Validation("Profile already has a %s connection", platform))
		return
	}

	conn := &model.ProfileConnection{ProfileID: profileID, Platform: platform, OAuthID: cred.ID, Meta: req.Meta}
	if err := s.Profiles.CreateConnection(ctx, conn); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeProfile(w, r, http.StatusCreated, profileID)
}

func (s *Server) UpdateConnectionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	vars := mux.Vars(r)
	profileID := vars["id"]
	if _, err := s.ownedProfile(ctx, userID, profileID); err != nil {
		writeError(w, r, err)
		return
	}
	platform, err := parsePlatform(vars["platform"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	existing, err := s.Profiles.GetConnection(ctx, profileID, platform)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to load connection", err))
		return
	}
	if existing == nil {
		writeError(w, r, apperr.NotFound("Connection not found"))
		return
	}

	var body map[string]json.RawMessage
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	fields := map[string]interface{}{}
	if raw, ok := body["meta"]; ok {
		var meta model.ConnectionMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			writeError(w, r, apperr.Validation("Invalid meta"))
			return
		}
		fields["meta"] = meta
	}
	if raw, ok := body["id_oauth"]; ok {
		var oauthID int64
		if err := json.Unmarshal(raw, &oauthID); err != nil {
			writeError(w, r, apperr.Validation("id_oauth must be a number"))
			return
		}
		cred, err := s.ownedCredential(ctx, userID, oauthID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if cred.Platform != platform {
			writeError(w, r, apperr.Validation("OAuth record is for %s, not %s", cred.Platform, platform))
			return
		}
		fields["id_oauth"] = oauthID
	}
	if len(fields) == 0 {
		writeError(w, r, apperr.Validation("No fields to update"))
		return
	}

	if err := s.Profiles.UpdateConnection(ctx, profileID, platform, fields); err != nil {
		writeError(w, r, apperr.Internal("failed to update connection", err))
		return
	}
	s.writeProfile(w, r, http.StatusOK, profileID)
}

func (s *Server) DeleteConnectionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	profileID := vars["id"]
	if _, err := s.ownedProfile(ctx, userIDFrom(ctx), profileID); err != nil {
		writeError(w, r, err)
		return
	}
	platform, err := parsePlatform(vars["platform"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	existing, err := s.Profiles.GetConnection(ctx, profileID, platform)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to load connection", err))
		return
	}
	if existing == nil {
		writeError(w, r, apperr.NotFound("Connection not found"))
		return
	}
	if err := s.Profiles.DeleteConnection(ctx, profileID, platform); err != nil {
		writeError(w, r, apperr.Internal("failed to delete connection", err))
		return
	}
	s.writeProfile(w, r, http.StatusOK, profileID)
}
