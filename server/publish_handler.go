package server

import (
	"net/http"
	"strings"

	"bosko/core/apperr"
	"bosko/core/publish"
	"bosko/core/token"
	"bosko/logger"

	"github.com/gorilla/mux"
)

type trackRequest struct {
	TrackID string `json:"id_track"`
}

func readTrackRequest(r *http.Request) (string, error) {
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.TrackID) == "" {
		return "", apperr.Validation("Missing required field: id_track")
	}
	return req.TrackID, nil
}

// MarketplaceUploadHandler uploads one stored asset to the marketplace.
func (s *Server) MarketplaceUploadHandler(w http.ResponseWriter, r *http.Request) {
	asset, err := s.Pipeline.UploadAssetToMarketplace(r.Context(), userIDFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// MarketplaceImportHandler stores a new file and uploads it to the marketplace in one request.
func (s *Server) MarketplaceImportHandler(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	asset, err := s.Pipeline.ImportAsset(r.Context(), userIDFrom(r.Context()), publish.ImportRequest{
		Type:      up.Type,
		Name:      up.Name,
		MimeType:  up.MimeType,
		ProfileID: up.ProfileID,
		Data:      up.Data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// MarketplacePublishHandler publishes a track on the marketplace.
func (s *Server) MarketplacePublishHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := readTrackRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Pipeline.PublishToMarketplace(r.Context(), userIDFrom(r.Context()), trackID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// VideoPublishHandler renders and uploads a track's video.
func (s *Server) VideoPublishHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := readTrackRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Pipeline.PublishToVideoPlatform(r.Context(), userIDFrom(r.Context()), trackID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GoogleAuthHandler returns the consent URL. ?profile= links the account to that profile.
func (s *Server) GoogleAuthHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	profileID := r.URL.Query().Get("profile")
	if profileID != "" {
		if _, err := s.ownedProfile(ctx, userID, profileID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	state, err := s.Issuer.SignState(userID, profileID)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to sign state", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": s.Linker.AuthURL(state)})
}

// GoogleCallbackHandler completes the consent flow. It is reached by a browser
// redirect, so the caller is identified by the signed state instead of a session.
func (s *Server) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeError(w, r, apperr.Validation("Authorization was not granted: %s", e))
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, r, apperr.Validation("Missing code"))
		return
	}
	state, err := s.Issuer.ParseState(q.Get("state"))
	if err != nil {
		writeError(w, r, apperr.Unauthorized("Invalid or expired state"))
		return
	}

	owner := token.Owner{UserID: state.UserID, ProfileID: state.ProfileID}
	cred, err := s.Linker.Exchange(r.Context(), owner, code, "YouTube")
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("video platform account linked",
		logger.Int64("user_id", owner.UserID),
		logger.String("profile_id", owner.ProfileID),
		logger.Int64("oauth_id", cred.ID))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"id_oauth":   cred.ID,
		"id_profile": owner.ProfileID,
	})
}
