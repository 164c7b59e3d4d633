package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"bosko/core/apperr"
	"bosko/core/status"
	"bosko/logger"
	"bosko/model"
	"bosko/repository"

	"github.com/gorilla/mux"
)

// TrackView is a track with its derived status.
type TrackView struct {
	*model.Track
	ComputedStatus status.Status `json:"computed_status"`
}

// PendingTrackView adds short-lived download links for the linked files.
type PendingTrackView struct {
	TrackView
	BeatURL      *string `json:"beat_url"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

func viewOf(t *model.Track) TrackView {
	return TrackView{Track: t, ComputedStatus: status.OfTrack(t)}
}

func (s *Server) ownedTrack(ctx context.Context, userID int64, id string) (*model.Track, error) {
	t, err := s.Tracks.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to load track", err)
	}
	if t == nil {
		return nil, apperr.NotFound("Track not found")
	}
	if !t.OwnedBy(userID) {
		return nil, apperr.Forbidden("You do not have access to this track")
	}
	return t, nil
}

// linkableAsset checks that id names an asset of the caller with the expected type.
func (s *Server) linkableAsset(ctx context.Context, userID int64, id string, want model.AssetType) error {
	a, err := s.Assets.GetByID(ctx, id)
	if err != nil {
		return apperr.Internal("failed to load asset", err)
	}
	label := strings.ToLower(string(want))
	if a == nil {
		return apperr.NotFound("%s %s not found", label, id)
	}
	if a.UserID != userID {
		return apperr.Forbidden("You do not have access to %s %s", label, id)
	}
	if a.Type != want {
		return apperr.Validation("Asset %s is not a %s", id, label)
	}
	return nil
}

func (s *Server) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	filter, ok := status.ParseFilter(r.URL.Query().Get("status"))
	if !ok {
		writeError(w, r, apperr.Validation("Invalid status filter %q", r.URL.Query().Get("status")))
		return
	}
	opts := repository.TrackListOptions{
		PendingOnly:   filter == status.FilterPending,
		CompletedOnly: filter == status.FilterCompleted,
	}
	tracks, err := s.Tracks.ListByUser(r.Context(), userIDFrom(r.Context()), opts)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to list tracks", err))
		return
	}

	views := make([]TrackView, 0, len(tracks))
	for _, t := range tracks {
		v := viewOf(t)
		if filter.Match(t, v.ComputedStatus) {
			views = append(views, v)
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) sign(ctx context.Context, a *model.Asset) *string {
	if a == nil || a.StorageKey == "" {
		return nil
	}
	url, err := s.Store.Sign(ctx, a.StorageKey, s.SignedURLTTL)
	if err != nil {
		logger.Warn("failed to sign asset url", logger.String("asset_id", a.ID), logger.ErrorField(err))
		return nil
	}
	return &url
}

func (s *Server) PendingTracksHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracks, err := s.Tracks.ListByUser(ctx, userIDFrom(ctx), repository.TrackListOptions{PendingOnly: true})
	if err != nil {
		writeError(w, r, apperr.Internal("failed to list tracks", err))
		return
	}
	views := make([]PendingTrackView, 0, len(tracks))
	for _, t := range tracks {
		views = append(views, PendingTrackView{
			TrackView:    viewOf(t),
			BeatURL:      s.sign(ctx, t.Beat),
			ThumbnailURL: s.sign(ctx, t.Thumbnail),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	t, err := s.ownedTrack(r.Context(), userIDFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(t))
}

// CreateTrackRequest is the body of POST /api/tracks.
type CreateTrackRequest struct {
	Name        *string `json:"name"`
	PublishAt   *string `json:"publish_at"`
	BeatID      *string `json:"id_beat"`
	ThumbnailID *string `json:"id_thumbnail"`
	ProfileID   *string `json:"id_profile"`
}

func parsePublishAt(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, apperr.Validation("Invalid publish_at date")
	}
	t = t.UTC()
	return &t, nil
}

func (s *Server) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)

	var req CreateTrackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		writeError(w, r, apperr.Validation("Missing required field: name"))
		return
	}
	publishAt, err := parsePublishAt(req.PublishAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t := &model.Track{
		UserID:      userID,
		Name:        strings.TrimSpace(*req.Name),
		PublishAt:   publishAt,
		BeatID:      model.Ptr(model.Deref(req.BeatID)),
		ThumbnailID: model.Ptr(model.Deref(req.ThumbnailID)),
		ProfileID:   model.Ptr(model.Deref(req.ProfileID)),
	}
	if t.BeatID != nil {
		if err := s.linkableAsset(ctx, userID, *t.BeatID, model.AssetBeat); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if t.ThumbnailID != nil {
		if err := s.linkableAsset(ctx, userID, *t.ThumbnailID, model.AssetThumbnail); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if t.ProfileID != nil {
		if _, err := s.ownedProfile(ctx, userID, *t.ProfileID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := s.Tracks.Create(ctx, t); err != nil {
		writeError(w, r, apperr.Internal("failed to create track", err))
		return
	}
	logger.Info("track created", logger.String("track_id", t.ID), logger.Int64("user_id", userID))

	created, err := s.ownedTrack(ctx, userID, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(created))
}

// optionalString decodes a JSON string or null. Null and "" both clear the field.
func optionalString(raw json.RawMessage) (*string, error) {
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return model.Ptr(model.Deref(v)), nil
}

func (s *Server) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)
	id := mux.Vars(r)["id"]
	if _, err := s.ownedTrack(ctx, userID, id); err != nil {
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
		fields["name"] = strings.TrimSpace(name)
	}
	if raw, ok := body["publish_at"]; ok {
		v, err := optionalString(raw)
		if err != nil {
			writeError(w, r, apperr.Validation("Invalid publish_at date"))
			return
		}
		publishAt, err := parsePublishAt(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		fields["publish_at"] = publishAt
	}
	links := []struct {
		key  string
		want model.AssetType
	}{
		{"id_beat", model.AssetBeat},
		{"id_thumbnail", model.AssetThumbnail},
	}
	for _, l := range links {
		raw, ok := body[l.key]
		if !ok {
			continue
		}
		v, err := optionalString(raw)
		if err != nil {
			writeError(w, r, apperr.Validation("Invalid %s", l.key))
			return
		}
		if v != nil {
			if err := s.linkableAsset(ctx, userID, *v, l.want); err != nil {
				writeError(w, r, err)
				return
			}
		}
		fields[l.key] = v
	}
	if raw, ok := body["id_profile"]; ok {
		v, err := optionalString(raw)
		if err != nil {
			writeError(w, r, apperr.Validation("Invalid id_profile"))
			return
		}
		if v != nil {
			if _, err := s.ownedProfile(ctx, userID, *v); err != nil {
				writeError(w, r, err)
				return
			}
		}
		fields["id_profile"] = v
	}
	if len(fields) == 0 {
		writeError(w, r, apperr.Validation("No fields to update"))
		return
	}

	if err := s.Tracks.Update(ctx, id, fields); err != nil {
		writeError(w, r, apperr.Internal("failed to update track", err))
		return
	}
	updated, err := s.ownedTrack(ctx, userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(updated))
}

func (s *Server) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Pipeline.DeleteTrack(r.Context(), userIDFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RunTrackHandler drives a track through every stage it has left.
func (s *Server) RunTrackHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := s.Pipeline.Run(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id_track": id, "computed_status": st})
}
