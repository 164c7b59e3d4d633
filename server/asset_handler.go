package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"bosko/core/apperr"
	"bosko/logger"
	"bosko/model"
	"bosko/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
)

var (
	audioTypes = []string{"audio/mpeg", "audio/wav", "audio/x-wav", "audio/vnd.wave", "audio/flac", "audio/ogg", "audio/mp3"}
	imageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/jpg"}
)

// upload is a parsed multipart asset upload.
type upload struct {
	Type      model.AssetType
	Name      string
	MimeType  string
	ProfileID string
	Data      []byte
}

// sniff detects the content type and checks it against the allow-list for t.
func sniff(t model.AssetType, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	allowed := audioTypes
	if t == model.AssetThumbnail {
		allowed = imageTypes
	}
	for _, a := range allowed {
		if mt.Is(a) {
			return mt.String(), nil
		}
	}
	return "", apperr.Validation("Unsupported file type %s for %s", mt.String(), t)
}

// readUpload parses the multipart fields file, type, name and id_profile.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, apperr.Validation("Failed to parse multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, apperr.Validation("Missing 'file' in form")
	}
	defer file.Close()

	t := model.AssetType(strings.ToUpper(r.FormValue("type")))
	if !t.Valid() {
		return nil, apperr.Validation(`Invalid type. Must be "BEAT" or "THUMBNAIL"`)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Validation("Failed to read file")
	}
	if len(data) == 0 {
		return nil, apperr.Validation("Invalid file")
	}
	mime, err := sniff(t, data)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}
	return &upload{
		Type:      t,
		Name:      name,
		MimeType:  mime,
		ProfileID: strings.TrimSpace(r.FormValue("id_profile")),
		Data:      data,
	}, nil
}

func (s *Server) ownedAsset(ctx context.Context, userID int64, id string) (*model.Asset, error) {
	a, err := s.Assets.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to load asset", err)
	}
	if a == nil {
		return nil, apperr.NotFound("Asset not found")
	}
	if a.UserID != userID {
		return nil, apperr.Forbidden("You do not have access to this asset")
	}
	return a, nil
}

// AssetView is an asset with a signed download link.
type AssetView struct {
	*model.Asset
	URL *string `json:"url"`
}

func (s *Server) ListAssetsHandler(w http.ResponseWriter, r *http.Request) {
	t := model.AssetType(strings.ToUpper(r.URL.Query().Get("type")))
	if t != "" && !t.Valid() {
		writeError(w, r, apperr.Validation("Invalid type"))
		return
	}
	assets, err := s.Assets.ListByUser(r.Context(), userIDFrom(r.Context()), t)
	if err != nil {
		writeError(w, r, apperr.Internal("failed to list assets", err))
		return
	}
	views := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, AssetView{Asset: a, URL: s.sign(r.Context(), a)})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) UploadAssetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)

	up, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var profileID *string
	if up.ProfileID != "" {
		if _, err := s.ownedProfile(ctx, userID, up.ProfileID); err != nil {
			writeError(w, r, err)
			return
		}
		profileID = &up.ProfileID
	}

	key := storage.AssetKey(up.Type, up.Name, s.Now())
	url, err := s.Store.Put(ctx, key, bytes.NewReader(up.Data), int64(len(up.Data)), up.MimeType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	asset := &model.Asset{
		UserID:     userID,
		ProfileID:  profileID,
		Name:       up.Name,
		Type:       up.Type,
		StorageKey: key,
		MimeType:   up.MimeType,
	}
	if err := s.Assets.Create(ctx, asset); err != nil {
		if derr := s.Store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			logger.Warn("cleanup delete failed", logger.String("key", key), logger.ErrorField(derr))
		}
		writeError(w, r, apperr.Internal("failed to save asset", err))
		return
	}

	logger.Info("asset uploaded",
		logger.String("asset_id", asset.ID),
		logger.String("key", key),
		logger.Int("size", len(up.Data)))
	writeJSON(w, http.StatusCreated, AssetView{Asset: asset, URL: &url})
}

func (s *Server) StreamAssetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := s.ownedAsset(ctx, userIDFrom(ctx), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	obj, err := s.Store.Stream(ctx, a.StorageKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = a.MimeType
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		logger.Warn("asset stream interrupted", logger.String("asset_id", a.ID), logger.ErrorField(err))
	}
}

func (s *Server) DeleteAssetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := s.ownedAsset(ctx, userIDFrom(ctx), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Assets.Unlink(ctx, a.ID); err != nil {
		writeError(w, r, apperr.Internal("failed to unlink asset", err))
		return
	}
	if err := s.Store.Delete(ctx, a.StorageKey); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		writeError(w, r, err)
		return
	}
	if err := s.Assets.Delete(ctx, a.ID); err != nil {
		writeError(w, r, apperr.Internal("failed to delete asset", err))
		return
	}
	logger.Info("asset deleted", logger.String("asset_id", a.ID))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
