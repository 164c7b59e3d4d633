package publish

import (
	"bytes"
	"context"
	"strings"

	"bosko/core/apperr"
	"bosko/core/events"
	"bosko/core/marketplace"
	"bosko/logger"
	"bosko/model"
	"bosko/storage"

	"golang.org/x/sync/errgroup"
)

// MarketplaceResult is the outcome of a marketplace publish.
type MarketplaceResult struct {
	TrackID       string `json:"id_track"`
	ShareURL      string `json:"share_link"`
	RemoteTrackID string `json:"beatstars_id_track"`
	Skipped       bool   `json:"skipped"`
}

// ImportRequest is a file uploaded straight to the marketplace.
type ImportRequest struct {
	Type      model.AssetType
	Name      string
	MimeType  string
	ProfileID string
	Data      []byte
}

// normalizeMime maps content types the marketplace does not accept to their canonical form.
func normalizeMime(mime string) string {
	switch strings.ToLower(mime) {
	case "audio/vnd.wave", "audio/x-wav", "audio/wave":
		return "audio/wav"
	case "audio/mp3":
		return "audio/mpeg"
	case "image/jpg":
		return "image/jpeg"
	}
	return mime
}

func (o *Orchestrator) memberID(ctx context.Context, profileID *string) string {
	if id := o.connectionMeta(ctx, profileID, model.PlatformBeatstars).MemberID; id != "" {
		return id
	}
	return o.MemberID
}

// pushToMarketplace runs the two-phase remote upload: register the asset, then post the bytes to the presigned form.
func (o *Orchestrator) pushToMarketplace(ctx context.Context, accessToken, name, mime, memberID string, data []byte) (string, error) {
	fileName := marketplace.Slug(name)
	remote, err := o.Marketplace.CreateAssetFile(ctx, accessToken, fileName, mime)
	if err != nil {
		return "", err
	}
	form, err := o.Marketplace.UploadForm(ctx, remote, fileName, mime, memberID)
	if err != nil {
		return "", err
	}
	if err := o.Marketplace.Upload(ctx, form, fileName, mime, data); err != nil {
		return "", err
	}
	return remote.ID, nil
}

// UploadAssetToMarketplace uploads a stored asset to the marketplace once.
// An asset that already has a marketplace id is returned unchanged without any remote call.
func (o *Orchestrator) UploadAssetToMarketplace(ctx context.Context, userID int64, assetID string) (*model.Asset, error) {
	if _, err := o.loadAsset(ctx, userID, assetID); err != nil {
		return nil, err
	}
	unlock, err := o.Locker.Lock(ctx, "asset:"+assetID)
	if err != nil {
		return nil, apperr.Internal("failed to lock asset", err)
	}
	defer unlock()

	asset, err := o.loadAsset(ctx, userID, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Uploaded() {
		logger.Info("asset already on marketplace",
			logger.String("asset_id", asset.ID),
			logger.String("remote_id", *asset.MarketplaceID))
		o.emit(userID, events.Event{Type: events.TypeStageSkipped, AssetID: asset.ID, Stage: StageMarketplaceUpload})
		return asset, nil
	}

	logger.Info("uploading asset to marketplace", logger.String("asset_id", asset.ID), logger.String("key", asset.StorageKey))
	o.emit(userID, events.Event{Type: events.TypeStageStarted, AssetID: asset.ID, Stage: StageMarketplaceUpload})

	remoteID, err := o.uploadStored(ctx, asset)
	if err != nil {
		logger.Error("marketplace asset upload failed", logger.String("asset_id", asset.ID), logger.ErrorField(err))
		o.emit(userID, events.Event{Type: events.TypeStageFailed, AssetID: asset.ID, Stage: StageMarketplaceUpload, Message: apperr.From(err).Message})
		return nil, err
	}

	asset.MarketplaceID = &remoteID
	o.emit(userID, events.Event{Type: events.TypeStageCompleted, AssetID: asset.ID, Stage: StageMarketplaceUpload})
	return asset, nil
}

func (o *Orchestrator) uploadStored(ctx context.Context, asset *model.Asset) (string, error) {
	accessToken, err := o.MarketplaceTokens.AccessToken(ctx, ownerOf(asset.UserID, asset.ProfileID))
	if err != nil {
		return "", err
	}
	data, err := o.Store.Get(ctx, asset.StorageKey)
	if err != nil {
		return "", err
	}
	remoteID, err := o.pushToMarketplace(ctx, accessToken.AccessToken, asset.Name, normalizeMime(asset.MimeType), o.memberID(ctx, asset.ProfileID), data)
	if err != nil {
		return "", err
	}
	if err := o.Assets.SetMarketplaceID(ctx, asset.ID, remoteID); err != nil {
		return "", apperr.Internal("failed to save marketplace id", err)
	}
	return remoteID, nil
}

// ImportAsset stores a new file and uploads it to the marketplace in parallel,
// then records the asset with its marketplace id.
func (o *Orchestrator) ImportAsset(ctx context.Context, userID int64, req ImportRequest) (*model.Asset, error) {
	if !req.Type.Valid() {
		return nil, apperr.Validation("invalid asset type %q", req.Type)
	}
	if len(req.Data) == 0 {
		return nil, apperr.Validation("Invalid file")
	}
	var profileID *string
	if req.ProfileID != "" {
		p := o.profile(ctx, &req.ProfileID)
		if p == nil {
			return nil, apperr.NotFound("profile %s not found", req.ProfileID)
		}
		if p.UserID != userID {
			return nil, apperr.Forbidden("you do not have permission to use profile %s", req.ProfileID)
		}
		profileID = &req.ProfileID
	}

	mime := normalizeMime(req.MimeType)
	accessToken, err := o.MarketplaceTokens.AccessToken(ctx, ownerOf(userID, profileID))
	if err != nil {
		return nil, err
	}

	name := marketplace.Slug(req.Name)
	key := storage.AssetKey(req.Type, name, o.Now())
	memberID := o.memberID(ctx, profileID)
	o.emit(userID, events.Event{Type: events.TypeStageStarted, Stage: StageImport, Message: name})

	var remoteID string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := o.Store.Put(gctx, key, bytes.NewReader(req.Data), int64(len(req.Data)), mime)
		return err
	})
	g.Go(func() error {
		id, err := o.pushToMarketplace(gctx, accessToken.AccessToken, name, mime, memberID, req.Data)
		remoteID = id
		return err
	})
	if err := g.Wait(); err != nil {
		o.deleteQuietly(ctx, key, "import failed")
		o.emit(userID, events.Event{Type: events.TypeStageFailed, Stage: StageImport, Message: apperr.From(err).Message})
		return nil, err
	}

	asset := &model.Asset{
		UserID:        userID,
		ProfileID:     profileID,
		Name:          name,
		Type:          req.Type,
		StorageKey:    key,
		MimeType:      mime,
		MarketplaceID: &remoteID,
	}
	if err := o.Assets.Create(ctx, asset); err != nil {
		o.deleteQuietly(ctx, key, "asset record not saved")
		return nil, apperr.Internal("failed to save asset", err)
	}

	logger.Info("asset imported",
		logger.String("asset_id", asset.ID),
		logger.String("remote_id", remoteID),
		logger.String("key", key))
	o.emit(userID, events.Event{Type: events.TypeStageCompleted, AssetID: asset.ID, Stage: StageImport})
	return asset, nil
}

// PublishToMarketplace creates, fills and publishes the remote track.
// A track that already has a share URL is returned as is without any remote call.
func (o *Orchestrator) PublishToMarketplace(ctx context.Context, userID int64, trackID string) (*MarketplaceResult, error) {
	t, unlock, err := o.lockTrack(ctx, userID, trackID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if share := model.Deref(t.ShareURL); share != "" {
		logger.Info("track already on marketplace", logger.String("track_id", t.ID))
		o.emit(userID, events.Event{Type: events.TypeStageSkipped, TrackID: t.ID, Stage: StageMarketplacePublish})
		return &MarketplaceResult{
			TrackID:       t.ID,
			ShareURL:      share,
			RemoteTrackID: model.Deref(t.MarketplaceTrackID),
			Skipped:       true,
		}, nil
	}

	beat, thumbnail, err := linkedAssets(t)
	if err != nil {
		return nil, o.fail(ctx, t, StageMarketplacePublish, err)
	}
	if !beat.Uploaded() {
		return nil, o.fail(ctx, t, StageMarketplacePublish, apperr.Validation("Invalid beat: not uploaded"))
	}
	if !thumbnail.Uploaded() {
		return nil, o.fail(ctx, t, StageMarketplacePublish, apperr.Validation("Invalid thumbnail: not uploaded"))
	}

	logger.Info("publishing track to marketplace", logger.String("track_id", t.ID))
	o.emit(userID, events.Event{Type: events.TypeStageStarted, TrackID: t.ID, Stage: StageMarketplacePublish})

	res, err := o.publishRemote(ctx, t, *beat.MarketplaceID, *thumbnail.MarketplaceID)
	if err != nil {
		return nil, o.fail(ctx, t, StageMarketplacePublish, err)
	}

	err = o.Tracks.Update(ctx, t.ID, map[string]interface{}{
		"beatstars_id_track": res.RemoteTrackID,
		"beatstars_url":      res.ShareURL,
		"error_message":      nil,
	})
	if err != nil {
		return nil, apperr.Internal("failed to save marketplace result", err)
	}

	logger.Info("track published to marketplace",
		logger.String("track_id", t.ID),
		logger.String("remote_track_id", res.RemoteTrackID),
		logger.String("share_url", res.ShareURL))
	o.emit(userID, events.Event{Type: events.TypeStageCompleted, TrackID: t.ID, Stage: StageMarketplacePublish, Message: res.ShareURL})
	return res, nil
}

func (o *Orchestrator) publishRemote(ctx context.Context, t *model.Track, audioID, artworkID string) (*MarketplaceResult, error) {
	accessToken, err := o.MarketplaceTokens.AccessToken(ctx, ownerOf(t.UserID, t.ProfileID))
	if err != nil {
		return nil, err
	}
	tok := accessToken.AccessToken

	remoteID, err := o.Marketplace.CreateTrack(ctx, tok)
	if err != nil {
		return nil, err
	}
	if err := o.Marketplace.AttachAudio(ctx, tok, remoteID, audioID); err != nil {
		return nil, err
	}
	if err := o.Marketplace.AttachArtwork(ctx, tok, remoteID, artworkID); err != nil {
		return nil, err
	}
	if err := o.Marketplace.WaitForProcessing(ctx, tok, remoteID); err != nil {
		return nil, err
	}

	meta := o.connectionMeta(ctx, t.ProfileID, model.PlatformBeatstars)
	md := marketplace.Metadata{
		Title:       t.Name,
		Description: meta.Description,
		Tags:        meta.Tags,
		Genres:      meta.Genres,
		BPM:         meta.BPM,
	}
	if t.PublishAt != nil {
		md.ReleaseDate = *t.PublishAt
	}
	shareURL, err := o.Marketplace.Publish(ctx, tok, remoteID, md)
	if err != nil {
		return nil, err
	}
	return &MarketplaceResult{TrackID: t.ID, ShareURL: shareURL, RemoteTrackID: remoteID}, nil
}

// linkedAssets is the link check: both links set and resolvable.
func linkedAssets(t *model.Track) (*model.Asset, *model.Asset, error) {
	if model.Deref(t.BeatID) == "" || model.Deref(t.ThumbnailID) == "" {
		return nil, nil, apperr.Validation("Track is missing required assets: beat or thumbnail")
	}
	if t.Beat == nil {
		return nil, nil, apperr.NotFound("beat %s not found", *t.BeatID)
	}
	if t.Thumbnail == nil {
		return nil, nil, apperr.NotFound("thumbnail %s not found", *t.ThumbnailID)
	}
	return t.Beat, t.Thumbnail, nil
}
