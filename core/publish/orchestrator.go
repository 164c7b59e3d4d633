// Package publish drives a track through the distribution pipeline:
// marketplace asset upload, marketplace publish, then video publish.
// Every stage is gated on the field it produces, so calling it again after
// success is a no-op.
package publish

import (
	"context"
	"time"
	"unicode/utf8"

	"bosko/core/apperr"
	"bosko/core/events"
	"bosko/core/lock"
	"bosko/core/marketplace"
	"bosko/core/render"
	"bosko/core/status"
	"bosko/core/token"
	"bosko/core/youtube"
	"bosko/logger"
	"bosko/model"
	"bosko/storage"

	"golang.org/x/oauth2"
)

// Stage names reported in events and logs.
const (
	StageMarketplaceUpload  = "marketplace_upload"
	StageMarketplacePublish = "marketplace_publish"
	StageVideoPublish       = "video_publish"
	StageImport             = "import"
)

// TrackStore is the track persistence the orchestrator needs.
type TrackStore interface {
	GetByID(ctx context.Context, id string) (*model.Track, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// AssetRecords is the asset persistence the orchestrator needs.
type AssetRecords interface {
	Create(ctx context.Context, asset *model.Asset) error
	GetByID(ctx context.Context, id string) (*model.Asset, error)
	SetMarketplaceID(ctx context.Context, id, marketplaceID string) error
	Delete(ctx context.Context, id string) error
	Unlink(ctx context.Context, id string) error
}

// ProfileReader resolves publishing defaults.
type ProfileReader interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
}

// Marketplace is the remote marketplace protocol.
type Marketplace interface {
	CreateAssetFile(ctx context.Context, token, fileName, contentType string) (*marketplace.RemoteAsset, error)
	UploadForm(ctx context.Context, asset *marketplace.RemoteAsset, fileName, contentType, memberID string) (*marketplace.Form, error)
	Upload(ctx context.Context, form *marketplace.Form, fileName, contentType string, data []byte) error
	CreateTrack(ctx context.Context, token string) (string, error)
	AttachAudio(ctx context.Context, token, trackID, assetID string) error
	AttachArtwork(ctx context.Context, token, trackID, assetID string) error
	WaitForProcessing(ctx context.Context, token, trackID string) error
	Publish(ctx context.Context, token, trackID string, meta marketplace.Metadata) (string, error)
}

// TokenSource issues platform access tokens.
type TokenSource interface {
	AccessToken(ctx context.Context, owner token.Owner) (*oauth2.Token, error)
}

// VideoUploader inserts a rendered video on the video platform.
type VideoUploader interface {
	Upload(ctx context.Context, tok *oauth2.Token, v youtube.Video) (string, error)
}

// Deps are the collaborators of an Orchestrator. Events and Locker default to no-op and in-memory.
type Deps struct {
	Tracks            TrackStore
	Assets            AssetRecords
	Profiles          ProfileReader
	Marketplace       Marketplace
	MarketplaceTokens TokenSource
	VideoTokens       TokenSource
	Store             storage.AssetStore
	Renderer          render.Renderer
	Videos            VideoUploader
	Locker            lock.Locker
	Events            events.Publisher

	// MemberID is the marketplace uploader id used when a profile connection has none.
	MemberID string
	Now      func() time.Time
}

// Orchestrator runs the publication stages.
type Orchestrator struct {
	Deps
}

// New creates an Orchestrator.
func New(d Deps) *Orchestrator {
	if d.Locker == nil {
		d.Locker = lock.NewMemoryLocker()
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Orchestrator{Deps: d}
}

// ComputeStatus derives a track's status from the track and its resolved assets.
func (o *Orchestrator) ComputeStatus(t *model.Track, beat, thumbnail *model.Asset) status.Status {
	return status.Derive(status.FromTrack(t, beat, thumbnail))
}

func ownerOf(userID int64, profileID *string) token.Owner {
	return token.Owner{UserID: userID, ProfileID: model.Deref(profileID)}
}

// loadTrack returns the track if it exists and belongs to userID.
func (o *Orchestrator) loadTrack(ctx context.Context, userID int64, trackID string) (*model.Track, error) {
	t, err := o.Tracks.GetByID(ctx, trackID)
	if err != nil {
		return nil, apperr.Internal("failed to load track", err)
	}
	if t == nil {
		return nil, apperr.NotFound("track %s not found", trackID)
	}
	if !t.OwnedBy(userID) {
		return nil, apperr.Forbidden("you do not have permission to modify track %s", trackID)
	}
	return t, nil
}

func (o *Orchestrator) loadAsset(ctx context.Context, userID int64, assetID string) (*model.Asset, error) {
	a, err := o.Assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, apperr.Internal("failed to load asset", err)
	}
	if a == nil {
		return nil, apperr.NotFound("asset %s not found", assetID)
	}
	if a.UserID != userID {
		return nil, apperr.Forbidden("you do not have permission to use asset %s", assetID)
	}
	return a, nil
}

// lockTrack checks ownership, takes the track lock and reloads the track under it.
func (o *Orchestrator) lockTrack(ctx context.Context, userID int64, trackID string) (*model.Track, lock.Unlock, error) {
	if _, err := o.loadTrack(ctx, userID, trackID); err != nil {
		return nil, nil, err
	}
	unlock, err := o.Locker.Lock(ctx, "track:"+trackID)
	if err != nil {
		return nil, nil, apperr.Internal("failed to lock track", err)
	}
	t, err := o.loadTrack(ctx, userID, trackID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return t, unlock, nil
}

// profile returns the track's profile, or nil when it has none or it no longer exists.
func (o *Orchestrator) profile(ctx context.Context, profileID *string) *model.Profile {
	id := model.Deref(profileID)
	if id == "" || o.Profiles == nil {
		return nil
	}
	p, err := o.Profiles.GetByID(ctx, id)
	if err != nil {
		logger.Warn("failed to load profile defaults", logger.String("profile_id", id), logger.ErrorField(err))
		return nil
	}
	return p
}

func (o *Orchestrator) connectionMeta(ctx context.Context, profileID *string, platform model.Platform) model.ConnectionMeta {
	p := o.profile(ctx, profileID)
	if p == nil {
		return model.ConnectionMeta{}
	}
	if conn := p.Connection(platform); conn != nil {
		return conn.Meta
	}
	return model.ConnectionMeta{}
}

func (o *Orchestrator) emit(userID int64, ev events.Event) {
	o.Events.Publish(userID, ev)
}

const maxErrorMessage = 1000

// fail reports a stage failure. Upstream, storage and internal failures are
// recorded on the track so the status reflects them; a request the caller
// has to fix leaves the track untouched.
func (o *Orchestrator) fail(ctx context.Context, t *model.Track, stage string, err error) error {
	e := apperr.From(err)
	o.emit(t.UserID, events.Event{Type: events.TypeStageFailed, TrackID: t.ID, Stage: stage, Message: e.Message})
	if e.Kind == apperr.KindValidation || e.Kind == apperr.KindNotFound {
		logger.Info("publication stage rejected",
			logger.String("stage", stage),
			logger.String("track_id", t.ID),
			logger.ErrorField(err))
		return err
	}

	// The request may already be cancelled; the record still has to be written.
	msg := truncateMessage(err.Error(), maxErrorMessage)
	if uerr := o.Tracks.Update(context.WithoutCancel(ctx), t.ID, map[string]interface{}{"error_message": msg}); uerr != nil {
		logger.Error("failed to record track error",
			logger.String("track_id", t.ID),
			logger.ErrorField(uerr))
	}
	logger.Error("publication stage failed",
		logger.String("stage", stage),
		logger.String("track_id", t.ID),
		logger.ErrorField(err))
	return err
}

// truncateMessage cuts msg to at most limit bytes without splitting a rune.
func truncateMessage(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	msg = msg[:limit]
	for len(msg) > 0 {
		if r, size := utf8.DecodeLastRuneInString(msg); r != utf8.RuneError || size > 1 {
			break
		}
		msg = msg[:len(msg)-1]
	}
	return msg
}

// deleteQuietly removes a storage key, logging instead of failing.
func (o *Orchestrator) deleteQuietly(ctx context.Context, key, reason string) {
	if key == "" {
		return
	}
	if err := o.Store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("cleanup delete failed",
			logger.String("key", key),
			logger.String("reason", reason),
			logger.ErrorField(err))
	}
}
