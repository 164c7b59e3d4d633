package publish

import (
	"bytes"
	"context"

	"bosko/core/apperr"
	"bosko/core/events"
	"bosko/core/render"
	"bosko/core/youtube"
	"bosko/logger"
	"bosko/model"
)

// VideoResult is the outcome of a video publish.
type VideoResult struct {
	TrackID  string `json:"id_track"`
	VideoURL string `json:"yt_url"`
	Skipped  bool   `json:"skipped"`
}

// PublishToVideoPlatform renders the track video, uploads it and purges the source files.
// A track that already has a video URL is returned as is.
func (o *Orchestrator) PublishToVideoPlatform(ctx context.Context, userID int64, trackID string) (*VideoResult, error) {
	t, unlock, err := o.lockTrack(ctx, userID, trackID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if url := model.Deref(t.VideoURL); url != "" {
		logger.Info("track already on video platform", logger.String("track_id", t.ID))
		o.emit(userID, events.Event{Type: events.TypeStageSkipped, TrackID: t.ID, Stage: StageVideoPublish})
		return &VideoResult{TrackID: t.ID, VideoURL: url, Skipped: true}, nil
	}
	if model.Deref(t.ShareURL) == "" {
		return nil, o.fail(ctx, t, StageVideoPublish, apperr.Validation("Track must be published to the marketplace first"))
	}
	beat, thumbnail, err := linkedAssets(t)
	if err != nil {
		return nil, o.fail(ctx, t, StageVideoPublish, err)
	}

	logger.Info("publishing track to video platform", logger.String("track_id", t.ID))
	o.emit(userID, events.Event{Type: events.TypeStageStarted, TrackID: t.ID, Stage: StageVideoPublish})

	videoID, err := o.renderAndUpload(ctx, t, beat, thumbnail)
	if err != nil {
		return nil, o.fail(ctx, t, StageVideoPublish, err)
	}

	url := youtube.WatchURL(videoID)
	if err := o.Tracks.Update(ctx, t.ID, map[string]interface{}{
		"yt_url":        url,
		"error_message": nil,
	}); err != nil {
		return nil, apperr.Internal("failed to save video url", err)
	}

	o.deleteQuietly(ctx, beat.StorageKey, "source beat published")
	o.deleteQuietly(ctx, thumbnail.StorageKey, "source thumbnail published")

	logger.Info("track published to video platform",
		logger.String("track_id", t.ID),
		logger.String("video_url", url))
	o.emit(userID, events.Event{Type: events.TypeStageCompleted, TrackID: t.ID, Stage: StageVideoPublish, Message: url})
	return &VideoResult{TrackID: t.ID, VideoURL: url}, nil
}

func (o *Orchestrator) renderAndUpload(ctx context.Context, t *model.Track, beat, thumbnail *model.Asset) (string, error) {
	// Fetch the token first so an unlinked account fails before the render.
	tok, err := o.VideoTokens.AccessToken(ctx, ownerOf(t.UserID, t.ProfileID))
	if err != nil {
		return "", err
	}

	out, err := o.Renderer.Render(ctx, render.Input{
		AudioKey: beat.StorageKey,
		ImageKey: thumbnail.StorageKey,
		Label:    t.Name,
	})
	if out != nil {
		defer o.deleteQuietly(ctx, out.TempKey, "rendered video staged")
	}
	if err != nil {
		return "", err
	}

	meta := o.connectionMeta(ctx, t.ProfileID, model.PlatformYouTube)
	return o.Videos.Upload(ctx, tok, youtube.Video{
		Title:       t.Name,
		Description: meta.Description,
		PublishAt:   t.PublishAt,
		Body:        bytes.NewReader(out.Video),
	})
}
