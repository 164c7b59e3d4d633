package publish

import (
	"context"

	"bosko/core/apperr"
	"bosko/core/status"
	"bosko/logger"
	"bosko/model"
)

// Run drives a track through every remaining stage in order and returns the resulting status.
// Stages already done are skipped by their own gates.
func (o *Orchestrator) Run(ctx context.Context, userID int64, trackID string) (status.Status, error) {
	t, err := o.loadTrack(ctx, userID, trackID)
	if err != nil {
		return "", err
	}

	if model.Deref(t.ShareURL) == "" {
		beat, thumbnail, err := linkedAssets(t)
		if err != nil {
			return status.OfTrack(t), err
		}
		for _, a := range []*model.Asset{beat, thumbnail} {
			if a.Uploaded() {
				continue
			}
			if _, err := o.UploadAssetToMarketplace(ctx, userID, a.ID); err != nil {
				return o.currentStatus(ctx, trackID), err
			}
		}
		if _, err := o.PublishToMarketplace(ctx, userID, trackID); err != nil {
			return o.currentStatus(ctx, trackID), err
		}
	}

	if _, err := o.PublishToVideoPlatform(ctx, userID, trackID); err != nil {
		return o.currentStatus(ctx, trackID), err
	}
	return o.currentStatus(ctx, trackID), nil
}

func (o *Orchestrator) currentStatus(ctx context.Context, trackID string) status.Status {
	t, err := o.Tracks.GetByID(context.WithoutCancel(ctx), trackID)
	if err != nil || t == nil {
		return status.Error
	}
	return status.OfTrack(t)
}

// DeleteTrack removes the track and, best effort, its linked assets and their stored files.
func (o *Orchestrator) DeleteTrack(ctx context.Context, userID int64, trackID string) error {
	t, unlock, err := o.lockTrack(ctx, userID, trackID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := o.Tracks.Delete(ctx, t.ID); err != nil {
		return apperr.Internal("failed to delete track", err)
	}

	for _, a := range []*model.Asset{t.Beat, t.Thumbnail} {
		if a == nil || a.UserID != userID {
			continue
		}
		o.deleteQuietly(ctx, a.StorageKey, "track deleted")
		// Other tracks may still point at the asset.
		if err := o.Assets.Unlink(context.WithoutCancel(ctx), a.ID); err != nil {
			logger.Warn("failed to unlink asset", logger.String("asset_id", a.ID), logger.ErrorField(err))
			continue
		}
		if err := o.Assets.Delete(context.WithoutCancel(ctx), a.ID); err != nil {
			logger.Warn("failed to delete asset record",
				logger.String("asset_id", a.ID),
				logger.String("track_id", t.ID),
				logger.ErrorField(err))
		}
	}

	logger.Info("track deleted", logger.String("track_id", t.ID))
	return nil
}
