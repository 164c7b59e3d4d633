// Package status derives a track's lifecycle stage from the fields it has set.
package status

import "bosko/model"

// Status is the computed lifecycle stage of a track. It is never persisted.
type Status string

const (
	Created                   Status = "created"
	PartialAssets             Status = "partial_assets"
	AssetsLinked              Status = "assets_linked"
	AssetsUploadedMarketplace Status = "assets_uploaded_marketplace"
	PublishedMarketplace      Status = "published_marketplace"
	Completed                 Status = "completed"
	Error                     Status = "error"
)

// All lists every status in precedence order, highest first.
var All = []Status{
	Completed,
	PublishedMarketplace,
	AssetsUploadedMarketplace,
	AssetsLinked,
	PartialAssets,
	Error,
	Created,
}

// Projection is the read-only view of a track that Derive needs.
type Projection struct {
	HasVideoURL       bool
	HasShareURL       bool
	BeatLinked        bool
	ThumbnailLinked   bool
	BeatUploaded      bool
	ThumbnailUploaded bool
	HasError          bool
}

// Derive maps a projection to exactly one status. First match wins.
func Derive(p Projection) Status {
	switch {
	case p.HasVideoURL:
		return Completed
	case p.HasShareURL:
		return PublishedMarketplace
	case p.BeatLinked && p.ThumbnailLinked:
		if p.BeatUploaded && p.ThumbnailUploaded {
			return AssetsUploadedMarketplace
		}
		return AssetsLinked
	case p.BeatLinked || p.ThumbnailLinked:
		return PartialAssets
	case p.HasError:
		return Error
	default:
		return Created
	}
}

// FromTrack builds a projection from a track and its resolved assets.
// A link whose asset could not be resolved (nil) counts as absent.
func FromTrack(t *model.Track, beat, thumbnail *model.Asset) Projection {
	beatLinked := t.BeatID != nil && *t.BeatID != "" && beat != nil
	thumbLinked := t.ThumbnailID != nil && *t.ThumbnailID != "" && thumbnail != nil
	return Projection{
		HasVideoURL:       model.Deref(t.VideoURL) != "",
		HasShareURL:       model.Deref(t.ShareURL) != "",
		BeatLinked:        beatLinked,
		ThumbnailLinked:   thumbLinked,
		BeatUploaded:      beatLinked && beat.Uploaded(),
		ThumbnailUploaded: thumbLinked && thumbnail.Uploaded(),
		HasError:          model.Deref(t.ErrorMessage) != "",
	}
}

// OfTrack derives the status of a track using its preloaded Beat and Thumbnail.
func OfTrack(t *model.Track) Status {
	return Derive(FromTrack(t, t.Beat, t.Thumbnail))
}

// Parse converts s to a Status.
func Parse(s string) (Status, bool) {
	for _, st := range All {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}
