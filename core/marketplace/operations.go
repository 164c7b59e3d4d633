package marketplace

import (
	"context"
	"time"

	"bosko/core/apperr"
)

const (
	opCreateAsset   = "createAssetFile"
	opAddTrack      = "AddTrack"
	opAttachAudio   = "attachMainAudio"
	opAttachArtwork = "trackFormAttachArtwork"
	opGetTrack      = "GetTrack"
	opPublish       = "PublishTrackForm"
)

const createAssetQuery = `mutation createAssetFile($file: FileUploadInput!) {
  create(file: $file) {
    id
    expirationDate
    file {
      type
      contentType
    }
  }
}`

const addTrackQuery = `mutation AddTrack {
  addTrack {
    id
  }
}`

const attachAudioQuery = `mutation attachMainAudio($id: String!, $assetId: String!) {
  attachMainAudioFile(id: $id, assetId: $assetId, encodeRelatedFiles: false)
}`

const attachArtworkQuery = `mutation trackFormAttachArtwork($itemId: String!, $assetId: String!) {
  attachArtwork(itemId: $itemId, assetId: $assetId)
}`

const getTrackQuery = `query GetTrack($id: String!) {
  member {
    id
    inventory {
      track(id: $id) {
        id
        shareUrl
        bundle {
          progress
          error
          stream {
            assetId
          }
        }
      }
    }
  }
}`

const publishQuery = `mutation PublishTrackForm($id: String!, $track: TrackInput!, $contracts: [ContractAttachmentInput], $collaborations: [CollaborationInput]) {
  publishTrack(id: $id, track: $track, contracts: $contracts, collaborations: $collaborations) {
    id
    shareUrl
  }
}`

// Processing states reported in bundle.progress.
const (
	ProgressPending  = "PENDING"
	ProgressComplete = "COMPLETE"
	ProgressError    = "ERROR"
)

// RemoteAsset is an asset slot registered on the marketplace.
type RemoteAsset struct {
	ID             string `json:"id"`
	ExpirationDate string `json:"expirationDate"`
	File           struct {
		Type        string `json:"type"`
		ContentType string `json:"contentType"`
	} `json:"file"`
}

// CreateAssetFile registers a new asset slot. The binary must then be sent with UploadForm + Upload.
func (c *Client) CreateAssetFile(ctx context.Context, token, fileName, contentType string) (*RemoteAsset, error) {
	var out struct {
		Create *RemoteAsset `json:"create"`
	}
	vars := map[string]interface{}{
		"file": map[string]string{"fileName": fileName, "contentType": contentType},
	}
	if err := c.call(ctx, token, opCreateAsset, vars, createAssetQuery, &out); err != nil {
		return nil, err
	}
	if out.Create == nil || out.Create.ID == "" {
		return nil, apperr.Protocol("marketplace createAssetFile returned no asset id", nil)
	}
	return out.Create, nil
}

// CreateTrack creates an empty track shell and returns its id.
func (c *Client) CreateTrack(ctx context.Context, token string) (string, error) {
	var out struct {
		AddTrack *struct {
			ID string `json:"id"`
		} `json:"addTrack"`
	}
	if err := c.call(ctx, token, opAddTrack, nil, addTrackQuery, &out); err != nil {
		return "", err
	}
	if out.AddTrack == nil || out.AddTrack.ID == "" {
		return "", apperr.Protocol("marketplace AddTrack returned no track id", nil)
	}
	return out.AddTrack.ID, nil
}

// AttachAudio sets the main audio file of a track shell.
func (c *Client) AttachAudio(ctx context.Context, token, trackID, assetID string) error {
	return c.call(ctx, token, opAttachAudio, map[string]interface{}{
		"id":      trackID,
		"assetId": assetID,
	}, attachAudioQuery, nil)
}

// AttachArtwork sets the cover image of a track shell.
func (c *Client) AttachArtwork(ctx context.Context, token, trackID, assetID string) error {
	return c.call(ctx, token, opAttachArtwork, map[string]interface{}{
		"itemId":  trackID,
		"assetId": assetID,
	}, attachArtworkQuery, nil)
}

// TrackState is the subset of a remote track needed to drive publication.
type TrackState struct {
	ID          string
	ShareURL    string
	Progress    string
	BundleError string
	HasStream   bool
}

// GetTrack fetches the processing state of a remote track.
func (c *Client) GetTrack(ctx context.Context, token, trackID string) (*TrackState, error) {
	var out struct {
		Member *struct {
			Inventory *struct {
				Track *struct {
					ID       string  `json:"id"`
					ShareURL *string `json:"shareUrl"`
					Bundle   *struct {
						Progress string  `json:"progress"`
						Error    *string `json:"error"`
						Stream   *struct {
							AssetID string `json:"assetId"`
						} `json:"stream"`
					} `json:"bundle"`
				} `json:"track"`
			} `json:"inventory"`
		} `json:"member"`
	}
	if err := c.call(ctx, token, opGetTrack, map[string]interface{}{"id": trackID}, getTrackQuery, &out); err != nil {
		return nil, err
	}
	if out.Member == nil || out.Member.Inventory == nil || out.Member.Inventory.Track == nil {
		return nil, apperr.Protocol("marketplace track "+trackID+" not found", nil)
	}

	t := out.Member.Inventory.Track
	state := &TrackState{ID: t.ID}
	if t.ShareURL != nil {
		state.ShareURL = *t.ShareURL
	}
	if t.Bundle != nil {
		state.Progress = t.Bundle.Progress
		if t.Bundle.Error != nil {
			state.BundleError = *t.Bundle.Error
		}
		state.HasStream = t.Bundle.Stream != nil && t.Bundle.Stream.AssetID != ""
	}
	return state, nil
}

// Metadata is the listing information sent on publish.
type Metadata struct {
	Title       string
	Description string
	ReleaseDate time.Time
	Tags        []string
	Genres      []string
	BPM         string
}

func (m Metadata) trackInput() map[string]interface{} {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}
	return map[string]interface{}{
		"category":                 "BEAT",
		"description":              m.Description,
		"excludeFromBulkDiscounts": false,
		"metadata": map[string]interface{}{
			"tags":        tags,
			"genres":      genres,
			"bpmDouble":   m.BPM,
			"instruments": []string{},
			"keyNote":     "NONE",
			"moods":       []string{},
		},
		"releaseDate":              m.ReleaseDate.UTC().Format(time.RFC3339),
		"thirdPartyLoopsAndSample": []string{},
		"title":                    m.Title,
		"visibility":               "PUBLIC",
		"boostCampaign":            false,
		"freeDownloadSettings": map[string]interface{}{
			"enabled":  false,
			"fileType": "TAGGED_MP3",
			"mode":     "EMAIL_CAPTURE",
			"socialPlatforms": map[string]bool{
				"beatStars":  false,
				"soundCloud": false,
				"twitter":    false,
			},
		},
	}
}

// Publish makes the track public and returns its share URL.
// A successful response without a share URL is treated as a failure.
func (c *Client) Publish(ctx context.Context, token, trackID string, meta Metadata) (string, error) {
	if meta.ReleaseDate.IsZero() {
		meta.ReleaseDate = time.Now()
	}
	var out struct {
		PublishTrack *struct {
			ID       string  `json:"id"`
			ShareURL *string `json:"shareUrl"`
		} `json:"publishTrack"`
	}
	vars := map[string]interface{}{
		"id":             trackID,
		"track":          meta.trackInput(),
		"collaborations": []interface{}{},
		"contracts":      []interface{}{},
	}
	if err := c.call(ctx, token, opPublish, vars, publishQuery, &out); err != nil {
		return "", err
	}
	if out.PublishTrack == nil || out.PublishTrack.ShareURL == nil || *out.PublishTrack.ShareURL == "" {
		return "", apperr.Protocol("marketplace publish returned no share url", nil)
	}
	return *out.PublishTrack.ShareURL, nil
}
