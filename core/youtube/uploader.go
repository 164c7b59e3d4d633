// Package youtube uploads rendered videos to a YouTube channel.
package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"bosko/core/apperr"
	"bosko/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// MusicCategory is the YouTube "Music" category id.
const MusicCategory = "10"

const maxTitleLength = 100

// DefaultTimeout bounds one video upload.
const DefaultTimeout = 5 * time.Minute

// WatchURL returns the public URL of a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Video is one upload request.
type Video struct {
	Title       string
	Description string
	PublishAt   *time.Time // a future time schedules the video
	Body        io.Reader
}

// Uploader inserts videos on behalf of the token owner.
type Uploader struct {
	httpClient *http.Client
	timeout    time.Duration
	opts       []option.ClientOption
	now        func() time.Time
}

// NewUploader creates an Uploader. httpClient is the transport under the OAuth layer; nil uses http.DefaultClient.
// Each upload is abandoned after timeout, or DefaultTimeout when it is not positive.
func NewUploader(httpClient *http.Client, timeout time.Duration, opts ...option.ClientOption) *Uploader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Uploader{httpClient: httpClient, timeout: timeout, opts: opts, now: time.Now}
}

// Upload inserts the video and returns its id.
func (u *Uploader) Upload(ctx context.Context, tok *oauth2.Token, v Video) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, u.httpClient), oauth2.StaticTokenSource(tok))
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, u.opts...)

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return "", apperr.Internal("failed to create YouTube client", err)
	}

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       cleanTitle(v.Title),
			Description: strings.ReplaceAll(strings.ReplaceAll(v.Description, "<", ""), ">", ""),
			CategoryId:  MusicCategory,
		},
		Status: u.status(v.PublishAt),
	}

	start := time.Now()
	resp, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(v.Body).Context(ctx).Do()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperr.Timeout("YouTube upload did not finish within %s", u.timeout)
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
			return "", apperr.AuthRejected("YOUTUBE", err)
		}
		return "", apperr.Protocol("YouTube upload failed", err)
	}
	if resp.Id == "" {
		return "", apperr.Protocol("YouTube upload returned no video id", nil)
	}

	logger.Info("video uploaded",
		logger.String("video_id", resp.Id),
		logger.String("privacy", video.Status.PrivacyStatus),
		logger.Duration("elapsed", time.Since(start)))
	return resp.Id, nil
}

// status schedules a future publish time as a private video; anything else goes public immediately.
func (u *Uploader) status(publishAt *time.Time) *yt.VideoStatus {
	st := &yt.VideoStatus{
		PrivacyStatus:           "public",
		SelfDeclaredMadeForKids: false,
		ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
	}
	if publishAt != nil && publishAt.After(u.now()) {
		st.PrivacyStatus = "private"
		st.PublishAt = publishAt.UTC().Format(time.RFC3339)
	}
	return st
}

// cleanTitle drops the characters YouTube rejects and caps the length.
func cleanTitle(title string) string {
	title = strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(title))
	if title == "" {
		return "Untitled"
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		runes := []rune(title)
		title = string(runes[:maxTitleLength])
	}
	return title
}
