package youtube

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bosko/core/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

type captured struct {
	auth  string
	query map[string]string
	meta  yt.Video
	media []byte
}

func fakeYouTube(t *testing.T, status int, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/youtube/v3/videos", r.URL.Path)
		got.auth = r.Header.Get("Authorization")
		got.query = map[string]string{
			"part":       r.URL.Query().Get("part"),
			"uploadType": r.URL.Query().Get("uploadType"),
		}

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if assert.NoError(t, err) {
			mr := multipart.NewReader(r.Body, params["boundary"])
			if part, err := mr.NextPart(); assert.NoError(t, err) {
				assert.NoError(t, json.NewDecoder(part).Decode(&got.meta))
			}
			if part, err := mr.NextPart(); assert.NoError(t, err) {
				got.media, _ = io.ReadAll(part)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			io.WriteString(w, `{"id":"vid123","kind":"youtube#video"}`)
			return
		}
		io.WriteString(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestUploader(srv *httptest.Server, now time.Time) *Uploader {
	u := NewUploader(srv.Client(), 0, option.WithEndpoint(srv.URL+"/"))
	u.now = func() time.Time { return now }
	return u
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", WatchURL("abc"))
}

func TestUploadPublic(t *testing.T) {
	var got captured
	srv := fakeYouTube(t, http.StatusOK, &got)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	id, err := newTestUploader(srv, now).Upload(context.Background(), &oauth2.Token{AccessToken: "ya29"}, Video{
		Title:       "Test Beat <free>",
		Description: "prod. by me",
		PublishAt:   &past,
		Body:        strings.NewReader("mp4-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "vid123", id)

	assert.Equal(t, "Bearer ya29", got.auth)
	assert.Equal(t, "snippet,status", got.query["part"])
	assert.Equal(t, "multipart", got.query["uploadType"])
	assert.Equal(t, "Test Beat free", got.meta.Snippet.Title)
	assert.Equal(t, MusicCategory, got.meta.Snippet.CategoryId)
	assert.Equal(t, "public", got.meta.Status.PrivacyStatus)
	assert.Empty(t, got.meta.Status.PublishAt)
	assert.Equal(t, []byte("mp4-bytes"), got.media)
}

func TestUploadScheduled(t *testing.T) {
	var got captured
	srv := fakeYouTube(t, http.StatusOK, &got)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)

	_, err := newTestUploader(srv, now).Upload(context.Background(), &oauth2.Token{AccessToken: "t"}, Video{
		Title:     "Scheduled",
		PublishAt: &future,
		Body:      strings.NewReader("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "private", got.meta.Status.PrivacyStatus)
	assert.Equal(t, "2025-01-03T00:00:00Z", got.meta.Status.PublishAt)
}

func TestUploadRejectedToken(t *testing.T) {
	var got captured
	srv := fakeYouTube(t, http.StatusUnauthorized, &got)

	_, err := newTestUploader(srv, time.Now()).Upload(context.Background(), &oauth2.Token{AccessToken: "expired"}, Video{
		Title: "x",
		Body:  strings.NewReader("x"),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUpstreamAuth))
}

func TestUploadTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	u := NewUploader(srv.Client(), 50*time.Millisecond, option.WithEndpoint(srv.URL+"/"))
	assert.Equal(t, DefaultTimeout, NewUploader(nil, 0).timeout)

	start := time.Now()
	_, err := u.Upload(context.Background(), &oauth2.Token{AccessToken: "t"}, Video{
		Title: "x",
		Body:  strings.NewReader("x"),
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, apperr.Is(err, apperr.KindProcessingTimeout))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Untitled", cleanTitle("  <> "))
	long := strings.Repeat("é", 150)
	assert.Equal(t, maxTitleLength, len([]rune(cleanTitle(long))))
}
