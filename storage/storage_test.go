package storage

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"bosko/core/apperr"
	"bosko/model"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestAssetKey(t *testing.T) {
	now := time.UnixMilli(1718000000123)

	assert.Equal(t, "beats/1718000000123_my_beat.mp3", AssetKey(model.AssetBeat, "my beat.mp3", now))
	assert.Equal(t, "thumbnails/1718000000123_cover.png", AssetKey(model.AssetThumbnail, "../../cover.png", now))
	assert.Equal(t, "beats/1718000000123_file", AssetKey(model.AssetBeat, "???", now))
}

func TestSafeNameTruncates(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	got := SafeName(string(long) + ".wav")
	assert.Len(t, got, maxNameLength)
	assert.True(t, len(got) > 4 && got[len(got)-4:] == ".wav")
}

func TestClassify(t *testing.T) {
	missing := minio.ErrorResponse{StatusCode: http.StatusNotFound, Code: "NoSuchKey"}
	err := classify("get", "beats/x", missing)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	denied := minio.ErrorResponse{StatusCode: http.StatusForbidden, Code: "AccessDenied"}
	err = classify("put", "beats/x", denied)
	assert.True(t, apperr.Is(err, apperr.KindStorage))

	err = classify("put", "beats/x", errors.New("connection reset"))
	assert.True(t, apperr.Is(err, apperr.KindStorage))
}

func TestBucketStats(t *testing.T) {
	b := &BucketStats{ByFolder: map[string]int64{}}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.add("beats/1_a.mp3", 100, t0)
	b.add("beats/2_b.mp3", 50, t0.Add(time.Hour))
	b.add("thumbnails/1_a.png", 10, t0)
	b.add("loose.txt", 1, t0)

	assert.EqualValues(t, 4, b.TotalObjects)
	assert.EqualValues(t, 161, b.TotalSize)
	assert.Equal(t, t0.Add(time.Hour), b.LastModified)
	assert.Equal(t, map[string]int64{"beats": 150, "thumbnails": 10, "root": 1}, b.ByFolder)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "2.0 MB", FormatSize(2*1024*1024))
}
