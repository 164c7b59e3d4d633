package render

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bosko/core/apperr"
	"bosko/storage/storagetest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore() *storagetest.Store {
	store := storagetest.New()
	store.Seed("beats/1_beat.mp3", []byte("audio"), "audio/mpeg")
	store.Seed("thumbnails/1_cover.png", []byte("image"), "image/png")
	return store
}

// fakeFFmpeg writes a script that copies its image input to the last argument.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return script
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs("img.png", "a.mp3", "out.mp4")
	assert.Equal(t, []string{"-y", "-loop", "1", "-i", "img.png", "-i", "a.mp3"}, args[:7])
	assert.Contains(t, args, "-shortest")
	assert.Contains(t, args, "192k")
	assert.Equal(t, "out.mp4", args[len(args)-1])
}

func TestLocalRendererSuccessCleansScratch(t *testing.T) {
	scratch := t.TempDir()
	ffmpeg := fakeFFmpeg(t, `for last; do :; done; printf 'mp4-bytes' > "$last"`)
	r := NewLocalRenderer(seededStore(), ffmpeg, scratch, 0)

	out, err := r.Render(context.Background(), Input{AudioKey: "beats/1_beat.mp3", ImageKey: "thumbnails/1_cover.png", Label: "Test Beat"})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4-bytes"), out.Video)
	assert.Empty(t, out.TempKey)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalRendererFailureCleansScratch(t *testing.T) {
	scratch := t.TempDir()
	ffmpeg := fakeFFmpeg(t, `echo "Invalid data found" >&2; exit 1`)
	r := NewLocalRenderer(seededStore(), ffmpeg, scratch, 0)

	_, err := r.Render(context.Background(), Input{AudioKey: "beats/1_beat.mp3", ImageKey: "thumbnails/1_cover.png", Label: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalRendererMissingAsset(t *testing.T) {
	r := NewLocalRenderer(storagetest.New(), "ffmpeg", t.TempDir(), 0)
	_, err := r.Render(context.Background(), Input{AudioKey: "beats/missing.mp3", ImageKey: "thumbnails/x.png"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

type fakeInvoker struct {
	out   *lambda.InvokeOutput
	err   error
	input *lambda.InvokeInput
}

func (f *fakeInvoker) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestRemoteRenderer(t *testing.T) {
	store := seededStore()
	store.Seed("videos/1_Test_Beat.mp4", []byte("remote-mp4"), "video/mp4")
	inv := &fakeInvoker{out: &lambda.InvokeOutput{
		StatusCode: 200,
		Payload:    []byte(`{"statusCode":200,"body":{"key":"videos/1_Test_Beat.mp4"}}`),
	}}
	r := NewRemoteRenderer(inv, "generate-video", store, 0)

	out, err := r.Render(context.Background(), Input{AudioKey: "beats/1_beat.mp3", ImageKey: "thumbnails/1_cover.png", Label: "Test Beat"})
	require.NoError(t, err)
	assert.Equal(t, []byte("remote-mp4"), out.Video)
	assert.Equal(t, "videos/1_Test_Beat.mp4", out.TempKey)

	assert.Equal(t, "generate-video", aws.ToString(inv.input.FunctionName))
	var sent map[string]string
	require.NoError(t, json.Unmarshal(inv.input.Payload, &sent))
	assert.Equal(t, map[string]string{
		"audioS3Key": "beats/1_beat.mp3",
		"imageS3Key": "thumbnails/1_cover.png",
		"fileName":   "Test_Beat",
	}, sent)
}

func TestRemoteRendererFailures(t *testing.T) {
	cases := map[string]*fakeInvoker{
		"invoke error":    {err: errors.New("throttled")},
		"function error":  {out: &lambda.InvokeOutput{StatusCode: 200, FunctionError: aws.String("Unhandled"), Payload: []byte(`{}`)}},
		"invoke status":   {out: &lambda.InvokeOutput{StatusCode: 500, Payload: []byte(`{}`)}},
		"embedded status": {out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(`{"statusCode":500,"body":{"message":"ffmpeg died"}}`)}},
		"no key":          {out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(`{"statusCode":200,"body":{}}`)}},
	}
	for name, inv := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRemoteRenderer(inv, "fn", seededStore(), 0)
			_, err := r.Render(context.Background(), Input{AudioKey: "a", ImageKey: "b", Label: "c"})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindUpstreamProtocol))
		})
	}
}

func TestParseRenderResponseStringBody(t *testing.T) {
	key, err := parseRenderResponse([]byte(`{"statusCode":200,"body":"{\"key\":\"videos/a.mp4\"}"}`))
	require.NoError(t, err)
	assert.Equal(t, "videos/a.mp4", key)
}
