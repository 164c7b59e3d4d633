package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"bosko/core/apperr"
	"bosko/logger"
	"bosko/storage"
)

// ffmpegArgs renders a 1 fps 1080p video, letterboxing the image and stopping with the audio.
func ffmpegArgs(image, audio, output string) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-i", image,
		"-i", audio,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "192k",
		"-tune", "stillimage",
		"-shortest",
		"-pix_fmt", "yuv420p",
		"-r", "1",
		"-preset", "veryfast",
		"-vf", "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:color=black",
		output,
	}
}

// LocalRenderer runs ffmpeg on this host.
type LocalRenderer struct {
	ffmpegPath string
	scratchDir string
	timeout    time.Duration
	store      storage.AssetStore
}

// NewLocalRenderer creates a LocalRenderer. Scratch files go under scratchDir (os.TempDir when empty).
func NewLocalRenderer(store storage.AssetStore, ffmpegPath, scratchDir string, timeout time.Duration) *LocalRenderer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &LocalRenderer{ffmpegPath: ffmpegPath, scratchDir: scratchDir, timeout: timeout, store: store}
}

func (r *LocalRenderer) Render(ctx context.Context, in Input) (*Output, error) {
	audio, err := r.store.Get(ctx, in.AudioKey)
	if err != nil {
		return nil, err
	}
	image, err := r.store.Get(ctx, in.ImageKey)
	if err != nil {
		return nil, err
	}

	stamp := time.Now().UnixNano()
	audioPath := filepath.Join(r.scratchDir, fmt.Sprintf("render_%d_audio%s", stamp, path.Ext(in.AudioKey)))
	imagePath := filepath.Join(r.scratchDir, fmt.Sprintf("render_%d_image%s", stamp, path.Ext(in.ImageKey)))
	outputPath := filepath.Join(r.scratchDir, fmt.Sprintf("render_%d_%s.mp4", stamp, strings.TrimSuffix(storage.SafeName(in.Label), ".mp4")))

	// Scratch files are removed whatever happens below.
	defer func() {
		for _, p := range []string{audioPath, imagePath, outputPath} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to remove render scratch file", logger.String("path", p), logger.ErrorField(err))
			}
		}
	}()

	if err := os.WriteFile(audioPath, audio, 0600); err != nil {
		return nil, apperr.Internal("failed to write render input", err)
	}
	if err := os.WriteFile(imagePath, image, 0600); err != nil {
		return nil, apperr.Internal("failed to write render input", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := ffmpegArgs(imagePath, audioPath, outputPath)
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	logger.Info("rendering video",
		logger.String("audio", in.AudioKey),
		logger.String("image", in.ImageKey))

	if err := cmd.Run(); err != nil {
		return nil, apperr.Internal("video render failed",
			fmt.Errorf("ffmpeg: %w\nFFmpeg Error: %s", err, tail(stderr.String(), 2048)))
	}

	video, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, apperr.Internal("failed to read rendered video", err)
	}
	if len(video) == 0 {
		return nil, apperr.Internal("video render produced an empty file", nil)
	}

	logger.Info("video rendered",
		logger.Int("bytes", len(video)),
		logger.Duration("elapsed", time.Since(start)))
	return &Output{Video: video}, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
