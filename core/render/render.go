// Package render turns a beat and a cover image into a still-image music video.
package render

import (
	"context"
)

// Input names the stored audio and image to combine. Label ends up in the output file name.
type Input struct {
	AudioKey string
	ImageKey string
	Label    string
}

// Output is the rendered MP4. TempKey is set when the renderer left a staging
// object in the asset store that the caller must delete.
type Output struct {
	Video   []byte
	TempKey string
}

// Renderer produces a video from stored assets.
type Renderer interface {
	Render(ctx context.Context, in Input) (*Output, error)
}
