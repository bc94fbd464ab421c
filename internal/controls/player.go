package controls

import (
	"context"
	"fmt"
)

// VideoPlayer is the embedded player the host provides.
type VideoPlayer interface {
	SeekTo(ctx context.Context, seconds float64) error
	Play(ctx context.Context) error
	Destroy() error
}

// PlayFrom jumps to seconds and starts playback, as used when a transcript
// search hit is clicked.
func PlayFrom(ctx context.Context, p VideoPlayer, seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	if err := p.SeekTo(ctx, seconds); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	if err := p.Play(ctx); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}
