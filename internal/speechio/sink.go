package speechio

import (
	"context"

	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// DiscardSink drains synthesized audio without playing it
type DiscardSink struct{}

var _ repositories.AudioSink = DiscardSink{}

// Play implements repositories.AudioSink
func (DiscardSink) Play(ctx context.Context, audio <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-audio:
			if !ok {
				return nil
			}
		}
	}
}
