package repositories

import "context"

// MediaConstraints selects which tracks a device stream must carry
type MediaConstraints struct {
	Camera     bool
	Microphone bool
}

// MediaStream is a live camera and microphone stream
type MediaStream interface {
	ID() string
	// Audio yields microphone frames until the stream is stopped
	Audio() <-chan []byte
	// Stop ends every track. Safe to call more than once.
	Stop()
}

// MediaDevices opens device streams
type MediaDevices interface {
	Open(ctx context.Context, constraints MediaConstraints) (MediaStream, error)
}

// PreviewSurface displays a live stream to the candidate
type PreviewSurface interface {
	Attach(stream MediaStream) error
	Detach()
}

// AudioSink plays synthesized speech. Play returns once the channel is
// drained or ctx is cancelled.
type AudioSink interface {
	Play(ctx context.Context, audio <-chan []byte) error
}
