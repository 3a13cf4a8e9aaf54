package repositories

import "context"

// TextToSpeech synthesizes text into a stream of audio chunks. The channel is
// closed when synthesis finishes or ctx is cancelled.
type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error)
}
