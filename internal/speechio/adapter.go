package speechio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// DefaultMaxListen caps a single listen session when no limit is configured
const DefaultMaxListen = 2 * time.Minute

// Config holds the collaborators of an Adapter. TextToSpeech, SpeechToText and
// Sink are optional; a missing one makes the matching call fail with
// domain.ErrUnsupportedCapability.
type Config struct {
	TextToSpeech repositories.TextToSpeech
	SpeechToText repositories.SpeechToText
	Sink         repositories.AudioSink
	Audio        repositories.AudioConfig
	MaxListen    time.Duration
	Clock        clock.Clock
}

// Adapter joins speech synthesis and single-utterance recognition behind one
// start/stop/on-result contract. One utterance and one listen session at most.
type Adapter struct {
	tts       repositories.TextToSpeech
	stt       repositories.SpeechToText
	sink      repositories.AudioSink
	audio     repositories.AudioConfig
	maxListen time.Duration
	clock     clock.Clock
	logger    *zap.Logger

	mu          sync.Mutex
	speakGen    uint64
	speakCancel context.CancelFunc
	listen      *listenSession
}

// New creates a speech adapter
func New(config Config, logger *zap.Logger) *Adapter {
	maxListen := config.MaxListen
	if maxListen <= 0 {
		maxListen = DefaultMaxListen
		logger.Info("Using default max listen duration", zap.Duration("maxListen", maxListen))
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Adapter{
		tts:       config.TextToSpeech,
		stt:       config.SpeechToText,
		sink:      config.Sink,
		audio:     config.Audio,
		maxListen: maxListen,
		clock:     clk,
		logger:    logger,
	}
}

// CanSpeak reports whether speech synthesis is available
func (a *Adapter) CanSpeak() bool {
	return a.tts != nil && a.sink != nil
}

// CanListen reports whether speech recognition is available
func (a *Adapter) CanListen() bool {
	return a.stt != nil
}

// Speak synthesizes text and plays it. A prior utterance is cancelled first
// and never reports its end. onSpeechEnd fires once playback finishes; a
// synthesis failure is logged and still counts as finished.
func (a *Adapter) Speak(ctx context.Context, text string, onSpeechEnd func()) error {
	if !a.CanSpeak() {
		return fmt.Errorf("%w: no speech synthesis", domain.ErrUnsupportedCapability)
	}

	a.mu.Lock()
	a.cancelSpeechLocked()
	a.speakGen++
	gen := a.speakGen
	sctx, cancel := context.WithCancel(ctx)
	a.speakCancel = cancel
	a.mu.Unlock()

	go func() {
		defer cancel()

		if err := a.play(sctx, text); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("Speech playback failed", zap.Error(err))
		}

		a.mu.Lock()
		current := a.speakGen == gen && sctx.Err() == nil
		if current {
			a.speakCancel = nil
		}
		a.mu.Unlock()

		if current && onSpeechEnd != nil {
			onSpeechEnd()
		}
	}()

	return nil
}

func (a *Adapter) play(ctx context.Context, text string) error {
	audio, err := a.tts.ConvertTextToSpeech(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to synthesize speech: %w", err)
	}
	if err := a.sink.Play(ctx, audio); err != nil {
		return fmt.Errorf("failed to play speech: %w", err)
	}
	return nil
}

// CancelSpeech stops the active utterance. Safe when idle.
func (a *Adapter) CancelSpeech() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelSpeechLocked()
}

// Speaking reports whether an utterance is in flight
func (a *Adapter) Speaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speakCancel != nil
}

func (a *Adapter) cancelSpeechLocked() {
	if a.speakCancel != nil {
		a.speakCancel()
		a.speakCancel = nil
	}
	a.speakGen++
}

// Listen streams microphone frames to the recognizer and fires onTranscript
// exactly once with the first finalized utterance. Recognition finalizes when
// the microphone closes, StopListening is called, or the listen cap elapses.
// A recognizer error yields an empty transcript.
func (a *Adapter) Listen(ctx context.Context, mic repositories.MediaStream, onTranscript func(text string)) error {
	if !a.CanListen() {
		return fmt.Errorf("%w: no speech recognition", domain.ErrUnsupportedCapability)
	}
	if mic == nil {
		return fmt.Errorf("%w: no microphone stream", domain.ErrUnsupportedCapability)
	}

	a.mu.Lock()
	if a.listen != nil {
		a.listen.abort()
		a.listen = nil
	}
	a.mu.Unlock()

	lctx, cancel := context.WithCancel(ctx)
	stream, err := a.stt.InitTranscribeStreaming(lctx, a.audio)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", domain.ErrUnsupportedCapability, err)
	}

	session := &listenSession{
		cancel:   cancel,
		finalize: make(chan struct{}),
	}

	a.mu.Lock()
	a.listen = session
	a.mu.Unlock()

	limit := a.clock.Timer(a.maxListen)
	go a.runListen(lctx, session, stream, mic.Audio(), limit, onTranscript)
	return nil
}

func (a *Adapter) runListen(ctx context.Context, session *listenSession, stream repositories.SpeechToTextStreaming, frames <-chan []byte, limit *clock.Timer, onTranscript func(string)) {
	defer session.cancel()
	defer limit.Stop()

	frameCount := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-session.finalize:
			break loop
		case <-limit.C:
			a.logger.Info("Listen cap reached", zap.Duration("maxListen", a.maxListen))
			break loop
		case frame, ok := <-frames:
			if !ok {
				break loop
			}
			frameCount++
			if err := stream.Stream(frame); err != nil {
				a.logger.Warn("Failed to stream audio frame", zap.Error(err))
				break loop
			}
		}
	}

	text, err := stream.End()
	if err != nil {
		a.logger.Info("Recognition finished without transcript",
			zap.Int("frames", frameCount),
			zap.Error(err))
		text = ""
	}

	a.mu.Lock()
	if a.listen == session {
		a.listen = nil
	}
	a.mu.Unlock()

	if session.aborted() {
		return
	}
	session.once.Do(func() {
		if onTranscript != nil {
			onTranscript(text)
		}
	})
}

// StopListening forces early finalization of the active listen session. The
// transcript callback still fires.
func (a *Adapter) StopListening() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listen != nil {
		a.listen.stop()
	}
}

// CancelListening abandons the active listen session without a callback
func (a *Adapter) CancelListening() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listen != nil {
		a.listen.abort()
		a.listen = nil
	}
}

// Listening reports whether a listen session is active
func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listen != nil
}

type listenSession struct {
	cancel   context.CancelFunc
	finalize chan struct{}
	once     sync.Once

	mu        sync.Mutex
	stopped   bool
	cancelled bool
}

func (s *listenSession) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.finalize)
	}
}

func (s *listenSession) abort() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
}

func (s *listenSession) aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}
