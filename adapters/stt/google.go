package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain/repositories"
)

const defaultLanguage = "en-US"

// GoogleConfig holds configuration for Google Cloud speech recognition
type GoogleConfig struct {
	// Language is the BCP-47 code of the candidate's answers (default: en-US)
	Language string
}

// GoogleSpeechToText implements SpeechToText for Google Cloud. One client is
// shared by every recognition session.
type GoogleSpeechToText struct {
	client   *speech.Client
	language string
	logger   *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText dials Google Cloud speech using application default credentials
func NewGoogleSpeechToText(ctx context.Context, config GoogleConfig, logger *zap.Logger) (*GoogleSpeechToText, error) {
	language := config.Language
	if language == "" {
		language = defaultLanguage
		logger.Info("Using default recognition language", zap.String("language", language))
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleSpeechToText{
		client:   client,
		language: language,
		logger:   logger,
	}, nil
}

// Close releases the underlying client
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// InitTranscribeStreaming opens a single-utterance recognition stream
func (g *GoogleSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	language := config.Language
	if language == "" {
		language = g.language
	}

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   encoding,
					SampleRateHertz:            int32(config.SampleRate),
					LanguageCode:               language,
					EnableAutomaticPunctuation: true,
				},
				InterimResults:  false,
				SingleUtterance: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	s := &GoogleSpeechToTextStream{
		stream: stream,
		ctx:    ctx,
		result: make(chan recognition, 1),
		logger: g.logger,
	}
	go s.receive()
	return s, nil
}

// TranscribeAudio converts a complete recording to text
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	stream, err := g.InitTranscribeStreaming(ctx, config)
	if err != nil {
		return "", fmt.Errorf("failed to initialize streaming: %w", err)
	}
	if err := stream.Stream(audioData); err != nil {
		return "", fmt.Errorf("failed to stream audio data: %w", err)
	}
	return stream.End()
}

type recognition struct {
	text string
	err  error
}

// GoogleSpeechToTextStream is one single-utterance recognition session
type GoogleSpeechToTextStream struct {
	stream speechpb.Speech_StreamingRecognizeClient
	ctx    context.Context
	result chan recognition
	logger *zap.Logger

	mu            sync.Mutex
	audioReceived bool
	closed        bool
}

// Stream sends one audio frame
func (g *GoogleSpeechToTextStream) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errors.New("recognition stream already ended")
	}
	g.audioReceived = true

	if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

// End closes the send side and waits for the final transcript
func (g *GoogleSpeechToTextStream) End() (string, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return "", errors.New("recognition stream already ended")
	}
	g.closed = true
	received := g.audioReceived
	g.mu.Unlock()

	if err := g.stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}
	if !received {
		return "", fmt.Errorf("no audio data received")
	}

	select {
	case <-g.ctx.Done():
		return "", fmt.Errorf("context cancelled while waiting for result: %w", g.ctx.Err())
	case r := <-g.result:
		if r.err != nil {
			return "", r.err
		}
		if strings.TrimSpace(r.text) == "" {
			return "", fmt.Errorf("no speech detected in audio")
		}
		return r.text, nil
	}
}

func (g *GoogleSpeechToTextStream) receive() {
	var parts []string
	for {
		resp, err := g.stream.Recv()
		if err == io.EOF {
			g.result <- recognition{text: strings.Join(parts, " ")}
			return
		}
		if err != nil {
			g.result <- recognition{err: fmt.Errorf("failed to receive response: %w", err)}
			return
		}

		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				parts = append(parts, strings.TrimSpace(result.Alternatives[0].Transcript))
			}
		}
		if resp.SpeechEventType == speechpb.StreamingRecognizeResponse_END_OF_SINGLE_UTTERANCE {
			g.logger.Debug("End of single utterance detected")
		}
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
}
