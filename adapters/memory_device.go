package adapters

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// audioBufferSize bounds queued microphone frames per stream
const audioBufferSize = 64

// MemoryMediaDevices is an in-memory device source. Frames arriving from a
// remote client (or a test) are pushed into the most recently opened stream.
type MemoryMediaDevices struct {
	logger *zap.Logger

	mu      sync.RWMutex
	streams map[string]*memoryStream
	active  *memoryStream
	denied  error
}

// NewMemoryMediaDevices creates a new in-memory device source
func NewMemoryMediaDevices(logger *zap.Logger) *MemoryMediaDevices {
	return &MemoryMediaDevices{
		logger:  logger,
		streams: make(map[string]*memoryStream),
	}
}

// Deny makes subsequent Open calls fail with err. A nil err re-enables devices.
func (m *MemoryMediaDevices) Deny(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = err
}

// Open implements repositories.MediaDevices
func (m *MemoryMediaDevices) Open(ctx context.Context, constraints repositories.MediaConstraints) (repositories.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !constraints.Microphone {
		return nil, errors.New("microphone track is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.denied != nil {
		return nil, m.denied
	}

	s := &memoryStream{
		id:     uuid.New().String(),
		audio:  make(chan []byte, audioBufferSize),
		owner:  m,
		camera: constraints.Camera,
	}
	m.streams[s.id] = s
	m.active = s

	m.logger.Debug("Memory media stream opened", zap.String("streamID", s.id))
	return s, nil
}

// Push delivers a microphone frame to the active stream. It reports false when
// no stream is open or the frame was dropped because the buffer is full.
func (m *MemoryMediaDevices) Push(frame []byte) bool {
	m.mu.RLock()
	s := m.active
	m.mu.RUnlock()

	if s == nil {
		return false
	}
	return s.push(frame)
}

// OpenStreams returns the number of streams that have not been stopped
func (m *MemoryMediaDevices) OpenStreams() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}

func (m *MemoryMediaDevices) remove(s *memoryStream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, s.id)
	if m.active == s {
		m.active = nil
	}
}

type memoryStream struct {
	id     string
	audio  chan []byte
	owner  *MemoryMediaDevices
	camera bool

	mu      sync.Mutex
	stopped bool
}

func (s *memoryStream) ID() string {
	return s.id
}

func (s *memoryStream) Audio() <-chan []byte {
	return s.audio
}

func (s *memoryStream) push(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	select {
	case s.audio <- frame:
		return true
	default:
		return false
	}
}

func (s *memoryStream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.audio)
	s.mu.Unlock()

	s.owner.remove(s)
}
