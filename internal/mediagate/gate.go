package mediagate

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/repositories"
)

// Gate owns the camera and microphone stream for one interview. Permission is
// an explicit confirm/cancel step; Acquire refuses to open devices until both
// flags are confirmed.
type Gate struct {
	devices repositories.MediaDevices
	logger  *zap.Logger

	mu         sync.Mutex
	camera     bool
	microphone bool
	stream     repositories.MediaStream
	preview    repositories.PreviewSurface
}

// New creates a media gate over the given device source
func New(devices repositories.MediaDevices, logger *zap.Logger) *Gate {
	return &Gate{
		devices: devices,
		logger:  logger,
	}
}

// ConfirmPermissions records the candidate's answer to the permission prompt
func (g *Gate) ConfirmPermissions(camera, microphone bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.camera = camera
	g.microphone = microphone
	g.logger.Info("Media permissions confirmed",
		zap.Bool("camera", camera),
		zap.Bool("microphone", microphone))
}

// CancelPermissions withdraws any previously confirmed permission
func (g *Gate) CancelPermissions() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.camera = false
	g.microphone = false
	g.logger.Info("Media permissions cancelled")
}

// Permissions returns the current permission flags
func (g *Gate) Permissions() (camera, microphone bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.camera, g.microphone
}

// Acquire opens the device stream. It fails with domain.ErrDevice when either
// permission is missing or the device source refuses. A second call returns the
// already open stream.
func (g *Gate) Acquire(ctx context.Context) (repositories.MediaStream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.camera || !g.microphone {
		return nil, fmt.Errorf("%w: camera and microphone permission required", domain.ErrDevice)
	}
	if g.stream != nil {
		return g.stream, nil
	}
	if g.devices == nil {
		return nil, fmt.Errorf("%w: no device source", domain.ErrDevice)
	}

	stream, err := g.devices.Open(ctx, repositories.MediaConstraints{Camera: true, Microphone: true})
	if err != nil {
		g.logger.Warn("Failed to open media devices", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrDevice, err)
	}

	g.stream = stream
	g.logger.Info("Media stream acquired", zap.String("streamID", stream.ID()))
	return stream, nil
}

// BindPreview attaches the live stream to a preview surface
func (g *Gate) BindPreview(surface repositories.PreviewSurface) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stream == nil {
		return fmt.Errorf("%w: stream not acquired", domain.ErrDevice)
	}
	if g.preview != nil {
		g.preview.Detach()
	}
	if err := surface.Attach(g.stream); err != nil {
		return fmt.Errorf("failed to attach preview: %w", err)
	}
	g.preview = surface
	return nil
}

// Stream returns the acquired stream or nil
func (g *Gate) Stream() repositories.MediaStream {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stream
}

// Release stops every track and detaches the preview. It is idempotent and
// safe before Acquire.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.preview != nil {
		g.preview.Detach()
		g.preview = nil
	}
	if g.stream != nil {
		g.stream.Stop()
		g.logger.Info("Media stream released", zap.String("streamID", g.stream.ID()))
		g.stream = nil
	}
}
