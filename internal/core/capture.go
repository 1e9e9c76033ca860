package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// Track is one directional media track inside a captured stream.
// Disabling a track never removes it from the stream (removal would force
// renegotiation); only the enabled flag changes.
type Track interface {
	Kind() webrtc.RTPCodecType
	Enabled() bool
	SetEnabled(enabled bool)
	// Stop releases the underlying source. Explicit and final.
	Stop()
	// OnEnded fires once when the source ends on its own (e.g. the user
	// stops a screen share from the OS chrome). It does not fire for an
	// explicit Stop.
	OnEnded(fn func())
	// Local exposes the track for relay attachment.
	Local() webrtc.TrackLocal
}

// MediaStream groups the tracks captured from one source.
type MediaStream interface {
	ID() string
	AudioTrack() Track // nil when the source has no audio
	VideoTrack() Track // nil when the source has no video
	Tracks() []Track
	// StopAll stops every track. Hardware release is explicit.
	StopAll()
}

// CameraOptions selects a capture device.
type CameraOptions struct {
	DeviceID string
	Audio    bool
}

// MediaCapture acquires device streams. Acquisition failures surface as
// domain.ErrMediaAcquisitionFailed and leave the caller's state unchanged.
type MediaCapture interface {
	Camera(ctx context.Context, opts CameraOptions) (MediaStream, error)
	Screen(ctx context.Context) (MediaStream, error)
}
