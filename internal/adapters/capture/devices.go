// Package capture acquires camera and screen streams from local RTP
// sources. Tracks keep flowing while disabled (packets are dropped, the
// track itself is never removed) so toggling never forces renegotiation.
package capture

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/lectern-app/lectern/internal/config"
	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// Devices hands out capture streams bound to configured RTP ports.
type Devices struct {
	cfg config.Capture
}

func NewDevices(cfg config.Capture) *Devices {
	return &Devices{cfg: cfg}
}

// Camera acquires the camera source. Acquisition failure (port busy,
// no source) reports domain.ErrMediaAcquisitionFailed and leaves the
// caller's state unchanged.
func (d *Devices) Camera(ctx context.Context, opts core.CameraOptions) (core.MediaStream, error) {
	streamID := uuid.NewString()

	video, err := openTrack(d.cfg.CameraVideoPort, webrtc.RTPCodecTypeVideo, webrtc.MimeTypeVP8, streamID)
	if err != nil {
		return nil, fmt.Errorf("%w: camera video: %v", domain.ErrMediaAcquisitionFailed, err)
	}

	var audio *track
	if opts.Audio && d.cfg.CameraAudioPort > 0 {
		audio, err = openTrack(d.cfg.CameraAudioPort, webrtc.RTPCodecTypeAudio, webrtc.MimeTypeOpus, streamID)
		if err != nil {
			video.Stop()
			return nil, fmt.Errorf("%w: camera audio: %v", domain.ErrMediaAcquisitionFailed, err)
		}
	}

	return newStream(streamID, audio, video), nil
}

// Screen acquires the screen-share source. The video track's ended event
// fires when the source dries up on its own, mirroring a user stopping
// the share outside the application.
func (d *Devices) Screen(ctx context.Context) (core.MediaStream, error) {
	streamID := uuid.NewString()

	video, err := openTrack(d.cfg.ScreenVideoPort, webrtc.RTPCodecTypeVideo, webrtc.MimeTypeVP8, streamID)
	if err != nil {
		return nil, fmt.Errorf("%w: screen video: %v", domain.ErrMediaAcquisitionFailed, err)
	}

	var audio *track
	if d.cfg.ScreenAudioPort > 0 {
		audio, err = openTrack(d.cfg.ScreenAudioPort, webrtc.RTPCodecTypeAudio, webrtc.MimeTypeOpus, streamID)
		if err != nil {
			video.Stop()
			return nil, fmt.Errorf("%w: screen audio: %v", domain.ErrMediaAcquisitionFailed, err)
		}
	}

	return newStream(streamID, audio, video), nil
}

func openTrack(port int, kind webrtc.RTPCodecType, mimeType, streamID string) (*track, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		return nil, fmt.Errorf("listen :%d: %w", port, err)
	}
	local, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: mimeType},
		kind.String(), streamID,
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create %s track: %w", kind, err)
	}
	t := newTrack(kind, local, conn)
	go t.loop()
	return t, nil
}
