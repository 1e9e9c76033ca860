// Package media binds the local participant to its relay role and manages
// the speaker's single outbound source.
package media

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// Source is the speaker's active outbound media source. Exactly one may be
// active; switching is a transition, not an add.
type Source int

const (
	SourceNone Source = iota
	SourceCamera
	SourceScreen
)

func (s Source) String() string {
	switch s {
	case SourceCamera:
		return "camera"
	case SourceScreen:
		return "screen"
	}
	return "none"
}

// Publisher is the speaker-side media role. States: Idle, Publishing(camera)
// and Publishing(screen). The first successful acquisition joins the relay;
// later source switches replace the outbound stream on the already-open
// session so the listener-visible peer identity never churns.
type Publisher struct {
	roomID  domain.RoomID
	dialer  core.RelayDialer
	capture core.MediaCapture
	audit   core.AuditSink

	mu     sync.Mutex
	sess   core.RelaySession
	stream core.MediaStream
	source Source
	muted  bool
	hidden bool
}

func NewPublisher(roomID domain.RoomID, dialer core.RelayDialer, capture core.MediaCapture, audit core.AuditSink) *Publisher {
	if audit == nil {
		audit = core.NopAudit{}
	}
	return &Publisher{roomID: roomID, dialer: dialer, capture: capture, audit: audit}
}

// Source reports the current state of the source machine.
func (p *Publisher) Source() Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// StartCamera acquires the camera and publishes it. On acquisition failure
// the state machine is unchanged.
func (p *Publisher) StartCamera(ctx context.Context, opts core.CameraOptions) error {
	stream, err := p.capture.Camera(ctx, opts)
	if err != nil {
		return err
	}
	return p.publish(ctx, SourceCamera, stream)
}

// StartScreen acquires a screen capture and publishes it. A screen source
// ending on its own (OS/browser chrome) is treated as an explicit stop.
func (p *Publisher) StartScreen(ctx context.Context) error {
	stream, err := p.capture.Screen(ctx)
	if err != nil {
		return err
	}
	if vt := stream.VideoTrack(); vt != nil {
		vt.OnEnded(func() { p.stopIf(stream) })
	}
	return p.publish(ctx, SourceScreen, stream)
}

func (p *Publisher) publish(ctx context.Context, src Source, stream core.MediaStream) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil {
		sess, err := p.dialer.Join(ctx, p.roomID, core.JoinOptions{Mode: core.ModeSFU, Stream: stream})
		if err != nil {
			// Join failure prevents the publish; release the acquired
			// device and leave the state machine where it was.
			stream.StopAll()
			return err
		}
		p.sess = sess
	} else {
		if err := p.sess.ReplaceStream(stream); err != nil {
			stream.StopAll()
			return err
		}
	}

	// Mute/hide survive a source switch: apply the flags to the new tracks
	// before the old ones are released.
	applyFlags(stream, p.muted, p.hidden)

	old := p.stream
	p.stream = stream
	p.source = src

	// Stop the replaced source only after the replace call was issued, so
	// listeners never observe a gap.
	if old != nil {
		old.StopAll()
	}

	p.audit.Record(p.roomID, "media_source", src.String())
	log.Info().Str("module", "media").Str("room", string(p.roomID)).
		Str("source", src.String()).Msg("publishing")
	return nil
}

// StopSource stops the active source with no successor: all tracks are
// stopped and the machine returns to Idle. The relay session stays open
// for a later re-publish.
func (p *Publisher) StopSource() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// stopIf stops the source only while stream is still the published one.
// An ended event from an already-replaced source arrives on the capture
// goroutine and may land after a switch; it must not touch the successor.
func (p *Publisher) stopIf(stream core.MediaStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != stream {
		return
	}
	p.stopLocked()
}

func (p *Publisher) stopLocked() {
	if p.source == SourceNone {
		return
	}
	p.stream.StopAll()
	p.stream = nil
	p.source = SourceNone
	p.audit.Record(p.roomID, "media_source", "stop")
	log.Info().Str("module", "media").Str("room", string(p.roomID)).Msg("source stopped")
}

// SetMuted toggles the published audio track in place. Not a state
// transition: the track is never removed, only its enabled flag changes.
// A no-op when nothing is published yet.
func (p *Publisher) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
	if p.stream == nil {
		return
	}
	if at := p.stream.AudioTrack(); at != nil {
		at.SetEnabled(!muted)
	}
	p.audit.Record(p.roomID, "mute", boolValue(muted))
}

// SetHidden toggles the published video track in place, same rules as
// SetMuted.
func (p *Publisher) SetHidden(hidden bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden = hidden
	if p.stream == nil {
		return
	}
	if vt := p.stream.VideoTrack(); vt != nil {
		vt.SetEnabled(!hidden)
	}
	p.audit.Record(p.roomID, "hide", boolValue(hidden))
}

func (p *Publisher) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *Publisher) Hidden() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hidden
}

// Close releases the device and leaves the relay.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		p.stream.StopAll()
		p.stream = nil
	}
	p.source = SourceNone
	if p.sess != nil {
		if err := p.sess.Leave(); err != nil {
			log.Error().Err(err).Str("module", "media").Str("room", string(p.roomID)).Msg("relay leave")
		}
		p.sess = nil
	}
}

func applyFlags(stream core.MediaStream, muted, hidden bool) {
	if at := stream.AudioTrack(); at != nil {
		at.SetEnabled(!muted)
	}
	if vt := stream.VideoTrack(); vt != nil {
		vt.SetEnabled(!hidden)
	}
}

func boolValue(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
