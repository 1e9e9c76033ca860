package capture

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/core"
)

// track pumps RTP from a local socket into a relay-attachable local
// track. The enabled flag gates forwarding only; the track stays part of
// its stream either way.
type track struct {
	kind    webrtc.RTPCodecType
	local   *webrtc.TrackLocalStaticRTP
	conn    *net.UDPConn
	enabled atomic.Bool
	stopped atomic.Bool

	mu      sync.Mutex
	onEnded func()
}

func newTrack(kind webrtc.RTPCodecType, local *webrtc.TrackLocalStaticRTP, conn *net.UDPConn) *track {
	t := &track{kind: kind, local: local, conn: conn}
	t.enabled.Store(true)
	return t
}

func (t *track) Kind() webrtc.RTPCodecType { return t.kind }
func (t *track) Enabled() bool             { return t.enabled.Load() }
func (t *track) SetEnabled(enabled bool)   { t.enabled.Store(enabled) }
func (t *track) Local() webrtc.TrackLocal  { return t.local }

func (t *track) OnEnded(fn func()) {
	t.mu.Lock()
	t.onEnded = fn
	t.mu.Unlock()
}

// Stop releases the socket. The ended callback does not fire for an
// explicit stop.
func (t *track) Stop() {
	if t.stopped.CompareAndSwap(false, true) {
		_ = t.conn.Close()
	}
}

func (t *track) loop() {
	buf := make([]byte, 1500)
	for {
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if !t.stopped.Load() {
				// Source dried up on its own; report it once.
				t.stopped.Store(true)
				_ = t.conn.Close()
				t.mu.Lock()
				fn := t.onEnded
				t.mu.Unlock()
				if fn != nil {
					fn()
				}
			}
			return
		}
		if !t.enabled.Load() {
			continue
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			log.Debug().Err(err).Str("module", "capture").Str("kind", t.kind.String()).Msg("bad rtp packet")
			continue
		}
		if err := t.local.WriteRTP(&pkt); err != nil {
			log.Debug().Err(err).Str("module", "capture").Str("kind", t.kind.String()).Msg("write rtp")
		}
	}
}

// stream groups the tracks captured from one source.
type stream struct {
	id    string
	audio *track
	video *track
}

func newStream(id string, audio, video *track) *stream {
	return &stream{id: id, audio: audio, video: video}
}

func (s *stream) ID() string { return s.id }

func (s *stream) AudioTrack() core.Track {
	if s.audio == nil {
		return nil
	}
	return s.audio
}

func (s *stream) VideoTrack() core.Track {
	if s.video == nil {
		return nil
	}
	return s.video
}

func (s *stream) Tracks() []core.Track {
	var out []core.Track
	if s.audio != nil {
		out = append(out, s.audio)
	}
	if s.video != nil {
		out = append(out, s.video)
	}
	return out
}

func (s *stream) StopAll() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
