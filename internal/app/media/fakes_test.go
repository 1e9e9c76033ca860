package media

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// fakeTrack records enable toggles and stop ordering into a shared event log.
type fakeTrack struct {
	kind    webrtc.RTPCodecType
	label   string
	events  *[]string
	enabled bool
	stopped bool
	onEnded func()
}

func newFakeTrack(kind webrtc.RTPCodecType, label string, events *[]string) *fakeTrack {
	return &fakeTrack{kind: kind, label: label, events: events, enabled: true}
}

func (t *fakeTrack) Kind() webrtc.RTPCodecType { return t.kind }
func (t *fakeTrack) Enabled() bool             { return t.enabled }
func (t *fakeTrack) SetEnabled(enabled bool)   { t.enabled = enabled }
func (t *fakeTrack) Local() webrtc.TrackLocal  { return nil }
func (t *fakeTrack) OnEnded(fn func())         { t.onEnded = fn }

func (t *fakeTrack) Stop() {
	t.stopped = true
	if t.events != nil {
		*t.events = append(*t.events, "stop:"+t.label)
	}
}

type fakeStream struct {
	id    string
	audio *fakeTrack
	video *fakeTrack
}

func (s *fakeStream) ID() string { return s.id }

func (s *fakeStream) AudioTrack() core.Track {
	if s.audio == nil {
		return nil
	}
	return s.audio
}

func (s *fakeStream) VideoTrack() core.Track {
	if s.video == nil {
		return nil
	}
	return s.video
}

func (s *fakeStream) Tracks() []core.Track {
	var out []core.Track
	if s.audio != nil {
		out = append(out, s.audio)
	}
	if s.video != nil {
		out = append(out, s.video)
	}
	return out
}

func (s *fakeStream) StopAll() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// fakeCapture hands out labelled fake streams and keeps the last screen
// video track for ended-event tests.
type fakeCapture struct {
	events      *[]string
	cameraErr   error
	screenErr   error
	lastCamera  *fakeStream
	lastScreen  *fakeTrack
	acquisition int
}

func (c *fakeCapture) Camera(_ context.Context, opts core.CameraOptions) (core.MediaStream, error) {
	if c.cameraErr != nil {
		return nil, c.cameraErr
	}
	c.acquisition++
	s := &fakeStream{id: "camera", video: newFakeTrack(webrtc.RTPCodecTypeVideo, "camera-video", c.events)}
	if opts.Audio {
		s.audio = newFakeTrack(webrtc.RTPCodecTypeAudio, "camera-audio", c.events)
	}
	c.lastCamera = s
	return s, nil
}

func (c *fakeCapture) Screen(context.Context) (core.MediaStream, error) {
	if c.screenErr != nil {
		return nil, c.screenErr
	}
	c.acquisition++
	c.lastScreen = newFakeTrack(webrtc.RTPCodecTypeVideo, "screen-video", c.events)
	return &fakeStream{id: "screen", video: c.lastScreen}, nil
}

type fakeSession struct {
	roomID     domain.RoomID
	events     *[]string
	replaceErr error
	replaced   []core.MediaStream
	left       bool
	onStream   func(core.RemoteStream)
}

func (s *fakeSession) RoomID() domain.RoomID { return s.roomID }

func (s *fakeSession) ReplaceStream(stream core.MediaStream) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	if s.events != nil {
		*s.events = append(*s.events, "replace:"+stream.ID())
	}
	s.replaced = append(s.replaced, stream)
	return nil
}

func (s *fakeSession) OnStream(fn func(core.RemoteStream)) { s.onStream = fn }
func (s *fakeSession) OnPeerJoin(func(string))          {}
func (s *fakeSession) OnPeerLeave(func(string))         {}

func (s *fakeSession) Leave() error {
	s.left = true
	return nil
}

type fakeDialer struct {
	events *[]string
	err    error
	sess   *fakeSession
	joins  int
	last   core.JoinOptions
}

func (d *fakeDialer) Join(_ context.Context, roomID domain.RoomID, opts core.JoinOptions) (core.RelaySession, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.joins++
	d.last = opts
	if d.sess == nil {
		d.sess = &fakeSession{roomID: roomID, events: d.events}
	}
	return d.sess, nil
}
