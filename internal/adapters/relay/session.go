package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// message is the signaling envelope between participant and relay.
type message struct {
	Type          string `json:"type"`
	Room          string `json:"room,omitempty"`
	Mode          string `json:"mode,omitempty"`
	PeerID        string `json:"peerId,omitempty"`
	SDP           string `json:"sdp,omitempty"`
	Candidate     string `json:"candidate,omitempty"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Dialer joins relay sessions at a fixed signaling endpoint.
type Dialer struct {
	url        string
	iceServers []string
}

func NewDialer(url string, iceServers []string) *Dialer {
	return &Dialer{url: url, iceServers: iceServers}
}

// Join dials the signaling endpoint, runs the offer/answer exchange and
// returns a joined session. Any failure surfaces as
// domain.ErrRelayJoinFailed; retry only on explicit caller action.
func (d *Dialer) Join(ctx context.Context, roomID domain.RoomID, opts core.JoinOptions) (core.RelaySession, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrRelayJoinFailed, d.url, err)
	}

	pc, senders, err := newPeerConnection(d.iceServers, opts.Stream != nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrRelayJoinFailed, err)
	}

	s := &Session{
		roomID:        roomID,
		conn:          conn,
		pc:            pc,
		senders:       senders,
		remote:        make(map[string][]*webrtc.TrackRemote),
		answered:      make(chan error, 1),
		remoteDescSet: make(chan struct{}),
		closed:        make(chan struct{}),
	}

	if opts.Stream != nil {
		if err := s.attach(opts.Stream); err != nil {
			s.teardown()
			return nil, fmt.Errorf("%w: %v", domain.ErrRelayJoinFailed, err)
		}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		m := message{Type: "candidate", Candidate: init.Candidate}
		if init.SDPMid != nil {
			m.SDPMid = *init.SDPMid
		}
		if init.SDPMLineIndex != nil {
			m.SDPMLineIndex = *init.SDPMLineIndex
		}
		s.send(m)
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		s.onRemoteTrack(track)
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		s.teardown()
		return nil, fmt.Errorf("%w: create offer: %v", domain.ErrRelayJoinFailed, err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		s.teardown()
		return nil, fmt.Errorf("%w: set local description: %v", domain.ErrRelayJoinFailed, err)
	}

	go s.readLoop()

	s.send(message{Type: "join", Room: string(roomID), Mode: string(opts.Mode), SDP: offer.SDP})

	select {
	case err := <-s.answered:
		if err != nil {
			s.teardown()
			return nil, fmt.Errorf("%w: %v", domain.ErrRelayJoinFailed, err)
		}
	case <-ctx.Done():
		s.teardown()
		return nil, fmt.Errorf("%w: %v", domain.ErrRelayJoinFailed, ctx.Err())
	}

	log.Info().Str("module", "relay").Str("room", string(roomID)).Msg("joined relay")
	return s, nil
}

// Session is one joined relay channel. Replacing the outbound stream
// swaps sender tracks in place so the peer identity never changes.
type Session struct {
	roomID  domain.RoomID
	conn    *websocket.Conn
	pc      *webrtc.PeerConnection
	senders map[webrtc.RTPCodecType]*webrtc.RTPSender

	writeMu sync.Mutex

	mu          sync.Mutex
	remote      map[string][]*webrtc.TrackRemote
	onStream    func(core.RemoteStream)
	onPeerJoin  func(string)
	onPeerLeave func(string)

	answered      chan error
	remoteDescSet chan struct{}
	closeOnce     sync.Once
	closed        chan struct{}
}

func (s *Session) RoomID() domain.RoomID { return s.roomID }

func (s *Session) attach(stream core.MediaStream) error {
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		sender, ok := s.senders[kind]
		if !ok {
			continue
		}
		var local webrtc.TrackLocal
		switch kind {
		case webrtc.RTPCodecTypeAudio:
			if t := stream.AudioTrack(); t != nil {
				local = t.Local()
			}
		case webrtc.RTPCodecTypeVideo:
			if t := stream.VideoTrack(); t != nil {
				local = t.Local()
			}
		}
		// A nil track leaves the sender silent for that kind.
		if err := sender.ReplaceTrack(local); err != nil {
			return fmt.Errorf("replace %s track: %w", kind, err)
		}
	}
	return nil
}

// ReplaceStream swaps the outbound media without leaving or rejoining.
func (s *Session) ReplaceStream(stream core.MediaStream) error {
	if stream == nil {
		return fmt.Errorf("nil stream")
	}
	if len(s.senders) == 0 {
		return fmt.Errorf("session joined receive-only")
	}
	return s.attach(stream)
}

func (s *Session) OnStream(fn func(core.RemoteStream)) {
	s.mu.Lock()
	s.onStream = fn
	s.mu.Unlock()
}

func (s *Session) OnPeerJoin(fn func(string)) {
	s.mu.Lock()
	s.onPeerJoin = fn
	s.mu.Unlock()
}

func (s *Session) OnPeerLeave(fn func(string)) {
	s.mu.Lock()
	s.onPeerLeave = fn
	s.mu.Unlock()
}

func (s *Session) Leave() error {
	s.send(message{Type: "leave", Room: string(s.roomID)})
	s.teardown()
	return nil
}

func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		close(s.closed)
		if err := s.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "relay").Msg("close peer connection")
		}
		_ = s.conn.Close()
	})
}

func (s *Session) send(m message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	data, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("marshal signal")
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("write signal")
	}
}

func (s *Session) readLoop() {
	defer s.teardown()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
			default:
				log.Error().Err(err).Str("module", "relay").Str("room", string(s.roomID)).Msg("signal read")
			}
			return
		}
		var m message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Error().Err(err).Str("module", "relay").Msg("bad signal payload")
			continue
		}
		s.dispatch(m)
	}
}

func (s *Session) dispatch(m message) {
	switch m.Type {
	case "answer":
		err := s.pc.SetRemoteDescription(webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer,
			SDP:  m.SDP,
		})
		if err == nil {
			close(s.remoteDescSet)
		}
		select {
		case s.answered <- err:
		default:
		}

	case "candidate":
		go func() {
			// Candidates may race the answer; wait for the remote
			// description like any trickle client.
			select {
			case <-s.remoteDescSet:
			case <-s.closed:
				return
			}
			init := webrtc.ICECandidateInit{Candidate: m.Candidate}
			if m.SDPMid != "" {
				mid := m.SDPMid
				init.SDPMid = &mid
			}
			idx := m.SDPMLineIndex
			init.SDPMLineIndex = &idx
			if err := s.pc.AddICECandidate(init); err != nil {
				log.Error().Err(err).Str("module", "relay").Msg("add ice candidate")
			}
		}()

	case "peer_join":
		s.mu.Lock()
		fn := s.onPeerJoin
		s.mu.Unlock()
		if fn != nil {
			fn(m.PeerID)
		}

	case "peer_leave":
		s.mu.Lock()
		fn := s.onPeerLeave
		s.mu.Unlock()
		if fn != nil {
			fn(m.PeerID)
		}

	case "error":
		select {
		case s.answered <- fmt.Errorf("relay: %s", m.Error):
		default:
			log.Error().Str("module", "relay").Str("error", m.Error).Msg("relay error")
		}

	default:
		log.Warn().Str("module", "relay").Str("type", m.Type).Msg("unhandled signal")
	}
}

// onRemoteTrack groups inbound tracks by their stream id, which the relay
// sets to the publishing participant's id.
func (s *Session) onRemoteTrack(track *webrtc.TrackRemote) {
	peerID := track.StreamID()

	s.mu.Lock()
	s.remote[peerID] = append(s.remote[peerID], track)
	tracks := make([]*webrtc.TrackRemote, len(s.remote[peerID]))
	copy(tracks, s.remote[peerID])
	fn := s.onStream
	s.mu.Unlock()

	log.Info().Str("module", "relay").Str("room", string(s.roomID)).
		Str("peer", peerID).Str("kind", track.Kind().String()).Msg("remote track")
	if fn != nil {
		fn(core.RemoteStream{PeerID: peerID, Tracks: tracks})
	}
}
