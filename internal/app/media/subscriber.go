package media

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// Subscriber is the listener-side media role: a receive-only relay session
// holding a single displayable remote stream. A new inbound stream replaces
// the previous one; there is no compositing.
type Subscriber struct {
	roomID domain.RoomID
	dialer core.RelayDialer

	mu       sync.Mutex
	sess     core.RelaySession
	current  *core.RemoteStream
	onStream func(core.RemoteStream)
}

func NewSubscriber(roomID domain.RoomID, dialer core.RelayDialer) *Subscriber {
	return &Subscriber{roomID: roomID, dialer: dialer}
}

// OnStream sets the callback invoked whenever the displayable remote
// stream changes. Set it before Watch.
func (s *Subscriber) OnStream(fn func(core.RemoteStream)) {
	s.mu.Lock()
	s.onStream = fn
	s.mu.Unlock()
}

// Watch joins the relay receive-only. Join failure is returned and may be
// retried only on explicit caller action.
func (s *Subscriber) Watch(ctx context.Context) error {
	sess, err := s.dialer.Join(ctx, s.roomID, core.JoinOptions{Mode: core.ModeSFU})
	if err != nil {
		return err
	}

	sess.OnStream(func(rs core.RemoteStream) {
		s.mu.Lock()
		s.current = &rs
		fn := s.onStream
		s.mu.Unlock()
		log.Debug().Str("module", "media").Str("room", string(s.roomID)).
			Str("peer", rs.PeerID).Msg("inbound stream")
		if fn != nil {
			fn(rs)
		}
	})

	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
	return nil
}

// Current returns the displayable remote stream, if any arrived yet.
func (s *Subscriber) Current() (core.RemoteStream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return core.RemoteStream{}, false
	}
	return *s.current, true
}

// Close leaves the relay session.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		if err := s.sess.Leave(); err != nil {
			log.Error().Err(err).Str("module", "media").Str("room", string(s.roomID)).Msg("relay leave")
		}
		s.sess = nil
	}
	s.current = nil
}
