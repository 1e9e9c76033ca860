package core

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/lectern-app/lectern/internal/domain"
)

// RelayMode selects the relay topology. Only SFU is used.
type RelayMode string

const ModeSFU RelayMode = "sfu"

// JoinOptions configures a relay join. A nil Stream joins receive-only.
type JoinOptions struct {
	Mode   RelayMode
	Stream MediaStream
}

// RemoteStream is an inbound stream keyed by the publishing participant.
type RemoteStream struct {
	PeerID string
	Tracks []*webrtc.TrackRemote
}

// RelaySession is the opaque joinable channel over the SFU.
// Replacing the outbound stream must not churn the peer identity.
type RelaySession interface {
	RoomID() domain.RoomID
	// ReplaceStream swaps the outbound media without leaving/rejoining.
	ReplaceStream(stream MediaStream) error
	// OnStream sets the callback for inbound remote streams.
	OnStream(fn func(RemoteStream))
	// Peer presence events are observational only; the authoritative
	// presence signal is the room document.
	OnPeerJoin(fn func(peerID string))
	OnPeerLeave(fn func(peerID string))
	Leave() error
}

// RelayDialer opens relay sessions. Join returns a joined session or
// domain.ErrRelayJoinFailed; the caller decides whether to retry.
type RelayDialer interface {
	Join(ctx context.Context, roomID domain.RoomID, opts JoinOptions) (RelaySession, error)
}
