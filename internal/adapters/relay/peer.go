// Package relay implements the SFU relay-session contract over a
// WebSocket signaling channel and a pion PeerConnection.
package relay

import (
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// newPeerConnection builds a PeerConnection with default codecs and
// interceptors and one sendonly transceiver per kind. Keeping both
// senders from the start lets a later source switch reuse them through
// ReplaceTrack instead of renegotiating.
func newPeerConnection(iceServers []string, publisher bool) (*webrtc.PeerConnection, map[webrtc.RTPCodecType]*webrtc.RTPSender, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, nil, fmt.Errorf("register codecs: %w", err)
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, nil, fmt.Errorf("register interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
	)

	var servers []webrtc.ICEServer
	for _, u := range iceServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{u}})
	}
	if len(servers) == 0 {
		servers = []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}

	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, nil, fmt.Errorf("create peer connection: %w", err)
	}

	senders := make(map[webrtc.RTPCodecType]*webrtc.RTPSender)
	direction := webrtc.RTPTransceiverDirectionRecvonly
	if publisher {
		direction = webrtc.RTPTransceiverDirectionSendonly
	}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		tr, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{Direction: direction})
		if err != nil {
			_ = pc.Close()
			return nil, nil, fmt.Errorf("add %s transceiver: %w", kind, err)
		}
		if publisher {
			senders[kind] = tr.Sender()
		}
	}

	return pc, senders, nil
}
