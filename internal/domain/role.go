package domain

import "fmt"

// PeerRole is resolved once from the entry parameters and never persisted.
// It decides which relay session is opened and whether the client publishes.
type PeerRole string

const (
	RoleSpeaker  PeerRole = "speaker"
	RoleListener PeerRole = "listener"
)

// ParseRole maps the URL-level entry parameter onto a role.
func ParseRole(s string) (PeerRole, error) {
	switch PeerRole(s) {
	case RoleSpeaker:
		return RoleSpeaker, nil
	case RoleListener:
		return RoleListener, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}
