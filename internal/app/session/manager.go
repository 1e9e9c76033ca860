// Package session owns the subscription to the room aggregate and turns
// store deliveries into presence effects for one participant.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// Manager enters and leaves sessions on behalf of local participants.
type Manager struct {
	store core.DocumentStore
}

func NewManager(store core.DocumentStore) *Manager {
	return &Manager{store: store}
}

// Handle is one participant's live attachment to a room.
type Handle struct {
	roomID domain.RoomID
	user   domain.UserRef
	role   domain.PeerRole

	room core.Cell[domain.Room]

	mu           sync.Mutex
	sawLive      bool // observed isArchived == false at least once
	archivedSent bool
	onChanged    []func(domain.Room)
	onArchived   []func()
	unsubs       []core.Unsubscribe
	closed       bool
}

func (h *Handle) RoomID() domain.RoomID { return h.roomID }
func (h *Handle) User() domain.UserRef  { return h.user }
func (h *Handle) Role() domain.PeerRole { return h.role }

// Room reads the latest delivered snapshot.
func (h *Handle) Room() (domain.Room, bool) { return h.room.Load() }

// OnRoomChanged registers a callback invoked with the current full room
// value on every snapshot delivery. Deliveries replace prior state
// wholesale; duplicates of the same logical state are possible.
func (h *Handle) OnRoomChanged(fn func(domain.Room)) {
	h.mu.Lock()
	h.onChanged = append(h.onChanged, fn)
	h.mu.Unlock()
}

// OnArchived registers a callback fired exactly once when the room flips
// from live to archived. This is the only cross-participant signal that
// the speaker left.
func (h *Handle) OnArchived(fn func()) {
	h.mu.Lock()
	h.onArchived = append(h.onArchived, fn)
	h.mu.Unlock()
}

// AddUnsubscribe ties an extra subscription to this handle's teardown.
func (h *Handle) AddUnsubscribe(u core.Unsubscribe) {
	h.mu.Lock()
	h.unsubs = append(h.unsubs, u)
	h.mu.Unlock()
}

func (h *Handle) deliver(room domain.Room) {
	h.room.Store(room)

	h.mu.Lock()
	changed := make([]func(domain.Room), len(h.onChanged))
	copy(changed, h.onChanged)
	var archived []func()
	if room.IsArchived {
		if h.sawLive && !h.archivedSent {
			h.archivedSent = true
			archived = make([]func(), len(h.onArchived))
			copy(archived, h.onArchived)
		}
	} else {
		h.sawLive = true
	}
	h.mu.Unlock()

	for _, fn := range changed {
		fn(room)
	}
	for _, fn := range archived {
		fn()
	}
}

// Close releases every outstanding subscription. Idempotent.
func (h *Handle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	unsubs := h.unsubs
	h.unsubs = nil
	h.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

// Enter resolves the room, checks the password, adds the user to the
// membership set via an atomic union and opens the room subscription.
// Fails with domain.ErrRoomNotFound when the id does not resolve and
// domain.ErrWrongPassword when the room is protected and the supplied
// password does not match.
func (m *Manager) Enter(ctx context.Context, roomID domain.RoomID, user domain.UserRef, role domain.PeerRole, password string) (*Handle, error) {
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve room %s: %w", roomID, err)
	}

	if room.Password != "" && password != room.Password {
		return nil, domain.ErrWrongPassword
	}

	// Any client entering with the speaker role is accepted as publisher;
	// the mismatch is only surfaced (known gap in the protocol).
	if role == domain.RoleSpeaker && user.ID != room.AdminID {
		log.Warn().Str("module", "session").Str("room", string(roomID)).
			Str("user", string(user.ID)).Msg("speaker role entry by non-admin")
	}

	membership := &MembershipHandle{store: m.store, roomID: roomID}
	if err := membership.Join(ctx, user); err != nil {
		return nil, fmt.Errorf("join room %s: %w", roomID, err)
	}

	h := &Handle{roomID: roomID, user: user, role: role}
	h.deliver(*room)

	unsub, err := m.store.SubscribeRoom(ctx, roomID, h.deliver)
	if err != nil {
		_ = membership.Leave(ctx, user)
		return nil, fmt.Errorf("subscribe room %s: %w", roomID, err)
	}
	h.AddUnsubscribe(unsub)

	log.Info().Str("module", "session").Str("room", string(roomID)).
		Str("user", string(user.ID)).Str("role", string(role)).Msg("entered session")
	return h, nil
}

// Speaker returns the speaker capability for this handle. Only a
// speaker-role handle carries it.
func (m *Manager) Speaker(h *Handle) (*SpeakerHandle, error) {
	if h.role != domain.RoleSpeaker {
		return nil, fmt.Errorf("role %s holds no speaker capability", h.role)
	}
	return &SpeakerHandle{store: m.store, roomID: h.roomID}, nil
}

// Leave removes the user from the membership set, then branches on role:
// a leaving speaker archives the room (never deletes it); a leaving
// listener deletes its analysis and slide-position documents best-effort.
// Both deletions are always attempted; a *domain.CleanupError is returned
// when at least one failed, and must not block navigation away.
func (m *Manager) Leave(ctx context.Context, h *Handle) error {
	defer h.Close()

	membership := &MembershipHandle{store: m.store, roomID: h.roomID}
	if err := membership.Leave(ctx, h.user); err != nil {
		log.Error().Err(err).Str("module", "session").Str("room", string(h.roomID)).
			Str("user", string(h.user.ID)).Msg("membership remove failed")
	}

	if h.role == domain.RoleSpeaker {
		if err := m.store.SetArchived(ctx, h.roomID); err != nil {
			return fmt.Errorf("archive room %s: %w", h.roomID, err)
		}
		log.Info().Str("module", "session").Str("room", string(h.roomID)).Msg("room archived")
		return nil
	}

	cleanup := &domain.CleanupError{
		Analysis:      m.store.DeleteAnalysis(ctx, h.roomID, h.user.ID),
		SlidePosition: m.store.DeleteSlidePosition(ctx, h.roomID, h.user.ID),
	}
	if cleanup.Partial() {
		log.Warn().Err(cleanup).Str("module", "session").Str("room", string(h.roomID)).
			Str("user", string(h.user.ID)).Msg("listener cleanup incomplete")
		return cleanup
	}
	return nil
}
