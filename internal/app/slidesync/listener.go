package slidesync

import (
	"context"
	"fmt"
	"sync"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// Follower is a listener's slide state relative to the speaker: Synced
// (mirror the authoritative position) or Desynced (independent browsing
// recorded in the listener's own slide-position document). Initial state
// is Synced. The authoritative room fields are never written here.
type Follower struct {
	roomID domain.RoomID
	userID domain.UserID
	store  core.SlidePositionStore
	view   RoomView
	audit  core.AuditSink

	mu       sync.Mutex
	synced   bool
	position int
	video    *domain.Video // local override, desynced only
}

func NewFollower(roomID domain.RoomID, userID domain.UserID, store core.SlidePositionStore, view RoomView, audit core.AuditSink) *Follower {
	if audit == nil {
		audit = core.NopAudit{}
	}
	return &Follower{
		roomID: roomID,
		userID: userID,
		store:  store,
		view:   view,
		audit:  audit,
		synced: true,
	}
}

// Open records the initial synced position document. Called once when the
// listener's slide view opens.
func (f *Follower) Open(ctx context.Context) error {
	return f.store.SetSlidePosition(ctx, f.roomID, domain.SlidePosition{ID: f.userID, IsSync: true})
}

// Synced reports whether the follower mirrors the speaker.
func (f *Follower) Synced() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.synced
}

// Displayed resolves what the listener shows right now: the speaker's
// page and video while synced, the local overlay while desynced.
func (f *Follower) Displayed() (page int, video *domain.Video) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.synced {
		if room, ok := f.view(); ok {
			return room.CurrentPage, room.PlayingVideo
		}
		return 0, nil
	}
	return f.position, f.video
}

// NextPage browses forward locally. A move from Synced first transitions
// to Desynced; the authoritative position is untouched either way.
func (f *Follower) NextPage(ctx context.Context) error { return f.move(ctx, +1) }

// PrevPage browses backward locally, same rules.
func (f *Follower) PrevPage(ctx context.Context) error { return f.move(ctx, -1) }

func (f *Follower) move(ctx context.Context, delta int) error {
	room, ok := f.view()
	if !ok || !room.HasDeck() {
		return nil
	}

	f.mu.Lock()
	base := f.position
	if f.synced {
		base = room.CurrentPage
	}
	f.mu.Unlock()

	target := base + delta
	if !room.ValidPage(target) {
		return nil
	}

	// Record the desynced position first, then apply the move locally.
	err := f.store.SetSlidePosition(ctx, f.roomID, domain.SlidePosition{
		ID:       f.userID,
		IsSync:   false,
		Position: target,
	})
	if err != nil {
		return fmt.Errorf("record position: %w", err)
	}

	f.mu.Lock()
	f.synced = false
	f.position = target
	f.video = nil
	f.mu.Unlock()

	f.audit.Record(f.roomID, string(f.userID)+"_slide", fmt.Sprintf("move to %d", target))
	return nil
}

// Resync returns to mirroring the speaker and adopts the authoritative
// page and video as they are right now (copy, not merge). Idempotent.
func (f *Follower) Resync(ctx context.Context) error {
	err := f.store.SetSlidePosition(ctx, f.roomID, domain.SlidePosition{ID: f.userID, IsSync: true})
	if err != nil {
		return fmt.Errorf("record sync: %w", err)
	}

	f.mu.Lock()
	f.synced = true
	f.video = nil
	if room, ok := f.view(); ok {
		f.position = room.CurrentPage
		f.video = room.PlayingVideo
	}
	f.mu.Unlock()

	f.audit.Record(f.roomID, string(f.userID)+"_slide", "sync")
	return nil
}

// Unsync leaves the speaker's flow, capturing the current authoritative
// page as the independent baseline. A no-op while already desynced.
func (f *Follower) Unsync(ctx context.Context) error {
	f.mu.Lock()
	if !f.synced {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	room, ok := f.view()
	if !ok {
		return nil
	}

	err := f.store.SetSlidePosition(ctx, f.roomID, domain.SlidePosition{
		ID:       f.userID,
		IsSync:   false,
		Position: room.CurrentPage,
	})
	if err != nil {
		return fmt.Errorf("record unsync: %w", err)
	}

	f.mu.Lock()
	f.synced = false
	f.position = room.CurrentPage
	f.video = nil
	f.mu.Unlock()

	f.audit.Record(f.roomID, string(f.userID)+"_slide", "unsync")
	return nil
}

// PlayVideo selects a video from the locally displayed slide. Local state
// only, never the shared document. A synced follower mirrors the speaker
// and ignores the call.
func (f *Follower) PlayVideo(videoID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.synced {
		return
	}
	room, ok := f.view()
	if !ok || !room.ValidPage(f.position) {
		return
	}
	if video, ok := room.Slides[f.position].FindVideo(videoID); ok {
		f.video = &video
	}
}

// StopVideo clears the local video override while desynced.
func (f *Follower) StopVideo() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.synced {
		return
	}
	f.video = nil
}
