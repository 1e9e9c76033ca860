package slidesync

import (
	"context"
	"errors"
	"testing"

	"github.com/lectern-app/lectern/internal/domain"
)

func fixedView(room *domain.Room) RoomView {
	return func() (domain.Room, bool) { return *room, true }
}

func TestFollowerStartsSynced(t *testing.T) {
	room := &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 2}
	store := newFakePositionStore()
	f := NewFollower("r1", "u1", store, fixedView(room), nil)

	if err := f.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	pos, ok := store.positions["u1"]
	if !ok || !pos.IsSync {
		t.Errorf("opening should record a synced document, got %+v", pos)
	}

	page, video := f.Displayed()
	if page != 2 || video != nil {
		t.Errorf("synced follower should mirror the speaker, got page %d video %v", page, video)
	}
}

func TestFollowerBrowseDesyncs(t *testing.T) {
	room := &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 2}
	store := newFakePositionStore()
	f := NewFollower("r1", "u1", store, fixedView(room), nil)

	if err := f.PrevPage(context.Background()); err != nil {
		t.Fatalf("PrevPage: %v", err)
	}
	if f.Synced() {
		t.Error("browsing should desync the follower")
	}
	if page, _ := f.Displayed(); page != 1 {
		t.Errorf("displayed page = %d, want 1", page)
	}
	pos := store.positions["u1"]
	if pos.IsSync || pos.Position != 1 {
		t.Errorf("overlay document = %+v, want desynced at 1", pos)
	}
	// The authoritative position is never the follower's to change.
	if room.CurrentPage != 2 {
		t.Errorf("room.CurrentPage = %d, want 2", room.CurrentPage)
	}
}

func TestFollowerClampsLikeSpeaker(t *testing.T) {
	room := &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 0}
	store := newFakePositionStore()
	f := NewFollower("r1", "u1", store, fixedView(room), nil)

	if err := f.PrevPage(context.Background()); err != nil {
		t.Fatalf("PrevPage at first page: %v", err)
	}
	if !f.Synced() || store.writes != 0 {
		t.Errorf("out-of-range browse should be a silent no-op, writes=%d synced=%v", store.writes, f.Synced())
	}
}

func TestFollowerResyncAdoptsCurrentState(t *testing.T) {
	room := &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 2}
	store := newFakePositionStore()
	f := NewFollower("r1", "u1", store, fixedView(room), nil)

	if err := f.NextPage(context.Background()); err != nil {
		t.Fatalf("NextPage: %v", err)
	}

	// The speaker moved on and started a video while the follower browsed.
	room.CurrentPage = 4
	room.PlayingVideo = &domain.Video{ID: "v1"}

	if err := f.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if !f.Synced() {
		t.Fatal("follower should be synced after Resync")
	}
	page, video := f.Displayed()
	if page != 4 || video == nil || video.ID != "v1" {
		t.Errorf("resync should adopt the speaker's state at resync time, got page %d video %v", page, video)
	}
	if pos := store.positions["u1"]; !pos.IsSync {
		t.Errorf("overlay document = %+v, want synced", pos)
	}
}

func TestFollowerResyncIdempotent(t *testing.T) {
	room := &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 1}
	store := newFakePositionStore()
	f := NewFollower("r1", "u1", store, fixedView(room), nil)

	for i := 0; i < 2; i++ {
		if err := f.Resync(context.Background()); err != nil {
			t.Fatalf("Resync #%d: %v", i+1, err)
		}
	}
	if !f.Synced() {
		t.Error("repeated Resync should stay synced")
	}
	if page, _ := f.Displayed(); page != 1 {
		t.Errorf("displayed page = %d, want 1", page)
	}
}

func TestFollowerUnsyncCapturesBaseline(t *testing.T) {
	room := &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 3}
	store := newFakePositionStore()
	f := NewFollower("r1", "u1", store, fixedView(room), nil)

	if err := f.Unsync(context.Background()); err != nil {
		t.Fatalf("Unsync: %v", err)
	}
	if f.Synced() {
		t.Fatal("follower should be desynced")
	}
	if page, _ := f.Displayed(); page != 3 {
		t.Errorf("baseline page = %d, want the authoritative 3", page)
	}

	writes := store.writes
	if err := f.Unsync(context.Background()); err != nil {
		t.Fatalf("second Unsync: %v", err)
	}
	if store.writes != writes {
		t.Error("Unsync while desynced should be a no-op")
	}
}

func TestFollowerKeepsStateOnStoreError(t *testing.T) {
	room := &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 2}
	store := newFakePositionStore()
	store.err = errors.New("store down")
	f := NewFollower("r1", "u1", store, fixedView(room), nil)

	if err := f.NextPage(context.Background()); err == nil {
		t.Fatal("expected store error to surface")
	}
	if !f.Synced() {
		t.Error("failed browse must not desync the follower")
	}
}

func TestFollowerLocalVideoOverride(t *testing.T) {
	room := &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 1}
	store := newFakePositionStore()
	f := NewFollower("r1", "u1", store, fixedView(room), nil)

	// Synced followers mirror the speaker's video; local playback is ignored.
	f.PlayVideo("v1")
	if _, video := f.Displayed(); video != nil {
		t.Errorf("synced follower should have no local video, got %v", video)
	}

	if err := f.NextPage(context.Background()); err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	// Now on slide index 2, which carries v1.
	f.PlayVideo("v1")
	if _, video := f.Displayed(); video == nil || video.ID != "v1" {
		t.Errorf("desynced follower video = %v, want v1", video)
	}

	f.StopVideo()
	if _, video := f.Displayed(); video != nil {
		t.Errorf("StopVideo should clear the local override, got %v", video)
	}
}
