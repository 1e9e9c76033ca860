package slidesync

import (
	"context"
	"testing"

	"github.com/lectern-app/lectern/internal/domain"
)

func TestNavigatorMovesWithinDeck(t *testing.T) {
	auth := &fakeAuthority{room: &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 2}}
	nav := NewNavigator(auth, auth.view(), nil)

	if err := nav.NextPage(context.Background()); err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	if auth.room.CurrentPage != 3 {
		t.Errorf("page = %d, want 3", auth.room.CurrentPage)
	}
	if err := nav.PrevPage(context.Background()); err != nil {
		t.Fatalf("PrevPage: %v", err)
	}
	if auth.room.CurrentPage != 2 {
		t.Errorf("page = %d, want 2", auth.room.CurrentPage)
	}
}

func TestNavigatorClampsAtDeckEdges(t *testing.T) {
	auth := &fakeAuthority{room: &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 4}}
	nav := NewNavigator(auth, auth.view(), nil)

	if err := nav.NextPage(context.Background()); err != nil {
		t.Fatalf("NextPage at last page: %v", err)
	}
	if len(auth.calls) != 0 {
		t.Errorf("out-of-range move should write nothing, got %v", auth.calls)
	}

	auth.room.CurrentPage = 0
	if err := nav.PrevPage(context.Background()); err != nil {
		t.Fatalf("PrevPage at first page: %v", err)
	}
	if len(auth.calls) != 0 {
		t.Errorf("out-of-range move should write nothing, got %v", auth.calls)
	}
}

func TestNavigatorIgnoresMovesWithoutDeck(t *testing.T) {
	auth := &fakeAuthority{room: &domain.Room{ID: "r1"}}
	nav := NewNavigator(auth, auth.view(), nil)

	if err := nav.NextPage(context.Background()); err != nil {
		t.Fatalf("NextPage without deck: %v", err)
	}
	if len(auth.calls) != 0 {
		t.Errorf("no deck, no writes; got %v", auth.calls)
	}
}

func TestNavigatorStopsVideoBeforePageChange(t *testing.T) {
	auth := &fakeAuthority{room: &domain.Room{
		ID:           "r1",
		Slides:       videoDeck(),
		CurrentPage:  2,
		PlayingVideo: &domain.Video{ID: "v1"},
	}}
	nav := NewNavigator(auth, auth.view(), nil)

	if err := nav.NextPage(context.Background()); err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	want := []string{"video:stop", "page:3"}
	if len(auth.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", auth.calls, want)
	}
	for i := range want {
		if auth.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", auth.calls, want)
		}
	}
}

func TestNavigatorPlayVideoOnCurrentSlide(t *testing.T) {
	auth := &fakeAuthority{room: &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 2}}
	nav := NewNavigator(auth, auth.view(), nil)

	if err := nav.PlayVideo(context.Background(), "v1"); err != nil {
		t.Fatalf("PlayVideo: %v", err)
	}
	if auth.room.PlayingVideo == nil || auth.room.PlayingVideo.ID != "v1" {
		t.Errorf("playing video = %v, want v1", auth.room.PlayingVideo)
	}

	if err := nav.StopVideo(context.Background()); err != nil {
		t.Fatalf("StopVideo: %v", err)
	}
	if auth.room.PlayingVideo != nil {
		t.Error("playing video should be cleared")
	}
}

func TestNavigatorPlayVideoUnknownID(t *testing.T) {
	auth := &fakeAuthority{room: &domain.Room{ID: "r1", Slides: videoDeck(), CurrentPage: 0}}
	nav := NewNavigator(auth, auth.view(), nil)

	if err := nav.PlayVideo(context.Background(), "nope"); err != nil {
		t.Fatalf("PlayVideo unknown id: %v", err)
	}
	if len(auth.calls) != 0 {
		t.Errorf("unknown video should write nothing, got %v", auth.calls)
	}
}

func TestNavigatorDeckLifecycle(t *testing.T) {
	auth := &fakeAuthority{room: &domain.Room{ID: "r1"}}
	nav := NewNavigator(auth, auth.view(), nil)

	if err := nav.StartDeck(context.Background(), nil); err != nil {
		t.Fatalf("StartDeck empty: %v", err)
	}
	if len(auth.calls) != 0 {
		t.Errorf("empty deck should write nothing, got %v", auth.calls)
	}

	if err := nav.StartDeck(context.Background(), videoDeck()); err != nil {
		t.Fatalf("StartDeck: %v", err)
	}
	if !auth.room.HasDeck() || auth.room.CurrentPage != 0 {
		t.Errorf("deck should start at page 0, got %+v", auth.room)
	}

	if err := nav.ResetDeck(context.Background()); err != nil {
		t.Fatalf("ResetDeck: %v", err)
	}
	if auth.room.HasDeck() || auth.room.PlayingVideo != nil {
		t.Errorf("reset should clear the deck, got %+v", auth.room)
	}
}
