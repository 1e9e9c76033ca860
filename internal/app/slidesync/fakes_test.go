package slidesync

import (
	"context"
	"fmt"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// fakeAuthority applies speaker writes to a backing room value and records
// the call order.
type fakeAuthority struct {
	room  *domain.Room
	calls []string
}

func (f *fakeAuthority) RoomID() domain.RoomID { return f.room.ID }

func (f *fakeAuthority) SetCurrentPage(_ context.Context, page int) error {
	f.calls = append(f.calls, fmt.Sprintf("page:%d", page))
	f.room.CurrentPage = page
	return nil
}

func (f *fakeAuthority) SetPlayingVideo(_ context.Context, v *domain.Video) error {
	if v == nil {
		f.calls = append(f.calls, "video:stop")
	} else {
		f.calls = append(f.calls, "video:"+v.ID)
	}
	f.room.PlayingVideo = v
	return nil
}

func (f *fakeAuthority) SetSlides(_ context.Context, slides []domain.Slide) error {
	f.calls = append(f.calls, fmt.Sprintf("slides:%d", len(slides)))
	f.room.Slides = slides
	f.room.CurrentPage = 0
	f.room.PlayingVideo = nil
	return nil
}

func (f *fakeAuthority) ClearSlides(_ context.Context) error {
	f.calls = append(f.calls, "slides:clear")
	f.room.Slides = nil
	f.room.CurrentPage = 0
	f.room.PlayingVideo = nil
	return nil
}

func (f *fakeAuthority) view() RoomView {
	return func() (domain.Room, bool) { return *f.room, true }
}

// fakePositionStore records the overlay documents written per user.
type fakePositionStore struct {
	positions map[domain.UserID]domain.SlidePosition
	writes    int
	err       error
}

func newFakePositionStore() *fakePositionStore {
	return &fakePositionStore{positions: make(map[domain.UserID]domain.SlidePosition)}
}

func (f *fakePositionStore) SetSlidePosition(_ context.Context, _ domain.RoomID, pos domain.SlidePosition) error {
	if f.err != nil {
		return f.err
	}
	f.writes++
	f.positions[pos.ID] = pos
	return nil
}

func (f *fakePositionStore) DeleteSlidePosition(_ context.Context, _ domain.RoomID, user domain.UserID) error {
	delete(f.positions, user)
	return nil
}

func (f *fakePositionStore) SubscribeSlidePositions(context.Context, domain.RoomID, func([]domain.SlidePosition)) (core.Unsubscribe, error) {
	return func() {}, nil
}

func videoDeck() []domain.Slide {
	slides := make([]domain.Slide, 5)
	for i := range slides {
		slides[i] = domain.Slide{ID: fmt.Sprintf("s%d", i), URL: fmt.Sprintf("https://slides/%d", i)}
	}
	slides[2].Videos = []domain.Video{{ID: "v1", Title: "demo", Source: domain.VideoSourceYouTube}}
	return slides
}
