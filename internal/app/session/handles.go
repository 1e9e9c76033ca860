package session

import (
	"context"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// SpeakerHandle exposes the room fields only the speaker may write. Holding
// one is the capability; listener-side code never gets an instance, so the
// disjoint-writer convention is enforced by the type system rather than by
// discipline.
type SpeakerHandle struct {
	store  core.RoomStore
	roomID domain.RoomID
}

func (h *SpeakerHandle) RoomID() domain.RoomID { return h.roomID }

func (h *SpeakerHandle) SetCurrentPage(ctx context.Context, page int) error {
	return h.store.SetCurrentPage(ctx, h.roomID, page)
}

func (h *SpeakerHandle) SetPlayingVideo(ctx context.Context, v *domain.Video) error {
	return h.store.SetPlayingVideo(ctx, h.roomID, v)
}

func (h *SpeakerHandle) SetSlides(ctx context.Context, slides []domain.Slide) error {
	return h.store.SetSlides(ctx, h.roomID, slides)
}

func (h *SpeakerHandle) ClearSlides(ctx context.Context) error {
	return h.store.ClearSlides(ctx, h.roomID)
}

// MembershipHandle exposes only the atomic join/leave mutations of the
// membership set. Any participant holds one.
type MembershipHandle struct {
	store  core.RoomStore
	roomID domain.RoomID
}

func (h *MembershipHandle) Join(ctx context.Context, user domain.UserRef) error {
	return h.store.AddUser(ctx, h.roomID, user)
}

func (h *MembershipHandle) Leave(ctx context.Context, user domain.UserRef) error {
	return h.store.RemoveUser(ctx, h.roomID, user)
}
