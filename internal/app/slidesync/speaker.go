// Package slidesync keeps listeners consistent with the speaker's slide
// position by default while letting each listener browse independently and
// resynchronize on demand.
package slidesync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// Authority is the write capability over the authoritative slide fields.
// session.SpeakerHandle satisfies it; nothing listener-side does.
type Authority interface {
	RoomID() domain.RoomID
	SetCurrentPage(ctx context.Context, page int) error
	SetPlayingVideo(ctx context.Context, v *domain.Video) error
	SetSlides(ctx context.Context, slides []domain.Slide) error
	ClearSlides(ctx context.Context) error
}

// RoomView reads the latest delivered room snapshot.
type RoomView func() (domain.Room, bool)

// Navigator drives the speaker's authoritative navigation.
type Navigator struct {
	authority Authority
	view      RoomView
	audit     core.AuditSink
}

func NewNavigator(authority Authority, view RoomView, audit core.AuditSink) *Navigator {
	if audit == nil {
		audit = core.NopAudit{}
	}
	return &Navigator{authority: authority, view: view, audit: audit}
}

// NextPage advances the authoritative position. Out-of-range moves are
// silently ignored, never errors.
func (n *Navigator) NextPage(ctx context.Context) error { return n.move(ctx, +1) }

// PrevPage moves the authoritative position back, same boundary rule.
func (n *Navigator) PrevPage(ctx context.Context) error { return n.move(ctx, -1) }

func (n *Navigator) move(ctx context.Context, delta int) error {
	room, ok := n.view()
	if !ok || !room.HasDeck() {
		return nil
	}
	target := room.CurrentPage + delta
	if !room.ValidPage(target) {
		return nil
	}
	// Switching slides always stops an in-flight video, before the page
	// change becomes visible.
	if room.PlayingVideo != nil {
		if err := n.authority.SetPlayingVideo(ctx, nil); err != nil {
			return fmt.Errorf("stop video: %w", err)
		}
	}
	if err := n.authority.SetCurrentPage(ctx, target); err != nil {
		return fmt.Errorf("set page: %w", err)
	}
	n.audit.Record(n.authority.RoomID(), "speaker_slide", fmt.Sprintf("move to %d", target))
	return nil
}

// PlayVideo sets the shared video override to an entry of the current
// slide. Unknown ids are ignored.
func (n *Navigator) PlayVideo(ctx context.Context, videoID string) error {
	room, ok := n.view()
	if !ok {
		return nil
	}
	slide, ok := room.CurrentSlide()
	if !ok {
		return nil
	}
	video, ok := slide.FindVideo(videoID)
	if !ok {
		log.Warn().Str("module", "slidesync").Str("room", string(n.authority.RoomID())).
			Str("video", videoID).Msg("video not on current slide")
		return nil
	}
	if err := n.authority.SetPlayingVideo(ctx, &video); err != nil {
		return fmt.Errorf("play video: %w", err)
	}
	n.audit.Record(n.authority.RoomID(), "speaker_video", video.ID)
	return nil
}

// StopVideo clears the shared video override.
func (n *Navigator) StopVideo(ctx context.Context) error {
	if err := n.authority.SetPlayingVideo(ctx, nil); err != nil {
		return fmt.Errorf("stop video: %w", err)
	}
	n.audit.Record(n.authority.RoomID(), "speaker_video", "stop")
	return nil
}

// StartDeck activates a deck at its first page.
func (n *Navigator) StartDeck(ctx context.Context, slides []domain.Slide) error {
	if len(slides) == 0 {
		return nil
	}
	if err := n.authority.SetSlides(ctx, slides); err != nil {
		return fmt.Errorf("start deck: %w", err)
	}
	n.audit.Record(n.authority.RoomID(), "speaker_slide", "start")
	return nil
}

// ResetDeck removes the deck, the position and any playing video.
func (n *Navigator) ResetDeck(ctx context.Context) error {
	if err := n.authority.ClearSlides(ctx); err != nil {
		return fmt.Errorf("reset deck: %w", err)
	}
	n.audit.Record(n.authority.RoomID(), "speaker_slide", "stop")
	return nil
}
