package core

import (
	"context"

	"github.com/lectern-app/lectern/internal/domain"
)

// Unsubscribe releases one live subscription. Every subscription must be
// released on teardown or it keeps mutating freed state.
type Unsubscribe func()

// RoomStore is the document-store contract for the room aggregate.
// Subscriptions deliver the current full value on every change, in delivery
// order, with possible duplicates; consumers must treat each delivery as
// replacing prior state wholesale.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	// GetRoom returns domain.ErrRoomNotFound when the id does not resolve.
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	SubscribeRoom(ctx context.Context, id domain.RoomID, fn func(domain.Room)) (Unsubscribe, error)

	// AddUser and RemoveUser are atomic set operations keyed by user id,
	// never positional writes.
	AddUser(ctx context.Context, id domain.RoomID, user domain.UserRef) error
	RemoveUser(ctx context.Context, id domain.RoomID, user domain.UserRef) error

	// SetArchived marks the room ended. Archival is terminal and never
	// reverted; the room document itself is preserved.
	SetArchived(ctx context.Context, id domain.RoomID) error

	SetCurrentPage(ctx context.Context, id domain.RoomID, page int) error
	// SetPlayingVideo with nil clears the override.
	SetPlayingVideo(ctx context.Context, id domain.RoomID, v *domain.Video) error
	// SetSlides activates a deck and resets the position to the first page.
	SetSlides(ctx context.Context, id domain.RoomID, slides []domain.Slide) error
	// ClearSlides removes the deck, the position and any playing video.
	ClearSlides(ctx context.Context, id domain.RoomID) error
}

// SlidePositionStore holds the per-listener overlay subcollection.
type SlidePositionStore interface {
	SetSlidePosition(ctx context.Context, room domain.RoomID, pos domain.SlidePosition) error
	DeleteSlidePosition(ctx context.Context, room domain.RoomID, user domain.UserID) error
	SubscribeSlidePositions(ctx context.Context, room domain.RoomID, fn func([]domain.SlidePosition)) (Unsubscribe, error)
}

// AnalysisStore holds the per-attendee affect samples. Written by the
// external analyzer, deleted by the coordinator on leave.
type AnalysisStore interface {
	SetAnalysis(ctx context.Context, room domain.RoomID, sample domain.AnalysisSample) error
	DeleteAnalysis(ctx context.Context, room domain.RoomID, user domain.UserID) error
}

// ChatStore appends chat entries. Storage and rendering of chat stay
// outside the coordinator; it only forwards.
type ChatStore interface {
	AppendChat(ctx context.Context, room domain.RoomID, msg domain.ChatMessage) error
}

// AuditStore appends audit log entries under a room.
type AuditStore interface {
	AppendLog(ctx context.Context, room domain.RoomID, entry domain.LogEntry) error
}

// DocumentStore is the full store surface the coordinator consumes.
type DocumentStore interface {
	RoomStore
	SlidePositionStore
	AnalysisStore
	ChatStore
	AuditStore
}
