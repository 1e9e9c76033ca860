package domain

import (
	"errors"
	"strings"
)

var (
	// ErrRoomNotFound means the session id does not resolve to a room.
	// Fatal to the entry attempt, not to be retried blindly.
	ErrRoomNotFound = errors.New("room not found")

	// ErrWrongPassword means the supplied room password does not match.
	// Entry is rejected; nothing was joined.
	ErrWrongPassword = errors.New("wrong password")

	// ErrMediaAcquisitionFailed means a camera/mic/screen device could not
	// be acquired. Recoverable: the caller may retry with another source.
	ErrMediaAcquisitionFailed = errors.New("media acquisition failed")

	// ErrRelayJoinFailed means the relay could not be joined. The media
	// state machine stays in its prior state; no automatic retry.
	ErrRelayJoinFailed = errors.New("relay join failed")
)

// CleanupError collects best-effort leave-time deletion failures. It is
// logged and must never block navigation away from the session.
type CleanupError struct {
	Analysis      error
	SlidePosition error
}

func (e *CleanupError) Error() string {
	var parts []string
	if e.Analysis != nil {
		parts = append(parts, "analysis: "+e.Analysis.Error())
	}
	if e.SlidePosition != nil {
		parts = append(parts, "slide position: "+e.SlidePosition.Error())
	}
	return "cleanup partial failure: " + strings.Join(parts, "; ")
}

// Partial reports whether at least one deletion failed.
func (e *CleanupError) Partial() bool {
	return e.Analysis != nil || e.SlidePosition != nil
}
