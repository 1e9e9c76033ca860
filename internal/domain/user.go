package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxNameLen = 36

var (
	ErrNameEmpty   = errors.New("name empty")
	ErrNameTooLong = errors.New("name too long")
)

// NewUserRef is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUserRef(name string) (UserRef, error) {
	if len(name) == 0 {
		return UserRef{}, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return UserRef{}, ErrNameTooLong
	}
	return UserRef{ID: UserID(uuid.NewString()), Name: name}, nil
}
