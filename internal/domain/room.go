// Package domain contains the lecture session entities. No transport,
// storage or lifecycle logic here.
package domain

import "time"

type (
	RoomID string
	UserID string
)

// UserRef identifies a participant inside a room's membership set.
type UserRef struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

// Room is the aggregate for one live session. The membership set is
// duplicate-free by user id and mutated only through atomic add/remove.
// CurrentPage and PlayingVideo are meaningful only while Slides is non-nil
// and are written by the speaker alone.
type Room struct {
	ID           RoomID    `json:"id"`
	Name         string    `json:"name"`
	AdminID      UserID    `json:"adminId"`
	Admin        string    `json:"admin"`
	Password     string    `json:"password"`
	IsArchived   bool      `json:"isArchived"`
	Users        []UserRef `json:"users"`
	Slides       []Slide   `json:"slides,omitempty"`
	CurrentPage  int       `json:"currentPage"`
	PlayingVideo *Video    `json:"playingVideo,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// HasDeck reports whether a slide deck is active.
func (r *Room) HasDeck() bool { return len(r.Slides) > 0 }

// ValidPage reports whether i is a usable slide index.
func (r *Room) ValidPage(i int) bool { return i >= 0 && i < len(r.Slides) }

// CurrentSlide returns the slide at the authoritative position.
func (r *Room) CurrentSlide() (Slide, bool) {
	if !r.HasDeck() || !r.ValidPage(r.CurrentPage) {
		return Slide{}, false
	}
	return r.Slides[r.CurrentPage], true
}

// HasUser reports membership by user id.
func (r *Room) HasUser(id UserID) bool {
	for _, u := range r.Users {
		if u.ID == id {
			return true
		}
	}
	return false
}
