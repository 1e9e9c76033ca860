package domain

import "time"

// VideoSource says where a slide video is hosted.
type VideoSource string

const (
	VideoSourceYouTube VideoSource = "YOUTUBE"
	VideoSourceDrive   VideoSource = "GOOGLE_DRIVE"
)

// Video is one playable entry attached to a slide.
type Video struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Source VideoSource `json:"source"`
}

// Slide is one page of the active deck.
type Slide struct {
	ID     string  `json:"id"`
	URL    string  `json:"url"`
	Videos []Video `json:"videos"`
}

// FindVideo looks up a video of this slide by id.
func (s Slide) FindVideo(id string) (Video, bool) {
	for _, v := range s.Videos {
		if v.ID == id {
			return v, true
		}
	}
	return Video{}, false
}

// SlidePosition is a listener's per-user overlay document. Position is
// meaningful only while IsSync is false. Absence of the document is
// equivalent to {IsSync: true}.
type SlidePosition struct {
	ID       UserID `json:"id"`
	IsSync   bool   `json:"isSync"`
	Position int    `json:"position"`
}

// AnalysisSample holds the latest affect measurement for one attendee.
// Samples are overwritten in place each interval and removed on leave.
type AnalysisSample struct {
	ID         UserID  `json:"id"`
	Neutral    float64 `json:"neutral"`
	Happy      float64 `json:"happy"`
	Sad        float64 `json:"sad"`
	Angry      float64 `json:"angry"`
	Fearful    float64 `json:"fearful"`
	Disgusted  float64 `json:"disgusted"`
	Surprised  float64 `json:"surprised"`
	Drowsiness float64 `json:"drowsiness"`
}

// ChatMessage is one chat entry appended under a room.
type ChatMessage struct {
	ID        string    `json:"id"`
	UID       UserID    `json:"uid"`
	Nickname  string    `json:"nickname"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// LogEntry is one audit record appended under a room.
type LogEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}
