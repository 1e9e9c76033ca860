package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lectern-app/lectern/internal/app/session"
	"github.com/lectern-app/lectern/internal/config"
	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// fakeDocs covers the store surface the REST handlers and the participant
// entry/leave path reach.
type fakeDocs struct {
	core.DocumentStore

	mu    sync.Mutex
	rooms map[domain.RoomID]*domain.Room
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{rooms: make(map[domain.RoomID]*domain.Room)}
}

func (f *fakeDocs) CreateRoom(_ context.Context, room *domain.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeDocs) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (f *fakeDocs) ListRooms(context.Context) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Room
	for _, r := range f.rooms {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeDocs) AddUser(_ context.Context, id domain.RoomID, user domain.UserRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.Users = append(room.Users, user)
	return nil
}

func (f *fakeDocs) RemoveUser(_ context.Context, id domain.RoomID, user domain.UserRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	out := room.Users[:0]
	for _, u := range room.Users {
		if u.ID != user.ID {
			out = append(out, u)
		}
	}
	room.Users = out
	return nil
}

func (f *fakeDocs) SubscribeRoom(context.Context, domain.RoomID, func(domain.Room)) (core.Unsubscribe, error) {
	return func() {}, nil
}

func (f *fakeDocs) SetSlidePosition(context.Context, domain.RoomID, domain.SlidePosition) error {
	return nil
}

func (f *fakeDocs) DeleteSlidePosition(context.Context, domain.RoomID, domain.UserID) error {
	return nil
}

func (f *fakeDocs) DeleteAnalysis(context.Context, domain.RoomID, domain.UserID) error {
	return nil
}

func newTestRouter(docs *fakeDocs) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Mode: "test", Secret: "test-secret"}
	ctrl := NewController(docs, session.NewManager(docs), nil, nil, nil, time.Second)
	return NewRouter(cfg, ctrl)
}

func TestCreateRoom(t *testing.T) {
	docs := newFakeDocs()
	r := newTestRouter(docs)

	body := `{"name":"algorithms","admin":"prof","password":"pw"}`
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	room, ok := docs.rooms[resp.RoomID]
	if !ok {
		t.Fatal("room was not stored")
	}
	if room.Name != "algorithms" || room.Admin != "prof" || room.AdminID == "" {
		t.Errorf("unexpected room %+v", room)
	}
	if room.IsArchived {
		t.Error("a new room must start live")
	}
}

func TestCreateRoomValidation(t *testing.T) {
	r := newTestRouter(newFakeDocs())

	for _, body := range []string{
		`{}`,
		`{"name":"x"}`,
		`{"name":"` + strings.Repeat("a", domain.MaxNameLen+1) + `","admin":"p"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestGetRoomNotFound(t *testing.T) {
	r := newTestRouter(newFakeDocs())

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListRoomsHidesPassword(t *testing.T) {
	docs := newFakeDocs()
	docs.rooms["r1"] = &domain.Room{ID: "r1", Name: "algo", Admin: "prof", Password: "hunter2"}
	r := newTestRouter(docs)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "hunter2") {
		t.Error("listing must not leak the room password")
	}
}

func TestBearerTokenIdentity(t *testing.T) {
	r := newTestRouter(newFakeDocs())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-42",
		"name": "alice",
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", w.Code)
	}
}

func TestClientTokenCookieIssued(t *testing.T) {
	r := newTestRouter(newFakeDocs())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "ct" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("first request should be issued a client token cookie")
	}
}
