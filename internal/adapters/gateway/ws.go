// Package gateway exposes the coordinator over HTTP and WebSocket.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/app/media"
	"github.com/lectern-app/lectern/internal/app/session"
	"github.com/lectern-app/lectern/internal/app/slidesync"
	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

// Controller wires participant connections to the session, media and
// slide-sync services.
type Controller struct {
	store       core.DocumentStore
	sessions    *session.Manager
	dialer      core.RelayDialer
	capture     core.MediaCapture
	audit       core.AuditSink
	joinTimeout time.Duration
	upgrader    websocket.Upgrader
}

func NewController(store core.DocumentStore, sessions *session.Manager, dialer core.RelayDialer, capture core.MediaCapture, audit core.AuditSink, joinTimeout time.Duration) *Controller {
	if audit == nil {
		audit = core.NopAudit{}
	}
	if joinTimeout <= 0 {
		joinTimeout = 10 * time.Second
	}
	return &Controller{
		store:       store,
		sessions:    sessions,
		dialer:      dialer,
		capture:     capture,
		audit:       audit,
		joinTimeout: joinTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// clientMessage is the participant-to-coordinator envelope.
type clientMessage struct {
	Type    string                 `json:"type"`
	Device  string                 `json:"device,omitempty"`
	Audio   bool                   `json:"audio,omitempty"`
	On      bool                   `json:"on,omitempty"`
	Video   string                 `json:"video,omitempty"`
	Slides  []domain.Slide         `json:"slides,omitempty"`
	Content string                 `json:"content,omitempty"`
	Sample  *domain.AnalysisSample `json:"sample,omitempty"`
}

// serverMessage is the coordinator-to-participant envelope.
type serverMessage struct {
	Type      string                 `json:"type"`
	Room      *domain.Room           `json:"room,omitempty"`
	Positions []domain.SlidePosition `json:"positions,omitempty"`
	Peer      string                 `json:"peer,omitempty"`
	Page      *int                   `json:"page,omitempty"`
	Video     *domain.Video          `json:"video,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// client serializes writes to one WebSocket connection.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) send(m serverMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(m); err != nil {
		log.Debug().Err(err).Str("module", "gateway").Msg("ws write")
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.Close()
}

func (ct *Controller) identity(c *gin.Context) domain.UserRef {
	id := c.GetString("user_id")
	if id == "" {
		id = uuid.NewString()
	}
	name := c.GetString("nickname")
	if name == "" {
		name = c.Query("name")
	}
	if name == "" {
		name = "anonymous"
	}
	return domain.UserRef{ID: domain.UserID(id), Name: truncateName(name, domain.MaxNameLen)}
}

// truncateName cuts on a rune boundary so the stored name stays valid UTF-8.
func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Participant runs one participant's connection for its whole lifetime:
// entry, role wiring, command dispatch and leave-time cleanup.
func (ct *Controller) Participant(c *gin.Context) {
	roomID := domain.RoomID(c.Param("rid"))
	role, err := domain.ParseRole(c.DefaultQuery("type", string(domain.RoleListener)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user := ct.identity(c)

	conn, err := ct.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Str("room", string(roomID)).Msg("ws upgrade")
		return
	}
	cl := &client{conn: conn}

	// The connection outlives the HTTP request; run on a detached context
	// so leave-time cleanup still works after the socket dies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enterCtx, enterCancel := context.WithTimeout(ctx, ct.joinTimeout)
	h, err := ct.sessions.Enter(enterCtx, roomID, user, role, c.Query("password"))
	enterCancel()
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) || errors.Is(err, domain.ErrWrongPassword) {
			cl.send(serverMessage{Type: "error", Error: err.Error()})
		} else {
			log.Error().Err(err).Str("module", "gateway").Str("room", string(roomID)).Msg("session entry")
			cl.send(serverMessage{Type: "error", Error: "session entry failed"})
		}
		cl.close()
		return
	}

	h.OnRoomChanged(func(room domain.Room) {
		cl.send(serverMessage{Type: "room", Room: &room})
	})
	h.OnArchived(func() {
		cl.send(serverMessage{Type: "session_ended"})
		if role == domain.RoleListener {
			// The lecture is over; drop the socket so the read loop runs
			// the leave path.
			cl.close()
		}
	})

	p := &participant{
		ctrl:   ct,
		client: cl,
		handle: h,
		user:   user,
		role:   role,
	}
	if err := p.wire(ctx); err != nil {
		log.Error().Err(err).Str("module", "gateway").Str("room", string(roomID)).Msg("participant wiring")
		cl.send(serverMessage{Type: "error", Error: "session entry failed"})
		p.leave()
		return
	}

	p.readLoop(ctx)
	p.leave()
}

// participant is one live connection's role-specific state.
type participant struct {
	ctrl   *Controller
	client *client
	handle *session.Handle
	user   domain.UserRef
	role   domain.PeerRole

	// speaker side
	publisher *media.Publisher
	navigator *slidesync.Navigator

	// listener side
	subscriber *media.Subscriber
	follower   *slidesync.Follower

	leaveOnce sync.Once
}

func (p *participant) wire(ctx context.Context) error {
	roomID := p.handle.RoomID()

	if p.role == domain.RoleSpeaker {
		speaker, err := p.ctrl.sessions.Speaker(p.handle)
		if err != nil {
			return err
		}
		p.publisher = media.NewPublisher(roomID, p.ctrl.dialer, p.ctrl.capture, p.ctrl.audit)
		p.navigator = slidesync.NewNavigator(speaker, p.handle.Room, p.ctrl.audit)

		// The speaker sees every listener's sync state.
		unsub, err := p.ctrl.store.SubscribeSlidePositions(ctx, roomID, func(ps []domain.SlidePosition) {
			p.client.send(serverMessage{Type: "positions", Positions: ps})
		})
		if err != nil {
			return err
		}
		p.handle.AddUnsubscribe(unsub)
		return nil
	}

	p.subscriber = media.NewSubscriber(roomID, p.ctrl.dialer)
	p.subscriber.OnStream(func(rs core.RemoteStream) {
		p.client.send(serverMessage{Type: "stream", Peer: rs.PeerID})
	})
	p.follower = slidesync.NewFollower(roomID, p.user.ID, p.ctrl.store, p.handle.Room, p.ctrl.audit)
	return p.follower.Open(ctx)
}

func (p *participant) readLoop(ctx context.Context) {
	roomID := p.handle.RoomID()
	for {
		var msg clientMessage
		if err := p.client.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("module", "gateway").Str("room", string(roomID)).Msg("ws read")
			}
			return
		}
		if msg.Type == "leave" {
			return
		}
		if err := p.dispatch(ctx, msg); err != nil {
			p.client.send(serverMessage{Type: "error", Error: err.Error()})
		}
	}
}

func (p *participant) dispatch(ctx context.Context, msg clientMessage) error {
	opCtx, cancel := context.WithTimeout(ctx, p.ctrl.joinTimeout)
	defer cancel()

	switch msg.Type {
	case "chat":
		return p.ctrl.store.AppendChat(opCtx, p.handle.RoomID(), domain.ChatMessage{
			ID:        uuid.NewString(),
			UID:       p.user.ID,
			Nickname:  p.user.Name,
			Content:   msg.Content,
			Timestamp: time.Now(),
		})
	}

	if p.role == domain.RoleSpeaker {
		return p.dispatchSpeaker(opCtx, msg)
	}
	return p.dispatchListener(opCtx, msg)
}

func (p *participant) dispatchSpeaker(ctx context.Context, msg clientMessage) error {
	switch msg.Type {
	case "start_camera":
		return p.publisher.StartCamera(ctx, core.CameraOptions{DeviceID: msg.Device, Audio: msg.Audio})
	case "start_screen":
		return p.publisher.StartScreen(ctx)
	case "stop_source":
		p.publisher.StopSource()
		return nil
	case "mute":
		p.publisher.SetMuted(msg.On)
		return nil
	case "hide":
		p.publisher.SetHidden(msg.On)
		return nil
	case "next_page":
		return p.navigator.NextPage(ctx)
	case "prev_page":
		return p.navigator.PrevPage(ctx)
	case "play_video":
		return p.navigator.PlayVideo(ctx, msg.Video)
	case "stop_video":
		return p.navigator.StopVideo(ctx)
	case "deck_start":
		return p.navigator.StartDeck(ctx, msg.Slides)
	case "deck_reset":
		return p.navigator.ResetDeck(ctx)
	}
	return errors.New("unknown command: " + msg.Type)
}

func (p *participant) dispatchListener(ctx context.Context, msg clientMessage) error {
	switch msg.Type {
	case "watch":
		return p.subscriber.Watch(ctx)
	case "next_page":
		if err := p.follower.NextPage(ctx); err != nil {
			return err
		}
	case "prev_page":
		if err := p.follower.PrevPage(ctx); err != nil {
			return err
		}
	case "resync":
		if err := p.follower.Resync(ctx); err != nil {
			return err
		}
	case "unsync":
		if err := p.follower.Unsync(ctx); err != nil {
			return err
		}
	case "play_video":
		p.follower.PlayVideo(msg.Video)
	case "stop_video":
		p.follower.StopVideo()
	case "analysis":
		if msg.Sample == nil {
			return errors.New("analysis sample missing")
		}
		sample := *msg.Sample
		sample.ID = p.user.ID
		return p.ctrl.store.SetAnalysis(ctx, p.handle.RoomID(), sample)
	default:
		return errors.New("unknown command: " + msg.Type)
	}

	page, video := p.follower.Displayed()
	p.client.send(serverMessage{Type: "view", Page: &page, Video: video})
	return nil
}

// leave runs the role-specific teardown exactly once.
func (p *participant) leave() {
	p.leaveOnce.Do(func() {
		roomID := p.handle.RoomID()

		if p.publisher != nil {
			p.publisher.Close()
		}
		if p.subscriber != nil {
			p.subscriber.Close()
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.ctrl.joinTimeout)
		defer cancel()
		if err := p.ctrl.sessions.Leave(ctx, p.handle); err != nil {
			var cleanup *domain.CleanupError
			if errors.As(err, &cleanup) {
				// Already logged; never blocks leaving.
			} else {
				log.Error().Err(err).Str("module", "gateway").Str("room", string(roomID)).
					Str("user", string(p.user.ID)).Msg("session leave")
			}
		}
		p.client.close()
		log.Info().Str("module", "gateway").Str("room", string(roomID)).
			Str("user", string(p.user.ID)).Str("role", string(p.role)).Msg("participant left")
	})
}
