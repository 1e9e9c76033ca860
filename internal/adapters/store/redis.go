// Package store implements the document-store contract on Redis. Room
// fields live in a hash so each field is written atomically on its own;
// the membership set is a hash keyed by user id, which makes add/remove
// the atomic set operations the room contract requires. Change
// notifications travel over pub/sub and subscribers re-fetch the full
// snapshot on every notification (last-delivery-wins).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/domain"
)

const (
	fieldName         = "name"
	fieldAdminID      = "adminId"
	fieldAdmin        = "admin"
	fieldPassword     = "password"
	fieldArchived     = "isArchived"
	fieldTimestamp    = "timestamp"
	fieldSlides       = "slides"
	fieldCurrentPage  = "currentPage"
	fieldPlayingVideo = "playingVideo"
)

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Connect builds a client and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedis(client), nil
}

func (r *Redis) Close() error { return r.client.Close() }

func indexKey() string                       { return "rooms:index" }
func docKey(id domain.RoomID) string         { return fmt.Sprintf("rooms:%s:doc", id) }
func usersKey(id domain.RoomID) string       { return fmt.Sprintf("rooms:%s:users", id) }
func positionsKey(id domain.RoomID) string   { return fmt.Sprintf("rooms:%s:slide-position", id) }
func analysisKey(id domain.RoomID) string    { return fmt.Sprintf("rooms:%s:analysis", id) }
func logKey(id domain.RoomID) string         { return fmt.Sprintf("rooms:%s:log", id) }
func chatKey(id domain.RoomID) string        { return fmt.Sprintf("rooms:%s:chat", id) }
func roomChannel(id domain.RoomID) string    { return fmt.Sprintf("rooms:%s:events:room", id) }
func positionChannel(id domain.RoomID) string {
	return fmt.Sprintf("rooms:%s:events:positions", id)
}

func (r *Redis) CreateRoom(ctx context.Context, room *domain.Room) error {
	doc := map[string]any{
		fieldName:        room.Name,
		fieldAdminID:     string(room.AdminID),
		fieldAdmin:       room.Admin,
		fieldPassword:    room.Password,
		fieldArchived:    boolField(room.IsArchived),
		fieldTimestamp:   room.Timestamp.Format(time.RFC3339Nano),
		fieldCurrentPage: strconv.Itoa(room.CurrentPage),
	}
	if room.HasDeck() {
		b, err := json.Marshal(room.Slides)
		if err != nil {
			return fmt.Errorf("marshal slides: %w", err)
		}
		doc[fieldSlides] = string(b)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, docKey(room.ID), doc)
	for _, u := range room.Users {
		b, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		pipe.HSet(ctx, usersKey(room.ID), string(u.ID), string(b))
	}
	pipe.SAdd(ctx, indexKey(), string(room.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create room %s: %w", room.ID, err)
	}
	r.notifyRoom(ctx, room.ID)
	return nil
}

func (r *Redis) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	doc, err := r.client.HGetAll(ctx, docKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch room %s: %w", id, err)
	}
	if len(doc) == 0 {
		return nil, domain.ErrRoomNotFound
	}
	users, err := r.client.HGetAll(ctx, usersKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch room users %s: %w", id, err)
	}
	return decodeRoom(id, doc, users)
}

func (r *Redis) ListRooms(ctx context.Context) ([]domain.Room, error) {
	ids, err := r.client.SMembers(ctx, indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]domain.Room, 0, len(ids))
	for _, id := range ids {
		room, err := r.GetRoom(ctx, domain.RoomID(id))
		if err != nil {
			// Index entries may outlive expired docs; skip them.
			continue
		}
		out = append(out, *room)
	}
	return out, nil
}

func (r *Redis) AddUser(ctx context.Context, id domain.RoomID, user domain.UserRef) error {
	b, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := r.client.HSet(ctx, usersKey(id), string(user.ID), string(b)).Err(); err != nil {
		return fmt.Errorf("add user to %s: %w", id, err)
	}
	r.notifyRoom(ctx, id)
	return nil
}

func (r *Redis) RemoveUser(ctx context.Context, id domain.RoomID, user domain.UserRef) error {
	if err := r.client.HDel(ctx, usersKey(id), string(user.ID)).Err(); err != nil {
		return fmt.Errorf("remove user from %s: %w", id, err)
	}
	r.notifyRoom(ctx, id)
	return nil
}

func (r *Redis) SetArchived(ctx context.Context, id domain.RoomID) error {
	if err := r.client.HSet(ctx, docKey(id), fieldArchived, "1").Err(); err != nil {
		return fmt.Errorf("archive room %s: %w", id, err)
	}
	r.notifyRoom(ctx, id)
	return nil
}

func (r *Redis) SetCurrentPage(ctx context.Context, id domain.RoomID, page int) error {
	if err := r.client.HSet(ctx, docKey(id), fieldCurrentPage, strconv.Itoa(page)).Err(); err != nil {
		return fmt.Errorf("set page on %s: %w", id, err)
	}
	r.notifyRoom(ctx, id)
	return nil
}

func (r *Redis) SetPlayingVideo(ctx context.Context, id domain.RoomID, v *domain.Video) error {
	if v == nil {
		if err := r.client.HDel(ctx, docKey(id), fieldPlayingVideo).Err(); err != nil {
			return fmt.Errorf("clear video on %s: %w", id, err)
		}
	} else {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal video: %w", err)
		}
		if err := r.client.HSet(ctx, docKey(id), fieldPlayingVideo, string(b)).Err(); err != nil {
			return fmt.Errorf("set video on %s: %w", id, err)
		}
	}
	r.notifyRoom(ctx, id)
	return nil
}

func (r *Redis) SetSlides(ctx context.Context, id domain.RoomID, slides []domain.Slide) error {
	b, err := json.Marshal(slides)
	if err != nil {
		return fmt.Errorf("marshal slides: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, docKey(id), fieldSlides, string(b), fieldCurrentPage, "0")
	pipe.HDel(ctx, docKey(id), fieldPlayingVideo)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set slides on %s: %w", id, err)
	}
	r.notifyRoom(ctx, id)
	return nil
}

func (r *Redis) ClearSlides(ctx context.Context, id domain.RoomID) error {
	if err := r.client.HDel(ctx, docKey(id), fieldSlides, fieldPlayingVideo).Err(); err != nil {
		return fmt.Errorf("clear slides on %s: %w", id, err)
	}
	if err := r.client.HSet(ctx, docKey(id), fieldCurrentPage, "0").Err(); err != nil {
		return fmt.Errorf("reset page on %s: %w", id, err)
	}
	r.notifyRoom(ctx, id)
	return nil
}

func (r *Redis) notifyRoom(ctx context.Context, id domain.RoomID) {
	if err := r.client.Publish(ctx, roomChannel(id), "changed").Err(); err != nil {
		log.Error().Err(err).Str("module", "store").Str("room", string(id)).Msg("publish room event")
	}
}

func (r *Redis) notifyPositions(ctx context.Context, id domain.RoomID) {
	if err := r.client.Publish(ctx, positionChannel(id), "changed").Err(); err != nil {
		log.Error().Err(err).Str("module", "store").Str("room", string(id)).Msg("publish position event")
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func decodeRoom(id domain.RoomID, doc, users map[string]string) (*domain.Room, error) {
	room := &domain.Room{
		ID:       id,
		Name:     doc[fieldName],
		AdminID:  domain.UserID(doc[fieldAdminID]),
		Admin:    doc[fieldAdmin],
		Password: doc[fieldPassword],
	}
	room.IsArchived = doc[fieldArchived] == "1"
	if ts := doc[fieldTimestamp]; ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp of %s: %w", id, err)
		}
		room.Timestamp = t
	}
	if raw := doc[fieldSlides]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &room.Slides); err != nil {
			return nil, fmt.Errorf("decode slides of %s: %w", id, err)
		}
	}
	if raw := doc[fieldCurrentPage]; raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("decode page of %s: %w", id, err)
		}
		room.CurrentPage = page
	}
	if raw := doc[fieldPlayingVideo]; raw != "" {
		var v domain.Video
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode video of %s: %w", id, err)
		}
		room.PlayingVideo = &v
	}
	room.Users = make([]domain.UserRef, 0, len(users))
	for _, raw := range users {
		var u domain.UserRef
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fmt.Errorf("decode user of %s: %w", id, err)
		}
		room.Users = append(room.Users, u)
	}
	return room, nil
}
