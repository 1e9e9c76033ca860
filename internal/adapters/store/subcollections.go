package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

func (r *Redis) SetSlidePosition(ctx context.Context, room domain.RoomID, pos domain.SlidePosition) error {
	b, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal slide position: %w", err)
	}
	if err := r.client.HSet(ctx, positionsKey(room), string(pos.ID), string(b)).Err(); err != nil {
		return fmt.Errorf("set slide position in %s: %w", room, err)
	}
	r.notifyPositions(ctx, room)
	return nil
}

func (r *Redis) DeleteSlidePosition(ctx context.Context, room domain.RoomID, user domain.UserID) error {
	if err := r.client.HDel(ctx, positionsKey(room), string(user)).Err(); err != nil {
		return fmt.Errorf("delete slide position in %s: %w", room, err)
	}
	r.notifyPositions(ctx, room)
	return nil
}

func (r *Redis) SetAnalysis(ctx context.Context, room domain.RoomID, sample domain.AnalysisSample) error {
	b, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	// Overwritten in place each interval, not appended.
	if err := r.client.HSet(ctx, analysisKey(room), string(sample.ID), string(b)).Err(); err != nil {
		return fmt.Errorf("set analysis in %s: %w", room, err)
	}
	return nil
}

func (r *Redis) DeleteAnalysis(ctx context.Context, room domain.RoomID, user domain.UserID) error {
	if err := r.client.HDel(ctx, analysisKey(room), string(user)).Err(); err != nil {
		return fmt.Errorf("delete analysis in %s: %w", room, err)
	}
	return nil
}

func (r *Redis) AppendChat(ctx context.Context, room domain.RoomID, msg domain.ChatMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal chat: %w", err)
	}
	if err := r.client.RPush(ctx, chatKey(room), string(b)).Err(); err != nil {
		return fmt.Errorf("append chat in %s: %w", room, err)
	}
	return nil
}

func (r *Redis) AppendLog(ctx context.Context, room domain.RoomID, entry domain.LogEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	if err := r.client.RPush(ctx, logKey(room), string(b)).Err(); err != nil {
		return fmt.Errorf("append log in %s: %w", room, err)
	}
	return nil
}

// SubscribeRoom re-fetches and delivers the full room document on every
// change notification, plus once up front. Delivery order follows the
// pub/sub channel, not write order.
func (r *Redis) SubscribeRoom(ctx context.Context, id domain.RoomID, fn func(domain.Room)) (core.Unsubscribe, error) {
	return r.subscribe(ctx, roomChannel(id), func(ctx context.Context) {
		room, err := r.GetRoom(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("module", "store").Str("room", string(id)).Msg("refetch room")
			return
		}
		fn(*room)
	})
}

// SubscribeSlidePositions delivers the full overlay set on every change.
func (r *Redis) SubscribeSlidePositions(ctx context.Context, room domain.RoomID, fn func([]domain.SlidePosition)) (core.Unsubscribe, error) {
	return r.subscribe(ctx, positionChannel(room), func(ctx context.Context) {
		raw, err := r.client.HGetAll(ctx, positionsKey(room)).Result()
		if err != nil {
			log.Error().Err(err).Str("module", "store").Str("room", string(room)).Msg("refetch positions")
			return
		}
		out := make([]domain.SlidePosition, 0, len(raw))
		for _, v := range raw {
			var pos domain.SlidePosition
			if err := json.Unmarshal([]byte(v), &pos); err != nil {
				log.Error().Err(err).Str("module", "store").Str("room", string(room)).Msg("decode position")
				continue
			}
			out = append(out, pos)
		}
		fn(out)
	})
}

func (r *Redis) subscribe(ctx context.Context, channel string, deliver func(context.Context)) (core.Unsubscribe, error) {
	ps := r.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	// ctx bounds the subscription handshake only; the delivery goroutine
	// lives until Unsubscribe closes the pubsub channel.
	bg := context.WithoutCancel(ctx)
	go func() {
		deliver(bg)
		for range ps.Channel() {
			deliver(bg)
		}
	}()

	return func() {
		if err := ps.Close(); err != nil {
			log.Error().Err(err).Str("module", "store").Str("channel", channel).Msg("unsubscribe")
		}
	}, nil
}
