// Package audit writes room audit entries without blocking the state
// transitions that produce them.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/core"
	"github.com/lectern-app/lectern/internal/domain"
)

type record struct {
	room  domain.RoomID
	entry domain.LogEntry
}

// Logger drains entries to the store from a buffered channel. A full
// buffer drops the entry rather than applying backpressure to callers.
type Logger struct {
	store core.AuditStore
	ch    chan record
	done  chan struct{}
}

func NewLogger(ctx context.Context, store core.AuditStore, buffer int) *Logger {
	if buffer <= 0 {
		buffer = 64
	}
	l := &Logger{
		store: store,
		ch:    make(chan record, buffer),
		done:  make(chan struct{}),
	}
	go l.drain(ctx)
	return l
}

// Record queues one entry. Never blocks.
func (l *Logger) Record(room domain.RoomID, typ, value string) {
	r := record{
		room: room,
		entry: domain.LogEntry{
			ID:        uuid.NewString(),
			Type:      typ,
			Value:     value,
			Timestamp: time.Now(),
		},
	}
	select {
	case l.ch <- r:
	default:
		log.Debug().Str("module", "audit").Str("room", string(room)).
			Str("type", typ).Msg("audit buffer full, entry dropped")
	}
}

func (l *Logger) drain(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-l.ch:
			if err := l.store.AppendLog(ctx, r.room, r.entry); err != nil {
				log.Error().Err(err).Str("module", "audit").
					Str("room", string(r.room)).Msg("append log")
			}
		}
	}
}

// Wait blocks until the drain loop has exited.
func (l *Logger) Wait() { <-l.done }
