package core

import "github.com/lectern-app/lectern/internal/domain"

// AuditSink records room audit entries. Recording is fire-and-forget and
// must never block the state transition that produced it.
type AuditSink interface {
	Record(room domain.RoomID, typ, value string)
}

// NopAudit discards entries. Useful in tests and as a default.
type NopAudit struct{}

func (NopAudit) Record(domain.RoomID, string, string) {}
