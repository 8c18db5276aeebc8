package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditEvent struct {
	Id         uuid.UUID
	CaseId     uuid.UUID
	Stage      string
	EventType  string
	Actor      string
	Detail     json.RawMessage
	OccurredAt time.Time
	CreatedAt  time.Time
}
