package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditEvent struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CaseId     uuid.UUID `gorm:"type:uuid;not null;index"`
	Stage      string    `gorm:"type:varchar(50)"`
	EventType  string    `gorm:"type:varchar(100);not null;index"`
	Actor      string    `gorm:"type:varchar(100)"`
	Detail     datatypes.JSON
	OccurredAt time.Time `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
