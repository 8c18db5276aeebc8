package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type CohortVector struct {
	Id           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CaseId       *uuid.UUID      `gorm:"type:uuid;index"`
	PayerId      string          `gorm:"type:varchar(100);not null;index"`
	Outcome      string          `gorm:"type:varchar(50);not null"`
	DecisionDays int             `gorm:"default:0"`
	Embedding    pgvector.Vector `gorm:"type:vector(64)"` // clinical feature vector, 64 dimensions
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
}

func (CohortVector) TableName() string {
	return "cohort_vectors"
}
