package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Case struct {
	Id                  uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Stage               string     `gorm:"type:varchar(50);not null;default:'intake';index"`
	PayerId             string     `gorm:"type:varchar(100);index"`
	ProviderEmail       string     `gorm:"type:varchar(255)"`
	AssignedReviewerId  *uuid.UUID `gorm:"type:uuid;index"`
	Patient             datatypes.JSON
	Medication          datatypes.JSON
	PayerStates         datatypes.JSON
	CoverageAssessments datatypes.JSON
	DocumentationGaps   datatypes.JSON
	AvailableStrategies datatypes.JSON
	SelectedStrategyId  *string         `gorm:"type:varchar(100)"`
	DenialCount         int             `gorm:"default:0"`
	Decisions           []HumanDecision `gorm:"foreignKey:CaseId"`
	CreatedAt           time.Time       `gorm:"autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime"`
	DeletedAt           gorm.DeletedAt  `gorm:"index"`
}

func (Case) TableName() string {
	return "cases"
}

type HumanDecision struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CaseId     uuid.UUID `gorm:"type:uuid;not null;index"`
	ReviewerId uuid.UUID `gorm:"type:uuid;not null;index"`
	Action     string    `gorm:"type:varchar(50);not null"`
	Reason     string    `gorm:"type:text"`
	Note       string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (HumanDecision) TableName() string {
	return "human_decisions"
}
