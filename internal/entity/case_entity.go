package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Case struct {
	Id                  uuid.UUID
	Stage               string
	PayerId             string
	ProviderEmail       string
	AssignedReviewerId  *uuid.UUID
	Patient             json.RawMessage
	Medication          json.RawMessage
	PayerStates         json.RawMessage
	CoverageAssessments json.RawMessage
	DocumentationGaps   json.RawMessage
	AvailableStrategies json.RawMessage
	SelectedStrategyId  *string
	DenialCount         int
	Decisions           []*HumanDecision
	CreatedAt           time.Time
	UpdatedAt           *time.Time
	DeletedAt           *time.Time
	IsDeleted           bool
}

type HumanDecision struct {
	Id         uuid.UUID
	CaseId     uuid.UUID
	ReviewerId uuid.UUID
	Action     string
	Reason     string
	Note       string
	CreatedAt  time.Time
}
