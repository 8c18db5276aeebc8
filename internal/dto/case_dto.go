package dto

import (
	"encoding/json"
	"time"

	"prior-auth-be/pkg/workflow"

	"github.com/google/uuid"
)

type CreateCaseRequest struct {
	PayerId       string          `json:"payer_id" validate:"required"`
	ProviderEmail string          `json:"provider_email" validate:"omitempty,email"`
	Patient       json.RawMessage `json:"patient" validate:"required"`
	Medication    json.RawMessage `json:"medication" validate:"required"`
}

type CreateCaseResponse struct {
	Id uuid.UUID `json:"id"`
}

type CaseSummaryResponse struct {
	Id            uuid.UUID  `json:"id"`
	Stage         string     `json:"stage"`
	PayerId       string     `json:"payer_id"`
	DenialCount   int        `json:"denial_count"`
	DecisionCount int        `json:"decision_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

type ShowCaseResponse struct {
	Case     *workflow.Case          `json:"case"`
	Position workflow.WizardPosition `json:"position"`
}

type RunStageResponse struct {
	Result *workflow.StageAnalysisResult `json:"result"`
}

type EnterStepResponse struct {
	Result    *workflow.StageAnalysisResult `json:"result,omitempty"`
	Triggered bool                          `json:"triggered"`
}

type ConfirmDecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=submit_to_payer follow_recommendation return_to_provider escalate"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

type SetViewingStepRequest struct {
	// Null means return to the current step.
	StepIndex *int `json:"step_index"`
}

type PositionResponse struct {
	Position     workflow.WizardPosition   `json:"position"`
	Stage        string                    `json:"stage"`
	IsProcessing bool                      `json:"is_processing"`
	StreamState  workflow.StreamState      `json:"stream_state"`
	Automation   workflow.AutomationStatus `json:"automation"`
}

type TraceResponse struct {
	Events []workflow.TraceEvent `json:"events"`
}

type CohortNeighbourResponse struct {
	PayerId      string  `json:"payer_id"`
	Outcome      string  `json:"outcome"`
	DecisionDays int     `json:"decision_days"`
	Distance     float64 `json:"distance"`
}
