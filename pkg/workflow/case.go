package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Case is the externally owned case record as seen by the orchestrator.
// The stage-specific payloads are opaque to the core except for the
// presence/absence checks used to decide whether a stage's work exists.
type Case struct {
	CaseID              uuid.UUID       `json:"case_id"`
	Stage               Stage           `json:"stage"`
	Patient             json.RawMessage `json:"patient,omitempty"`
	Medication          json.RawMessage `json:"medication,omitempty"`
	PayerStates         json.RawMessage `json:"payer_states,omitempty"`
	CoverageAssessments json.RawMessage `json:"coverage_assessments,omitempty"`
	DocumentationGaps   json.RawMessage `json:"documentation_gaps,omitempty"`
	AvailableStrategies json.RawMessage `json:"available_strategies,omitempty"`
	SelectedStrategyID  *string         `json:"selected_strategy_id,omitempty"`
	HumanDecisions      []HumanDecision `json:"human_decisions,omitempty"`
	DenialCount         int             `json:"denial_count"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// HasDenialHistory reports whether the recovery step is part of this case's
// visible step list.
func (c *Case) HasDenialHistory() bool {
	return c.DenialCount > 0
}

// HasPayloadFor reports whether the server already holds an analytical
// payload produced by the given stage. Only presence is inspected, never
// shape.
func (c *Case) HasPayloadFor(stage Stage) bool {
	present := func(raw json.RawMessage) bool {
		return len(raw) > 0 && string(raw) != "null" && string(raw) != "[]" && string(raw) != "{}"
	}
	switch stage {
	case StageIntake:
		return present(c.Patient) && present(c.Medication)
	case StagePolicyAnalysis:
		return present(c.CoverageAssessments)
	case StageCohortAnalysis:
		return present(c.PayerStates)
	case StageAIRecommendation:
		return present(c.AvailableStrategies)
	case StageAwaitingHumanDecision:
		return len(c.HumanDecisions) > 0
	case StageStrategyGeneration:
		return c.SelectedStrategyID != nil && *c.SelectedStrategyID != ""
	default:
		return false
	}
}

// DecisionAction is a terminal human decision recorded at the
// awaiting_human_decision step.
type DecisionAction string

const (
	ActionSubmitToPayer        DecisionAction = "submit_to_payer"
	ActionFollowRecommendation DecisionAction = "follow_recommendation"
	ActionReturnToProvider     DecisionAction = "return_to_provider"
	ActionEscalate             DecisionAction = "escalate"
)

// ImpliesForwardProgress reports whether recording this decision triggers
// the automated two-stage follow-through. Pausing decisions do not.
func (a DecisionAction) ImpliesForwardProgress() bool {
	return a == ActionSubmitToPayer || a == ActionFollowRecommendation
}

// HumanDecision is one recorded judgment call. Duplicate decisions for an
// already-decided case are appended as-is; the server enforces no
// idempotency key.
type HumanDecision struct {
	ID         uuid.UUID      `json:"id"`
	Action     DecisionAction `json:"action"`
	ReviewerID uuid.UUID      `json:"reviewer_id"`
	Reason     string         `json:"reason,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	DecidedAt  time.Time      `json:"decided_at"`
}

// DecisionInput is the write shape for ConfirmDecision.
type DecisionInput struct {
	Action     DecisionAction `json:"action"`
	ReviewerID uuid.UUID      `json:"reviewer_id"`
	Reason     string         `json:"reason,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// TraceEvent is one entry of the audit trail, read lazily when the audit
// panel is opened.
type TraceEvent struct {
	ID         uuid.UUID `json:"id"`
	CaseID     uuid.UUID `json:"case_id"`
	EventType  string    `json:"event_type"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CaseRepository is the external case service. Implementations own all
// persistence and all stage transitions; the orchestrator never applies an
// optimistic local stage mutation.
type CaseRepository interface {
	GetCase(ctx context.Context, caseID uuid.UUID) (*Case, error)
	ApproveStage(ctx context.Context, caseID uuid.UUID, stage Stage) (*Case, error)
	ConfirmDecision(ctx context.Context, caseID uuid.UUID, input DecisionInput) error
	ResetCase(ctx context.Context, caseID uuid.UUID) (*Case, error)
}

// StageStream is one open streaming stage run. Recv blocks for the next
// fragment; the terminating frame is either a final result or an error.
type StageStream interface {
	Recv() (*StreamFragment, error)
	Close() error
}

// StageExecutor is the external stage execution service in both its request
// and streaming forms.
type StageExecutor interface {
	RunStage(ctx context.Context, caseID uuid.UUID, stage Stage, refresh bool) (*StageAnalysisResult, error)
	OpenStageStream(ctx context.Context, caseID uuid.UUID, stage Stage, refresh bool) (StageStream, error)
}

// AuditReader exposes the ordered audit trail. Not consulted unless the
// user opens the audit panel.
type AuditReader interface {
	GetTrace(ctx context.Context, caseID uuid.UUID) ([]TraceEvent, error)
}

// Logger is the minimal structured logging surface the core needs. The
// application's zap-backed logger satisfies it.
type Logger interface {
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

// NopLogger discards everything. Used in tests.
type NopLogger struct{}

func (NopLogger) Info(string, string, map[string]interface{})  {}
func (NopLogger) Warn(string, string, map[string]interface{})  {}
func (NopLogger) Error(string, string, map[string]interface{}) {}
