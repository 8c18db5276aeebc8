package workflow

import (
	"encoding/json"
	"time"
)

// AssessmentKind tags the per-stage assessment payload variants. External
// analytical services each return a contractually fixed shape; anything we
// do not recognize is preserved raw instead of being read field-by-field.
type AssessmentKind string

const (
	AssessmentPolicyCriteria AssessmentKind = "policy_criteria"
	AssessmentCohortMetrics  AssessmentKind = "cohort_metrics"
	AssessmentPrediction     AssessmentKind = "prediction"
	AssessmentStrategyScore  AssessmentKind = "strategy_score"
	AssessmentUnrecognized   AssessmentKind = "unrecognized"
)

// PolicyCriterion is one criterion verdict from the policy analysis engine.
type PolicyCriterion struct {
	CriterionID string  `json:"criterion_id"`
	Name        string  `json:"name"`
	Met         bool    `json:"met"`
	Rationale   string  `json:"rationale,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
}

// CohortMetrics summarizes the matched patient cohort for one payer.
type CohortMetrics struct {
	CohortSize   int     `json:"cohort_size"`
	ApprovalRate float64 `json:"approval_rate"`
	MedianDays   float64 `json:"median_days"`
}

// Prediction is the model output backing an AI recommendation.
type Prediction struct {
	Outcome     string  `json:"outcome"`
	Probability float64 `json:"probability"`
	ModelID     string  `json:"model_id,omitempty"`
}

// StrategyScore ranks one submission strategy.
type StrategyScore struct {
	StrategyID string  `json:"strategy_id"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// Assessment is the tagged union of per-stage analytical payloads, keyed by
// the producing stage's contract. Unknown or legacy shapes land in Raw with
// Kind set to unrecognized rather than being silently mis-read.
type Assessment struct {
	Kind           AssessmentKind   `json:"kind"`
	PolicyCriteria []PolicyCriterion `json:"policy_criteria,omitempty"`
	CohortMetrics  *CohortMetrics    `json:"cohort_metrics,omitempty"`
	Prediction     *Prediction       `json:"prediction,omitempty"`
	StrategyScores []StrategyScore   `json:"strategy_scores,omitempty"`
	Raw            json.RawMessage   `json:"raw,omitempty"`
}

// UnmarshalJSON maps unknown kinds to the unrecognized variant, keeping the
// original bytes available.
func (a *Assessment) UnmarshalJSON(data []byte) error {
	type alias Assessment
	var tmp alias
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	switch tmp.Kind {
	case AssessmentPolicyCriteria, AssessmentCohortMetrics, AssessmentPrediction, AssessmentStrategyScore:
		*a = Assessment(tmp)
	default:
		*a = Assessment{Kind: AssessmentUnrecognized, Raw: append(json.RawMessage(nil), data...)}
	}
	return nil
}

// StageAnalysisResult is the ephemeral outcome of one stage run. It lives in
// the per-step cache for the client session only and is overwritten by a
// fresh run of the same stage.
type StageAnalysisResult struct {
	Stage           Stage                 `json:"stage"`
	Reasoning       string                `json:"reasoning"`
	Confidence      float64               `json:"confidence"`
	Findings        []string              `json:"findings"`
	Recommendations []string              `json:"recommendations"`
	Warnings        []string              `json:"warnings"`
	Assessments     map[string]Assessment `json:"assessments"`

	// AttemptKey is unique per issued attempt so downstream message/record
	// keys never collide when a timed-out call is retried.
	AttemptKey string `json:"attempt_key,omitempty"`

	ProducedAt time.Time `json:"produced_at"`
}

// FragmentKind discriminates streaming frames.
type FragmentKind string

const (
	FragmentPartial FragmentKind = "fragment"
	FragmentFinal   FragmentKind = "final"
	FragmentError   FragmentKind = "error"
)

// StreamFragment is one frame of a streaming stage run. Partial frames carry
// an assessment keyed by sub-entity (e.g. one payer policy); the final frame
// carries the assembled result.
type StreamFragment struct {
	Kind       FragmentKind         `json:"kind"`
	EntityKey  string               `json:"entity_key,omitempty"`
	Assessment *Assessment          `json:"assessment,omitempty"`
	Result     *StageAnalysisResult `json:"result,omitempty"`
	Error      string               `json:"error,omitempty"`
}
