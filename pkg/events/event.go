package events

import "time"

// Event is the contract for everything published on the case event bus.
type Event interface {
	// EventType returns the unique code for this event (e.g. "CASE_STAGE_CHANGED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Well-known event codes.
const (
	TypeCaseCreated        = "CASE_CREATED"
	TypeCaseStageChanged   = "CASE_STAGE_CHANGED"
	TypeCaseStageApproved  = "CASE_STAGE_APPROVED"
	TypeDecisionRecorded   = "CASE_DECISION_RECORDED"
	TypeCaseReset          = "CASE_RESET"
	TypeAutomationFailed   = "CASE_AUTOMATION_FAILED"
	TypeAutomationFinished = "CASE_AUTOMATION_FINISHED"
)

// BaseEvent is the generic implementation used on both the publish and the
// consume side.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewCaseEvent builds an event for a case with the occurrence time set to now.
func NewCaseEvent(eventType string, caseID string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["case_id"] = caseID
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
