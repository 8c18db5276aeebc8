package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"prior-auth-be/internal/dto"
	"prior-auth-be/internal/entity"
	"prior-auth-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type caseServiceFixture struct {
	svc     ICaseService
	factory *fakeUowFactory
	audit   *fakeBusPublisher
	mail    *fakeMailer
	cohort  *fakeCohortService
}

func newCaseServiceFixture(t *testing.T) *caseServiceFixture {
	t.Helper()
	factory := newFakeUowFactory()
	audit := &fakeBusPublisher{}
	mail := &fakeMailer{}
	cohort := &fakeCohortService{}
	svc := NewCaseService(factory, nil, audit, mail, cohort, fakeLogger{})
	return &caseServiceFixture{svc: svc, factory: factory, audit: audit, mail: mail, cohort: cohort}
}

func (f *caseServiceFixture) seedCase(t *testing.T, stage workflow.Stage) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := f.factory.cases.Create(context.Background(), &entity.Case{
		Id:            id,
		Stage:         string(stage),
		PayerId:       "aetna-ppo",
		ProviderEmail: "clinic@example.com",
		Patient:       json.RawMessage(`{"age": 54}`),
		Medication:    json.RawMessage(`{"name": "adalimumab"}`),
		CreatedAt:     time.Now().Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	return id
}

func TestCreateCaseStartsAtIntake(t *testing.T) {
	f := newCaseServiceFixture(t)

	resp, err := f.svc.CreateCase(context.Background(), &dto.CreateCaseRequest{
		PayerId:       "aetna-ppo",
		ProviderEmail: "clinic@example.com",
		Patient:       json.RawMessage(`{"age": 54}`),
		Medication:    json.RawMessage(`{"name": "adalimumab"}`),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, resp.Id)

	c, err := f.svc.GetCase(context.Background(), resp.Id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIntake, c.Stage)
	assert.True(t, c.HasPayloadFor(workflow.StageIntake))

	// one audit record for the opening
	assert.Equal(t, 1, f.audit.count())
}

func TestGetCaseNotFound(t *testing.T) {
	f := newCaseServiceFixture(t)

	_, err := f.svc.GetCase(context.Background(), uuid.New())
	assert.ErrorIs(t, err, workflow.ErrCaseNotFound)
}

func TestApproveStageMissingCase(t *testing.T) {
	f := newCaseServiceFixture(t)

	_, err := f.svc.ApproveStage(context.Background(), uuid.New(), workflow.StageIntake)
	assert.ErrorIs(t, err, workflow.ErrCaseNotFound)
}

func TestConfirmDecisionMissingCase(t *testing.T) {
	f := newCaseServiceFixture(t)

	err := f.svc.ConfirmDecision(context.Background(), uuid.New(), workflow.DecisionInput{
		Action:     workflow.ActionSubmitToPayer,
		ReviewerID: uuid.New(),
	})
	assert.ErrorIs(t, err, workflow.ErrCaseNotFound)
	assert.Empty(t, f.factory.decisions.decisions)
}

func TestApproveStageAdvancesOneStep(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageIntake)

	c, err := f.svc.ApproveStage(context.Background(), id, workflow.StageIntake)
	require.NoError(t, err)
	assert.Equal(t, workflow.StagePolicyAnalysis, c.Stage)
}

func TestApproveStageRejectsStageMismatch(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageIntake)

	_, err := f.svc.ApproveStage(context.Background(), id, workflow.StageMonitoring)
	require.Error(t, err)

	// case untouched
	c, err := f.svc.GetCase(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIntake, c.Stage)
}

func TestApproveStageRejectsTerminalCase(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageCompleted)

	_, err := f.svc.ApproveStage(context.Background(), id, workflow.StageCompleted)
	assert.ErrorIs(t, err, workflow.ErrTerminalStage)
}

func TestApproveMonitoringIndexesFinishedCase(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageMonitoring)

	c, err := f.svc.ApproveStage(context.Background(), id, workflow.StageMonitoring)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageCompleted, c.Stage)

	assert.Eventually(t, func() bool {
		return f.cohort.indexedCount() == 1
	}, time.Second, 5*time.Millisecond, "completed case should be fed into the cohort index")
}

func TestConfirmDecisionForwardActionAdvancesCase(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageAwaitingHumanDecision)
	reviewer := uuid.New()

	err := f.svc.ConfirmDecision(context.Background(), id, workflow.DecisionInput{
		Action:     workflow.ActionSubmitToPayer,
		ReviewerID: reviewer,
		Reason:     "criteria met",
	})
	require.NoError(t, err)

	c, err := f.svc.GetCase(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageStrategyGeneration, c.Stage)

	require.Len(t, f.factory.decisions.decisions, 1)
	assert.Equal(t, string(workflow.ActionSubmitToPayer), f.factory.decisions.decisions[0].Action)
	assert.Equal(t, reviewer, f.factory.decisions.decisions[0].ReviewerId)

	assert.Eventually(t, func() bool {
		return f.mail.decisionCount() == 1
	}, time.Second, 5*time.Millisecond, "provider should be emailed about the decision")
}

func TestConfirmDecisionPausingActionRecordsOnly(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageAwaitingHumanDecision)

	err := f.svc.ConfirmDecision(context.Background(), id, workflow.DecisionInput{
		Action:     workflow.ActionReturnToProvider,
		ReviewerID: uuid.New(),
		Reason:     "missing labs",
	})
	require.NoError(t, err)

	c, err := f.svc.GetCase(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageAwaitingHumanDecision, c.Stage)
	assert.Len(t, f.factory.decisions.decisions, 1)
}

func TestConfirmDecisionDuplicatesAppend(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageAwaitingHumanDecision)
	input := workflow.DecisionInput{
		Action:     workflow.ActionEscalate,
		ReviewerID: uuid.New(),
		Reason:     "second opinion",
	}

	require.NoError(t, f.svc.ConfirmDecision(context.Background(), id, input))
	require.NoError(t, f.svc.ConfirmDecision(context.Background(), id, input))

	assert.Len(t, f.factory.decisions.decisions, 2)
}

func TestResetCaseClearsPayloadsAndVectors(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageAIRecommendation)

	ctx := context.Background()
	f.factory.cases.cases[id].CoverageAssessments = json.RawMessage(`[{"plan": "ppo"}]`)
	require.NoError(t, f.factory.cohort.Create(ctx, &entity.CohortVector{
		Id:     uuid.New(),
		CaseId: &id,
	}))

	c, err := f.svc.ResetCase(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIntake, c.Stage)

	stored := f.factory.cases.cases[id]
	assert.Nil(t, stored.CoverageAssessments)
	assert.Empty(t, f.factory.cohort.vectors)
}

func TestResetCaseRejectsFailedCase(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageFailed)

	_, err := f.svc.ResetCase(context.Background(), id)
	require.Error(t, err)

	c, err := f.svc.GetCase(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageFailed, c.Stage)
}

func TestNotifyAutomationFinishedRecordsAudit(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageMonitoring)

	f.svc.NotifyAutomationFinished(context.Background(), id)

	require.Equal(t, 1, f.audit.count())
	var msg auditMessage
	require.NoError(t, json.Unmarshal(f.audit.payloads[0], &msg))
	assert.Equal(t, "CASE_AUTOMATION_FINISHED", msg.EventType)
	assert.Equal(t, id, msg.CaseId)
}

func TestNotifyAutomationFailedEmailsProvider(t *testing.T) {
	f := newCaseServiceFixture(t)
	id := f.seedCase(t, workflow.StageStrategyGeneration)

	f.svc.NotifyAutomationFailed(context.Background(), id, string(workflow.StageActionCoordination))

	assert.Eventually(t, func() bool {
		f.mail.mu.Lock()
		defer f.mail.mu.Unlock()
		return len(f.mail.automationNotices) == 1
	}, time.Second, 5*time.Millisecond)
}
