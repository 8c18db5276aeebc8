package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prior-auth-be/internal/dto"
	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/mapper"
	"prior-auth-be/internal/pkg/logger"
	"prior-auth-be/internal/pkg/mailer"
	"prior-auth-be/internal/repository/specification"
	"prior-auth-be/internal/repository/unitofwork"
	"prior-auth-be/pkg/events"
	pkgnats "prior-auth-be/pkg/nats"
	"prior-auth-be/pkg/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ICaseService owns all case persistence and every stage transition. It is
// the single writer for the cases table; the per-case orchestrators obtained
// from the session service only ever re-read state after a write here.
type ICaseService interface {
	CreateCase(ctx context.Context, req *dto.CreateCaseRequest) (*dto.CreateCaseResponse, error)
	ListCases(ctx context.Context, limit, offset int) ([]dto.CaseSummaryResponse, error)

	// workflow.CaseRepository
	GetCase(ctx context.Context, caseID uuid.UUID) (*workflow.Case, error)
	ApproveStage(ctx context.Context, caseID uuid.UUID, stage workflow.Stage) (*workflow.Case, error)
	ConfirmDecision(ctx context.Context, caseID uuid.UUID, input workflow.DecisionInput) error
	ResetCase(ctx context.Context, caseID uuid.UUID) (*workflow.Case, error)

	// NotifyAutomationFailed alerts the provider that the post-decision
	// follow-through stalled. The decision itself is untouched.
	NotifyAutomationFailed(ctx context.Context, caseID uuid.UUID, phase string)

	// NotifyAutomationFinished records that both follow-through phases ran
	// to completion.
	NotifyAutomationFinished(ctx context.Context, caseID uuid.UUID)
}

type caseService struct {
	uowFactory unitofwork.RepositoryFactory
	natsPub    *pkgnats.Publisher
	auditPub   IPublisherService
	mail       mailer.IEmailService
	cohort     ICohortService
	logger     logger.ILogger
	wfMapper   *mapper.WorkflowCaseMapper
}

func NewCaseService(
	uowFactory unitofwork.RepositoryFactory,
	natsPub *pkgnats.Publisher,
	auditPub IPublisherService,
	mail mailer.IEmailService,
	cohort ICohortService,
	sysLogger logger.ILogger,
) ICaseService {
	return &caseService{
		uowFactory: uowFactory,
		natsPub:    natsPub,
		auditPub:   auditPub,
		mail:       mail,
		cohort:     cohort,
		logger:     sysLogger,
		wfMapper:   mapper.NewWorkflowCaseMapper(),
	}
}

func (s *caseService) CreateCase(ctx context.Context, req *dto.CreateCaseRequest) (*dto.CreateCaseResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	c := &entity.Case{
		Id:            uuid.New(),
		Stage:         string(workflow.StageIntake),
		PayerId:       req.PayerId,
		ProviderEmail: req.ProviderEmail,
		Patient:       req.Patient,
		Medication:    req.Medication,
	}
	if err := uow.CaseRepository().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewCaseEvent(events.TypeCaseCreated, c.Id.String(), map[string]interface{}{
		"stage":    c.Stage,
		"payer_id": c.PayerId,
	}))
	s.audit(ctx, c.Id, c.Stage, events.TypeCaseCreated, "system", "case opened at intake")

	return &dto.CreateCaseResponse{Id: c.Id}, nil
}

func (s *caseService) ListCases(ctx context.Context, limit, offset int) ([]dto.CaseSummaryResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	cases, err := uow.CaseRepository().FindAll(ctx,
		specification.WithDecisions{},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	summaries := make([]dto.CaseSummaryResponse, len(cases))
	for i, c := range cases {
		summaries[i] = dto.CaseSummaryResponse{
			Id:            c.Id,
			Stage:         c.Stage,
			PayerId:       c.PayerId,
			DenialCount:   c.DenialCount,
			DecisionCount: len(c.Decisions),
			CreatedAt:     c.CreatedAt,
			UpdatedAt:     c.UpdatedAt,
		}
	}
	return summaries, nil
}

func (s *caseService) GetCase(ctx context.Context, caseID uuid.UUID) (*workflow.Case, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	c, err := s.findCase(ctx, uow, caseID)
	if err != nil {
		return nil, err
	}
	return s.wfMapper.ToWorkflow(c), nil
}

// ApproveStage advances the case one step on the canonical path. The write is
// column-level so payloads written by the analysis engine in the meantime are
// preserved.
func (s *caseService) ApproveStage(ctx context.Context, caseID uuid.UUID, stage workflow.Stage) (*workflow.Case, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	c, err := s.findCase(ctx, uow, caseID)
	if err != nil {
		return nil, err
	}
	if c.Stage != string(stage) {
		return nil, fmt.Errorf("cannot approve %s: case is at %s", stage, c.Stage)
	}
	if workflow.Stage(c.Stage).IsTerminal() {
		return nil, workflow.ErrTerminalStage
	}

	next, err := workflow.NextStage(stage)
	if err != nil {
		return nil, err
	}
	if err := uow.CaseRepository().UpdateStage(ctx, caseID, string(next)); err != nil {
		return nil, fmt.Errorf("failed to advance case: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewCaseEvent(events.TypeCaseStageChanged, caseID.String(), map[string]interface{}{
		"from": string(stage),
		"to":   string(next),
	}))
	s.audit(ctx, caseID, string(next), events.TypeCaseStageApproved,
		"reviewer", fmt.Sprintf("approved %s, advanced to %s", stage, next))

	if next == workflow.StageCompleted {
		s.indexFinishedCase(c)
	}

	return s.GetCase(ctx, caseID)
}

// ConfirmDecision appends a decision row and, for forward actions, moves the
// case into the automated follow-through. Duplicate decisions are stored
// as-is; nothing here is idempotent by design of the review trail. A recorded
// decision is never reverted, whatever happens downstream.
func (s *caseService) ConfirmDecision(ctx context.Context, caseID uuid.UUID, input workflow.DecisionInput) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	c, err := s.findCase(ctx, uow, caseID)
	if err != nil {
		return err
	}
	if workflow.Stage(c.Stage).IsTerminal() {
		return workflow.ErrTerminalStage
	}

	decision := &entity.HumanDecision{
		Id:         uuid.New(),
		CaseId:     caseID,
		ReviewerId: input.ReviewerID,
		Action:     string(input.Action),
		Reason:     input.Reason,
		Note:       input.Notes,
	}
	if err := uow.DecisionRepository().Create(ctx, decision); err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	if input.Action.ImpliesForwardProgress() {
		if err := uow.CaseRepository().UpdateStage(ctx, caseID, string(workflow.StageStrategyGeneration)); err != nil {
			return fmt.Errorf("failed to advance case after decision: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	s.publishEvent(ctx, events.NewCaseEvent(events.TypeDecisionRecorded, caseID.String(), map[string]interface{}{
		"action":      string(input.Action),
		"reviewer_id": input.ReviewerID.String(),
	}))
	s.audit(ctx, caseID, c.Stage, events.TypeDecisionRecorded,
		input.ReviewerID.String(), fmt.Sprintf("recorded %s", input.Action))

	if c.ProviderEmail != "" {
		go func(to, id, action, reason string) {
			if err := s.mail.SendDecisionRecorded(to, id, action, reason); err != nil {
				s.logger.Warn("CaseService", "decision email not delivered", map[string]interface{}{
					"case_id": id, "error": err.Error(),
				})
			}
		}(c.ProviderEmail, caseID.String(), string(input.Action), input.Reason)
	}

	return nil
}

// ResetCase wipes the analytical payloads and returns the case to intake.
// Failed cases must be retried in place, not reset.
func (s *caseService) ResetCase(ctx context.Context, caseID uuid.UUID) (*workflow.Case, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	c, err := s.findCase(ctx, uow, caseID)
	if err != nil {
		return nil, err
	}
	if c.Stage == string(workflow.StageFailed) {
		return nil, fmt.Errorf("case %s is failed and cannot be reset", caseID)
	}

	if err := uow.CaseRepository().ClearAnalysisPayloads(ctx, caseID); err != nil {
		return nil, fmt.Errorf("failed to clear case payloads: %w", err)
	}
	if err := uow.CaseRepository().UpdateStage(ctx, caseID, string(workflow.StageIntake)); err != nil {
		return nil, fmt.Errorf("failed to reset case stage: %w", err)
	}
	if err := uow.CohortVectorRepository().DeleteByCaseId(ctx, caseID); err != nil {
		return nil, fmt.Errorf("failed to drop cohort vectors: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewCaseEvent(events.TypeCaseReset, caseID.String(), map[string]interface{}{
		"from": c.Stage,
	}))
	s.audit(ctx, caseID, string(workflow.StageIntake), events.TypeCaseReset,
		"reviewer", fmt.Sprintf("reset from %s", c.Stage))

	return s.GetCase(ctx, caseID)
}

// indexFinishedCase feeds the closed case back into the cohort index so it
// informs future similar requests. Best effort, never blocks the approval.
func (s *caseService) indexFinishedCase(c *entity.Case) {
	if s.cohort == nil {
		return
	}

	outcome := "approved"
	if len(c.Decisions) > 0 {
		outcome = c.Decisions[len(c.Decisions)-1].Action
	}
	days := int(time.Since(c.CreatedAt).Hours() / 24)

	go func(id uuid.UUID, outcome string, days int) {
		if err := s.cohort.IndexCase(context.Background(), id, outcome, days); err != nil {
			s.logger.Warn("CaseService", "cohort indexing failed", map[string]interface{}{
				"case_id": id, "error": err.Error(),
			})
		}
	}(c.Id, outcome, days)
}

func (s *caseService) NotifyAutomationFailed(ctx context.Context, caseID uuid.UUID, phase string) {
	s.publishEvent(ctx, events.NewCaseEvent(events.TypeAutomationFailed, caseID.String(), map[string]interface{}{
		"phase": phase,
	}))
	s.audit(ctx, caseID, phase, events.TypeAutomationFailed,
		"system", fmt.Sprintf("follow-through stalled at %s", phase))

	uow := s.uowFactory.NewUnitOfWork(ctx)
	c, err := s.findCase(ctx, uow, caseID)
	if err != nil {
		s.logger.Warn("CaseService", "automation notice lookup failed", map[string]interface{}{
			"case_id": caseID, "error": err.Error(),
		})
		return
	}
	if c.ProviderEmail == "" {
		return
	}
	go func(to, id string) {
		if err := s.mail.SendAutomationFailed(to, id, phase); err != nil {
			s.logger.Warn("CaseService", "automation email not delivered", map[string]interface{}{
				"case_id": id, "error": err.Error(),
			})
		}
	}(c.ProviderEmail, caseID.String())
}

func (s *caseService) NotifyAutomationFinished(ctx context.Context, caseID uuid.UUID) {
	s.publishEvent(ctx, events.NewCaseEvent(events.TypeAutomationFinished, caseID.String(), nil))
	s.audit(ctx, caseID, string(workflow.StageMonitoring), events.TypeAutomationFinished,
		"system", "follow-through completed")
}

func (s *caseService) findCase(ctx context.Context, uow unitofwork.UnitOfWork, caseID uuid.UUID) (*entity.Case, error) {
	c, err := uow.CaseRepository().FindOne(ctx,
		specification.ByID{ID: caseID},
		specification.WithDecisions{},
	)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	// FindOne reports a missing row as (nil, nil)
	if c == nil {
		return nil, workflow.ErrCaseNotFound
	}
	return c, nil
}

// publishEvent pushes to NATS for cross-service fan-out. Delivery failures
// are logged, never surfaced; the state write already committed.
func (s *caseService) publishEvent(ctx context.Context, event events.Event) {
	if s.natsPub == nil {
		return
	}
	if err := s.natsPub.Publish(ctx, event); err != nil {
		s.logger.Warn("CaseService", "event publish failed", map[string]interface{}{
			"event_type": event.EventType(),
			"error":      err.Error(),
		})
	}
}

// audit drops a record onto the in-process audit bus. The consumer persists
// it out of band so audit writes never sit inside the case transaction.
func (s *caseService) audit(ctx context.Context, caseID uuid.UUID, stage, eventType, actor, detail string) {
	if s.auditPub == nil {
		return
	}
	payload, err := encodeAuditMessage(caseID, stage, eventType, actor, detail)
	if err != nil {
		s.logger.Error("CaseService", "audit encode failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.auditPub.Publish(ctx, payload); err != nil {
		s.logger.Warn("CaseService", "audit publish failed", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}
