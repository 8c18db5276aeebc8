package service

import (
	"context"
	"errors"
	"sync"

	"prior-auth-be/internal/dto"
	"prior-auth-be/internal/pkg/logger"
	"prior-auth-be/internal/repository/memory"
	"prior-auth-be/internal/websocket"
	"prior-auth-be/pkg/workflow"

	"github.com/google/uuid"
)

// ISessionService hands out the live workflow orchestrator for a case. One
// orchestrator exists per case per instance; it is rebuilt on demand from
// the persisted case after eviction or restart.
type ISessionService interface {
	Show(ctx context.Context, caseID uuid.UUID) (*dto.ShowCaseResponse, error)
	RunStage(ctx context.Context, caseID uuid.UUID, stage string, refresh, retry bool) (*workflow.StageAnalysisResult, error)
	ApproveStage(ctx context.Context, caseID uuid.UUID, stage string) (*dto.ShowCaseResponse, error)
	ConfirmDecision(ctx context.Context, caseID, reviewerID uuid.UUID, req *dto.ConfirmDecisionRequest) error
	RetryAutomation(ctx context.Context, caseID uuid.UUID) error
	ResetCase(ctx context.Context, caseID uuid.UUID) (*dto.ShowCaseResponse, error)
	EnterStep(ctx context.Context, caseID uuid.UUID, index int) (*dto.EnterStepResponse, error)
	SetViewingStep(ctx context.Context, caseID uuid.UUID, index *int) (*dto.PositionResponse, error)
	Position(ctx context.Context, caseID uuid.UUID) (*dto.PositionResponse, error)
	Trace(ctx context.Context, caseID uuid.UUID) (*dto.TraceResponse, error)

	// HandleStageChanged is the push path driven by the event consumer.
	HandleStageChanged(ctx context.Context, caseID uuid.UUID) error
	Invalidate(caseID uuid.UUID)
}

type sessionService struct {
	sessions    *memory.OrchestratorRepository
	caseService ICaseService
	audit       IAuditService
	executor    workflow.StageExecutor
	hub         *websocket.Hub
	logger      logger.ILogger

	// Serializes get-or-create so two racing requests never build two
	// orchestrators for the same case.
	mu sync.Mutex
}

func NewSessionService(
	sessions *memory.OrchestratorRepository,
	caseService ICaseService,
	audit IAuditService,
	executor workflow.StageExecutor,
	hub *websocket.Hub,
	sysLogger logger.ILogger,
) ISessionService {
	return &sessionService{
		sessions:    sessions,
		caseService: caseService,
		audit:       audit,
		executor:    executor,
		hub:         hub,
		logger:      sysLogger,
	}
}

func (s *sessionService) orchestrator(ctx context.Context, caseID uuid.UUID) (*workflow.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if orch, ok := s.sessions.Get(caseID.String()); ok {
		return orch, nil
	}

	orch, err := workflow.NewOrchestrator(ctx, caseID, workflow.Deps{
		Repo:     s.caseService,
		Executor: s.executor,
		Audit:    s.audit,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		orch.SetProgressHandler(func(entityKey string, assessment workflow.Assessment) {
			s.hub.Send(caseID, websocket.Frame{
				Type: "stream_progress",
				Data: map[string]interface{}{
					"entity_key": entityKey,
					"assessment": assessment,
				},
			})
		})
	}

	s.sessions.Save(caseID.String(), orch)
	return orch, nil
}

func (s *sessionService) Show(ctx context.Context, caseID uuid.UUID) (*dto.ShowCaseResponse, error) {
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return &dto.ShowCaseResponse{
		Case:     orch.Case(),
		Position: orch.Position(),
	}, nil
}

func (s *sessionService) RunStage(ctx context.Context, caseID uuid.UUID, stage string, refresh, retry bool) (*workflow.StageAnalysisResult, error) {
	parsed, err := workflow.ParseStage(stage)
	if err != nil {
		return nil, err
	}
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if retry {
		return orch.RetryStage(ctx, parsed, refresh)
	}
	return orch.RunStage(ctx, parsed, refresh)
}

func (s *sessionService) ApproveStage(ctx context.Context, caseID uuid.UUID, stage string) (*dto.ShowCaseResponse, error) {
	parsed, err := workflow.ParseStage(stage)
	if err != nil {
		return nil, err
	}
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := orch.ApproveStage(ctx, parsed); err != nil {
		return nil, err
	}

	s.pushStage(caseID, orch)
	return &dto.ShowCaseResponse{Case: orch.Case(), Position: orch.Position()}, nil
}

func (s *sessionService) ConfirmDecision(ctx context.Context, caseID, reviewerID uuid.UUID, req *dto.ConfirmDecisionRequest) error {
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return err
	}

	err = orch.ConfirmDecision(ctx, workflow.DecisionInput{
		Action:     workflow.DecisionAction(req.Action),
		ReviewerID: reviewerID,
		Reason:     req.Reason,
		Notes:      req.Notes,
	})

	var autoErr *workflow.AutomationError
	if errors.As(err, &autoErr) {
		// The decision stands; only the follow-through stalled.
		s.caseService.NotifyAutomationFailed(ctx, caseID, string(autoErr.FailedStage))
	}
	if err == nil && workflow.DecisionAction(req.Action).ImpliesForwardProgress() {
		s.caseService.NotifyAutomationFinished(ctx, caseID)
	}
	if err == nil || autoErr != nil {
		s.pushStage(caseID, orch)
	}
	return err
}

func (s *sessionService) RetryAutomation(ctx context.Context, caseID uuid.UUID) error {
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return err
	}

	err = orch.RetryAutomation(ctx)
	var autoErr *workflow.AutomationError
	if errors.As(err, &autoErr) {
		s.caseService.NotifyAutomationFailed(ctx, caseID, string(autoErr.FailedStage))
	}
	if err == nil {
		s.caseService.NotifyAutomationFinished(ctx, caseID)
	}
	if err == nil || autoErr != nil {
		s.pushStage(caseID, orch)
	}
	return err
}

func (s *sessionService) ResetCase(ctx context.Context, caseID uuid.UUID) (*dto.ShowCaseResponse, error) {
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := orch.ResetCase(ctx); err != nil {
		return nil, err
	}

	s.pushStage(caseID, orch)
	return &dto.ShowCaseResponse{Case: orch.Case(), Position: orch.Position()}, nil
}

func (s *sessionService) EnterStep(ctx context.Context, caseID uuid.UUID, index int) (*dto.EnterStepResponse, error) {
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return nil, err
	}
	result, triggered, err := orch.EnterStep(ctx, index)
	if err != nil {
		return nil, err
	}
	return &dto.EnterStepResponse{Result: result, Triggered: triggered}, nil
}

func (s *sessionService) SetViewingStep(ctx context.Context, caseID uuid.UUID, index *int) (*dto.PositionResponse, error) {
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := orch.SetViewingStep(index); err != nil {
		return nil, err
	}
	return s.positionOf(orch), nil
}

func (s *sessionService) Position(ctx context.Context, caseID uuid.UUID) (*dto.PositionResponse, error) {
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return s.positionOf(orch), nil
}

func (s *sessionService) Trace(ctx context.Context, caseID uuid.UUID) (*dto.TraceResponse, error) {
	orch, err := s.orchestrator(ctx, caseID)
	if err != nil {
		return nil, err
	}
	events, err := orch.Trace(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.TraceResponse{Events: events}, nil
}

// HandleStageChanged re-reads the case into the live session and pushes the
// new position to every watcher. A case without a live session needs nothing;
// the next request rebuilds from persisted state anyway.
func (s *sessionService) HandleStageChanged(ctx context.Context, caseID uuid.UUID) error {
	orch, ok := s.sessions.Get(caseID.String())
	if !ok {
		return nil
	}
	if err := orch.HandleStageChanged(ctx); err != nil {
		return err
	}
	s.pushStage(caseID, orch)
	return nil
}

func (s *sessionService) Invalidate(caseID uuid.UUID) {
	s.sessions.Delete(caseID.String())
}

func (s *sessionService) positionOf(orch *workflow.Orchestrator) *dto.PositionResponse {
	return &dto.PositionResponse{
		Position:     orch.Position(),
		Stage:        string(orch.Case().Stage),
		IsProcessing: orch.IsProcessing(),
		StreamState:  orch.StreamState(),
		Automation:   orch.AutomationStatus(),
	}
}

func (s *sessionService) pushStage(caseID uuid.UUID, orch *workflow.Orchestrator) {
	if s.hub == nil {
		return
	}
	s.hub.Send(caseID, websocket.Frame{
		Type: "stage_changed",
		Data: map[string]interface{}{
			"stage":    string(orch.Case().Stage),
			"position": orch.Position(),
		},
	})
}
