package service

import (
	"context"
	"sync"

	"prior-auth-be/internal/dto"
	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/pkg/logger"
	"prior-auth-be/internal/repository/contract"
	"prior-auth-be/internal/repository/specification"
	"prior-auth-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory doubles for the persistence layer. Specifications are reduced to
// the ByID / ForCase filters the services actually issue.

type fakeCaseRepo struct {
	mu        sync.Mutex
	cases     map[uuid.UUID]*entity.Case
	createErr error
	stageErr  error
}

func newFakeCaseRepo() *fakeCaseRepo {
	return &fakeCaseRepo{cases: make(map[uuid.UUID]*entity.Case)}
}

func idFromSpecs(specs []specification.Specification) (uuid.UUID, bool) {
	for _, s := range specs {
		if byID, ok := s.(specification.ByID); ok {
			return byID.ID, true
		}
	}
	return uuid.Nil, false
}

func (r *fakeCaseRepo) Create(ctx context.Context, c *entity.Case) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.cases[c.Id] = &cp
	return nil
}

func (r *fakeCaseRepo) Update(ctx context.Context, c *entity.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.cases[c.Id] = &cp
	return nil
}

func (r *fakeCaseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cases, id)
	return nil
}

// FindOne mirrors the gorm implementation's contract: a missing row is
// (nil, nil), never gorm.ErrRecordNotFound.
func (r *fakeCaseRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := idFromSpecs(specs)
	if !ok {
		return nil, nil
	}
	c, found := r.cases[id]
	if !found {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCaseRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Case, 0, len(r.cases))
	for _, c := range r.cases {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCaseRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.cases)), nil
}

func (r *fakeCaseRepo) UpdateStage(ctx context.Context, id uuid.UUID, stage string) error {
	if r.stageErr != nil {
		return r.stageErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, found := r.cases[id]
	if !found {
		return gorm.ErrRecordNotFound
	}
	c.Stage = stage
	return nil
}

func (r *fakeCaseRepo) IncrementDenialCount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, found := r.cases[id]; found {
		c.DenialCount++
	}
	return nil
}

func (r *fakeCaseRepo) ClearAnalysisPayloads(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, found := r.cases[id]
	if !found {
		return gorm.ErrRecordNotFound
	}
	c.PayerStates = nil
	c.CoverageAssessments = nil
	c.DocumentationGaps = nil
	c.AvailableStrategies = nil
	c.SelectedStrategyId = nil
	return nil
}

type fakeDecisionRepo struct {
	mu        sync.Mutex
	decisions []*entity.HumanDecision
	createErr error
}

func (r *fakeDecisionRepo) Create(ctx context.Context, d *entity.HumanDecision) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.decisions = append(r.decisions, &cp)
	return nil
}

func (r *fakeDecisionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HumanDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.HumanDecision(nil), r.decisions...), nil
}

type fakeCohortRepo struct {
	mu      sync.Mutex
	vectors []*entity.CohortVector
	nearest []*entity.CohortNeighbour
}

func (r *fakeCohortRepo) Create(ctx context.Context, v *entity.CohortVector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.vectors = append(r.vectors, &cp)
	return nil
}

func (r *fakeCohortRepo) DeleteByCaseId(ctx context.Context, caseId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.vectors[:0]
	for _, v := range r.vectors {
		if v.CaseId == nil || *v.CaseId != caseId {
			kept = append(kept, v)
		}
	}
	r.vectors = kept
	return nil
}

func (r *fakeCohortRepo) FindNearest(ctx context.Context, payerId string, probe []float32, k int) ([]*entity.CohortNeighbour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.nearest) > k {
		return r.nearest[:k], nil
	}
	return r.nearest, nil
}

type fakeAuditRepo struct {
	mu     sync.Mutex
	events []*entity.AuditEvent
}

func (r *fakeAuditRepo) Create(ctx context.Context, e *entity.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *fakeAuditRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var caseID *uuid.UUID
	for _, s := range specs {
		if forCase, ok := s.(specification.ForCase); ok {
			id := forCase.CaseID
			caseID = &id
		}
	}
	var out []*entity.AuditEvent
	for _, e := range r.events {
		if caseID != nil && e.CaseId != *caseID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.events)), nil
}

type fakeUow struct {
	cases     *fakeCaseRepo
	decisions *fakeDecisionRepo
	cohort    *fakeCohortRepo
	audits    *fakeAuditRepo

	begun      bool
	committed  bool
	rolledBack bool
}

func (u *fakeUow) Begin(ctx context.Context) error { u.begun = true; return nil }

func (u *fakeUow) Commit() error { u.committed = true; return nil }
func (u *fakeUow) Rollback() error {
	if !u.committed {
		u.rolledBack = true
	}
	return nil
}

func (u *fakeUow) UserRepository() contract.UserRepository { return nil }

func (u *fakeUow) CaseRepository() contract.CaseRepository { return u.cases }

func (u *fakeUow) DecisionRepository() contract.DecisionRepository { return u.decisions }

func (u *fakeUow) AuditEventRepository() contract.AuditEventRepository { return u.audits }

func (u *fakeUow) CohortVectorRepository() contract.CohortVectorRepository { return u.cohort }

type fakeUowFactory struct {
	cases     *fakeCaseRepo
	decisions *fakeDecisionRepo
	cohort    *fakeCohortRepo
	audits    *fakeAuditRepo
}

func newFakeUowFactory() *fakeUowFactory {
	return &fakeUowFactory{
		cases:     newFakeCaseRepo(),
		decisions: &fakeDecisionRepo{},
		cohort:    &fakeCohortRepo{},
		audits:    &fakeAuditRepo{},
	}
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{cases: f.cases, decisions: f.decisions, cohort: f.cohort, audits: f.audits}
}

type fakeBusPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *fakeBusPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakeBusPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

type fakeMailer struct {
	mu                sync.Mutex
	decisionNotices   []string
	automationNotices []string
}

func (m *fakeMailer) SendDecisionRecorded(toEmail, caseID, action, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisionNotices = append(m.decisionNotices, toEmail)
	return nil
}

func (m *fakeMailer) SendAutomationFailed(toEmail, caseID, phase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.automationNotices = append(m.automationNotices, toEmail)
	return nil
}

func (m *fakeMailer) decisionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.decisionNotices)
}

type fakeCohortService struct {
	mu      sync.Mutex
	indexed []uuid.UUID
}

func (c *fakeCohortService) SimilarOutcomes(ctx context.Context, caseID uuid.UUID, k int) ([]dto.CohortNeighbourResponse, error) {
	return nil, nil
}

func (c *fakeCohortService) IndexCase(ctx context.Context, caseID uuid.UUID, outcome string, decisionDays int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexed = append(c.indexed, caseID)
	return nil
}

func (c *fakeCohortService) indexedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.indexed)
}

type fakeLogger struct{}

func (fakeLogger) Debug(module, message string, details map[string]interface{}) {}

func (fakeLogger) Info(module, message string, details map[string]interface{}) {}

func (fakeLogger) Warn(module, message string, details map[string]interface{}) {}

func (fakeLogger) Error(module, message string, details map[string]interface{}) {}

func (fakeLogger) Sync() error { return nil }

func (fakeLogger) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	return nil, nil
}

func (fakeLogger) GetLogById(id string) (*logger.LogEntry, error) { return nil, nil }
