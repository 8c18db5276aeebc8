package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/repository/specification"
	"prior-auth-be/internal/repository/unitofwork"
	"prior-auth-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// auditMessage is the wire shape carried over the in-process audit bus.
type auditMessage struct {
	CaseId     uuid.UUID `json:"case_id"`
	Stage      string    `json:"stage"`
	EventType  string    `json:"event_type"`
	Actor      string    `json:"actor"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

func encodeAuditMessage(caseID uuid.UUID, stage, eventType, actor, detail string) ([]byte, error) {
	return json.Marshal(auditMessage{
		CaseId:     caseID,
		Stage:      stage,
		EventType:  eventType,
		Actor:      actor,
		Detail:     detail,
		OccurredAt: time.Now(),
	})
}

// IAuditService persists the audit trail consumed off the bus and serves it
// back as an ordered trace.
type IAuditService interface {
	Consume(ctx context.Context) error
	GetTrace(ctx context.Context, caseID uuid.UUID) ([]workflow.TraceEvent, error)
}

type auditService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
}

func NewAuditService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
) IAuditService {
	return &auditService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
	}
}

func (as *auditService) Consume(ctx context.Context) error {
	messages, err := as.pubSub.Subscribe(ctx, as.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			as.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (as *auditService) processMessage(ctx context.Context, msg *message.Message) {
	var payload auditMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal audit message: %v", err)
		msg.Ack() // malformed, retrying will not help
		return
	}

	detail, err := json.Marshal(map[string]string{"message": payload.Detail})
	if err != nil {
		log.Printf("[ERROR] Failed to encode audit detail: %v", err)
		msg.Ack()
		return
	}

	uow := as.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin audit transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	event := &entity.AuditEvent{
		Id:         uuid.New(),
		CaseId:     payload.CaseId,
		Stage:      payload.Stage,
		EventType:  payload.EventType,
		Actor:      payload.Actor,
		Detail:     detail,
		OccurredAt: payload.OccurredAt,
	}
	if err := uow.AuditEventRepository().Create(ctx, event); err != nil {
		log.Printf("[ERROR] Failed to persist audit event: %v", err)
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit audit event: %v", err)
		msg.Nack()
		return
	}

	msg.Ack()
}

// GetTrace returns the full trail for a case in occurrence order. It is only
// read when a user opens the audit panel.
func (as *auditService) GetTrace(ctx context.Context, caseID uuid.UUID) ([]workflow.TraceEvent, error) {
	uow := as.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.AuditEventRepository().FindAll(ctx,
		specification.ForCase{CaseID: caseID},
		specification.OrderByOccurrence{},
	)
	if err != nil {
		return nil, err
	}

	trace := make([]workflow.TraceEvent, len(rows))
	for i, row := range rows {
		var wrapped struct {
			Message string `json:"message"`
		}
		detail := string(row.Detail)
		if err := json.Unmarshal(row.Detail, &wrapped); err == nil && wrapped.Message != "" {
			detail = wrapped.Message
		}
		trace[i] = workflow.TraceEvent{
			ID:         row.Id,
			CaseID:     row.CaseId,
			EventType:  row.EventType,
			Detail:     detail,
			OccurredAt: row.OccurredAt,
		}
	}
	return trace, nil
}
