package mapper

import (
	"encoding/json"

	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/model"

	"gorm.io/datatypes"
)

type AuditEventMapper struct{}

func NewAuditEventMapper() *AuditEventMapper {
	return &AuditEventMapper{}
}

func (m *AuditEventMapper) ToEntity(e *model.AuditEvent) *entity.AuditEvent {
	if e == nil {
		return nil
	}
	return &entity.AuditEvent{
		Id:         e.Id,
		CaseId:     e.CaseId,
		Stage:      e.Stage,
		EventType:  e.EventType,
		Actor:      e.Actor,
		Detail:     json.RawMessage(e.Detail),
		OccurredAt: e.OccurredAt,
		CreatedAt:  e.CreatedAt,
	}
}

func (m *AuditEventMapper) ToModel(e *entity.AuditEvent) *model.AuditEvent {
	if e == nil {
		return nil
	}
	return &model.AuditEvent{
		Id:         e.Id,
		CaseId:     e.CaseId,
		Stage:      e.Stage,
		EventType:  e.EventType,
		Actor:      e.Actor,
		Detail:     datatypes.JSON(e.Detail),
		OccurredAt: e.OccurredAt,
		CreatedAt:  e.CreatedAt,
	}
}

func (m *AuditEventMapper) ToEntities(events []*model.AuditEvent) []*entity.AuditEvent {
	entities := make([]*entity.AuditEvent, len(events))
	for i, e := range events {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
