package contract

import (
	"context"

	"prior-auth-be/internal/entity"
	"prior-auth-be/internal/repository/specification"
)

type AuditEventRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AuditEvent, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
