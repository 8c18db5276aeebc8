package serverutils

import (
	"errors"
	"testing"

	"prior-auth-be/pkg/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusForWorkflowTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"case not found", workflow.ErrCaseNotFound, fiber.StatusNotFound},
		{"invalid step", workflow.ErrInvalidStep, fiber.StatusBadRequest},
		{"operation pending", workflow.ErrOperationPending, fiber.StatusConflict},
		{"read only", workflow.ErrReadOnly, fiber.StatusConflict},
		{"terminal stage", workflow.ErrTerminalStage, fiber.StatusConflict},
		{"timed out", workflow.ErrTimedOut, fiber.StatusGatewayTimeout},
		{"wrapped not found", errors.Join(errors.New("load"), workflow.ErrCaseNotFound), fiber.StatusNotFound},
		{"stage run error", &workflow.StageRunError{Stage: workflow.StageCohortAnalysis, Err: errors.New("boom")}, fiber.StatusBadGateway},
		{"decision error", &workflow.DecisionError{Err: errors.New("db down")}, fiber.StatusBadGateway},
		{"automation error", &workflow.AutomationError{FailedStage: workflow.StageStrategyGeneration, Err: errors.New("engine")}, fiber.StatusBadGateway},
		{"fiber error passthrough", fiber.NewError(fiber.StatusUnauthorized, "nope"), fiber.StatusUnauthorized},
		{"unknown", errors.New("mystery"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := statusFor(tt.err)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type login struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required"`
	}

	assert.NoError(t, ValidateRequest(login{Email: "a@b.co", Password: "x"}))

	err := ValidateRequest(login{Email: "not-an-email"})
	assert.Error(t, err)

	var fe *fiber.Error
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
}
