// FILE: internal/pkg/serverutils/error_handler.go
package serverutils

import (
	"errors"

	"prior-auth-be/pkg/workflow"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors bubbling out of handlers into the
// uniform envelope, mapping the workflow error taxonomy onto HTTP statuses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := statusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func statusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	switch {
	case errors.Is(err, workflow.ErrCaseNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, workflow.ErrInvalidStep):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, workflow.ErrOperationPending),
		errors.Is(err, workflow.ErrReadOnly),
		errors.Is(err, workflow.ErrTerminalStage):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, workflow.ErrTimedOut):
		return fiber.StatusGatewayTimeout, err.Error()
	}

	var stageErr *workflow.StageRunError
	if errors.As(err, &stageErr) {
		return fiber.StatusBadGateway, stageErr.Error()
	}
	var decisionErr *workflow.DecisionError
	if errors.As(err, &decisionErr) {
		return fiber.StatusBadGateway, decisionErr.Error()
	}
	var autoErr *workflow.AutomationError
	if errors.As(err, &autoErr) {
		// The decision was recorded; only the follow-through stalled.
		return fiber.StatusBadGateway, autoErr.Error()
	}

	return fiber.StatusInternalServerError, err.Error()
}
