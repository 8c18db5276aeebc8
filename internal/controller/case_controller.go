// FILE: internal/controller/case_controller.go
package controller

import (
	"prior-auth-be/internal/dto"
	"prior-auth-be/internal/pkg/serverutils"
	"prior-auth-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ICaseController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	RunStage(ctx *fiber.Ctx) error
	ApproveStage(ctx *fiber.Ctx) error
	ConfirmDecision(ctx *fiber.Ctx) error
	RetryAutomation(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	EnterStep(ctx *fiber.Ctx) error
	SetViewingStep(ctx *fiber.Ctx) error
	Position(ctx *fiber.Ctx) error
	Trace(ctx *fiber.Ctx) error
	SimilarOutcomes(ctx *fiber.Ctx) error
}

type caseController struct {
	caseService    service.ICaseService
	sessionService service.ISessionService
	cohortService  service.ICohortService
}

func NewCaseController(
	caseService service.ICaseService,
	sessionService service.ISessionService,
	cohortService service.ICohortService,
) ICaseController {
	return &caseController{
		caseService:    caseService,
		sessionService: sessionService,
		cohortService:  cohortService,
	}
}

func (c *caseController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/case/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Post(":id/stage/:stage/run", c.RunStage)
	h.Post(":id/stage/:stage/approve", c.ApproveStage)
	h.Post(":id/decision", c.ConfirmDecision)
	h.Post(":id/decision/retry", c.RetryAutomation)
	h.Post(":id/reset", c.Reset)
	h.Post(":id/step/:index/enter", c.EnterStep)
	h.Put(":id/viewing", c.SetViewingStep)
	h.Get(":id/position", c.Position)
	h.Get(":id/trace", c.Trace)
	h.Get(":id/cohort/similar", c.SimilarOutcomes)
}

func (c *caseController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateCaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.caseService.CreateCase(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Case created", res))
}

func (c *caseController) List(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.caseService.ListCases(ctx.Context(), limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cases listed", res))
}

func (c *caseController) Show(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}

	res, err := c.sessionService.Show(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Case loaded", res))
}

func (c *caseController) RunStage(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}

	result, err := c.sessionService.RunStage(ctx.Context(), id,
		ctx.Params("stage"),
		ctx.QueryBool("refresh", false),
		ctx.QueryBool("retry", false),
	)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Stage analysis complete", dto.RunStageResponse{Result: result}))
}

func (c *caseController) ApproveStage(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}

	res, err := c.sessionService.ApproveStage(ctx.Context(), id, ctx.Params("stage"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Stage approved", res))
}

func (c *caseController) ConfirmDecision(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}
	reviewerID, err := authedUser(ctx)
	if err != nil {
		return err
	}

	var req dto.ConfirmDecisionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.sessionService.ConfirmDecision(ctx.Context(), id, reviewerID, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Decision recorded", nil))
}

func (c *caseController) RetryAutomation(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}

	if err := c.sessionService.RetryAutomation(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Follow-through completed", nil))
}

func (c *caseController) Reset(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}

	res, err := c.sessionService.ResetCase(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Case reset", res))
}

func (c *caseController) EnterStep(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}
	index, err := ctx.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid step index")
	}

	res, err := c.sessionService.EnterStep(ctx.Context(), id, index)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Step entered", res))
}

func (c *caseController) SetViewingStep(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}

	var req dto.SetViewingStepRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.sessionService.SetViewingStep(ctx.Context(), id, req.StepIndex)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Viewing step updated", res))
}

func (c *caseController) Position(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}

	res, err := c.sessionService.Position(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Position", res))
}

func (c *caseController) Trace(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}

	res, err := c.sessionService.Trace(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Audit trail", res))
}

func (c *caseController) SimilarOutcomes(ctx *fiber.Ctx) error {
	id, err := caseID(ctx)
	if err != nil {
		return err
	}

	res, err := c.cohortService.SimilarOutcomes(ctx.Context(), id, ctx.QueryInt("k", 5))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Similar outcomes", res))
}

func caseID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}
	return id, nil
}

func authedUser(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := ctx.Locals("user_id").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid session")
	}
	return id, nil
}
