package controllers

import (
	"errors"

	"github.com/conveyorhq/conveyor/pkg/domain"
	"github.com/conveyorhq/conveyor/pkg/engine"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// DebugController exposes the interactive debugger over HTTP.
type DebugController struct {
	debugController *engine.DebugController
}

type DebugControllerDependencies struct {
	DebugController *engine.DebugController
}

func NewDebugController(deps DebugControllerDependencies) *DebugController {
	return &DebugController{
		debugController: deps.DebugController,
	}
}

type CreateSessionRequest struct {
	WorkflowID   string        `json:"workflow_id"`
	Breakpoints  []string      `json:"breakpoints"`
	TriggerItems []domain.Item `json:"trigger_items"`
}

type StepResponse struct {
	Session   domain.DebugSession      `json:"session"`
	IsPaused  bool                     `json:"is_paused"`
	CallStack []domain.DebugStackFrame `json:"call_stack"`
}

func (c *DebugController) CreateSession(ctx *fiber.Ctx) error {
	var req CreateSessionRequest

	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := c.debugController.CreateSession(ctx.UserContext(), engine.CreateSessionParams{
		WorkspaceID:  ctx.Params("workspaceID"),
		WorkflowID:   req.WorkflowID,
		Breakpoints:  req.Breakpoints,
		TriggerItems: req.TriggerItems,
	})
	if err != nil {
		return toHTTPError(err)
	}

	log.Info().Msgf("Created debug session %s for workflow %s", session.ID, session.WorkflowID)

	return ctx.Status(fiber.StatusCreated).JSON(session)
}

func (c *DebugController) GetSession(ctx *fiber.Ctx) error {
	session, err := c.debugController.GetSession(ctx.UserContext(), ctx.Params("sessionID"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(session)
}

func (c *DebugController) StartSession(ctx *fiber.Ctx) error {
	result, err := c.debugController.Start(ctx.UserContext(), ctx.Params("sessionID"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(toStepResponse(result))
}

func (c *DebugController) StepOver(ctx *fiber.Ctx) error {
	result, err := c.debugController.StepOver(ctx.UserContext(), ctx.Params("sessionID"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(toStepResponse(result))
}

func (c *DebugController) ContinueSession(ctx *fiber.Ctx) error {
	result, err := c.debugController.Continue(ctx.UserContext(), ctx.Params("sessionID"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(toStepResponse(result))
}

func (c *DebugController) TerminateSession(ctx *fiber.Ctx) error {
	result, err := c.debugController.Terminate(ctx.UserContext(), ctx.Params("sessionID"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(toStepResponse(result))
}

type ToggleBreakpointRequest struct {
	NodeID  string `json:"node_id"`
	Enabled bool   `json:"enabled"`
}

func (c *DebugController) ToggleSessionBreakpoint(ctx *fiber.Ctx) error {
	var req ToggleBreakpointRequest

	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := c.debugController.ToggleBreakpoint(ctx.UserContext(), engine.ToggleBreakpointParams{
		SessionID: ctx.Params("sessionID"),
		NodeID:    req.NodeID,
		Enabled:   req.Enabled,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(session)
}

func (c *DebugController) GetSessionBreakpoints(ctx *fiber.Ctx) error {
	breakpoints, err := c.debugController.GetBreakpoints(ctx.UserContext(), ctx.Params("sessionID"), "")
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(fiber.Map{"breakpoints": breakpoints})
}

// ToggleWorkflowBreakpoint edits the workflow's persisted breakpoint
// template. New sessions inherit the template at creation time.
func (c *DebugController) ToggleWorkflowBreakpoint(ctx *fiber.Ctx) error {
	var req ToggleBreakpointRequest

	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	_, err := c.debugController.ToggleBreakpoint(ctx.UserContext(), engine.ToggleBreakpointParams{
		WorkflowID: ctx.Params("workflowID"),
		NodeID:     req.NodeID,
		Enabled:    req.Enabled,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *DebugController) GetWorkflowBreakpoints(ctx *fiber.Ctx) error {
	breakpoints, err := c.debugController.GetBreakpoints(ctx.UserContext(), "", ctx.Params("workflowID"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(fiber.Map{"breakpoints": breakpoints})
}

func toStepResponse(result engine.DebugStepResult) StepResponse {
	return StepResponse{
		Session:   result.Session,
		IsPaused:  result.IsPaused,
		CallStack: result.CallStack,
	}
}

func toHTTPError(err error) error {
	var stateErr *domain.SessionStateError
	var cycleErr *domain.GraphCycleError

	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrNodeNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.As(err, &stateErr):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.As(err, &cycleErr):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg("Debug operation failed")

		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
