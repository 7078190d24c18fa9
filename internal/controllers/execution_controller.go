package controllers

import (
	"github.com/conveyorhq/conveyor/pkg/domain"
	"github.com/conveyorhq/conveyor/pkg/engine"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ExecutionController handles batch workflow executions.
type ExecutionController struct {
	executorService *engine.ExecutorService
	selector        domain.NodeSelector
}

type ExecutionControllerDependencies struct {
	ExecutorService *engine.ExecutorService
	Selector        domain.NodeSelector
}

func NewExecutionController(deps ExecutionControllerDependencies) *ExecutionController {
	return &ExecutionController{
		executorService: deps.ExecutorService,
		selector:        deps.Selector,
	}
}

type StartExecutionRequest struct {
	WorkflowID   string        `json:"workflow_id"`
	TriggerItems []domain.Item `json:"trigger_items"`
}

type ExecutionResponse struct {
	ExecutionID     string                   `json:"execution_id"`
	OutputItems     []domain.Item            `json:"output_items"`
	OutputsByNodeID map[string][]domain.Item `json:"outputs_by_node_id"`
}

func (c *ExecutionController) StartExecution(ctx *fiber.Ctx) error {
	var req StartExecutionRequest

	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	log.Info().Msgf("Starting execution for workflow %s", req.WorkflowID)

	result, err := c.executorService.ExecuteWorkflow(ctx.UserContext(), engine.ExecuteWorkflowParams{
		WorkspaceID:  ctx.Params("workspaceID"),
		WorkflowID:   req.WorkflowID,
		TriggerItems: req.TriggerItems,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(ExecutionResponse{
		ExecutionID:     result.ExecutionID,
		OutputItems:     result.OutputItems,
		OutputsByNodeID: result.OutputsByNodeID,
	})
}

// ListNodeTypes returns the descriptors of every registered node type.
func (c *ExecutionController) ListNodeTypes(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"node_types": c.selector.Descriptors()})
}
