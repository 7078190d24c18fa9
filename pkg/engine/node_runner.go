package engine

import (
	"context"
	"errors"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/rs/zerolog"
)

// nodeRunner executes a single node against the outputs gathered so far.
// Both the batch executor and the debug session controller drive it, one
// node at a time.
type nodeRunner struct {
	selector domain.NodeSelector
	logger   zerolog.Logger
}

func newNodeRunner(selector domain.NodeSelector, logger zerolog.Logger) *nodeRunner {
	return &nodeRunner{
		selector: selector,
		logger:   logger,
	}
}

type runNodeParams struct {
	Workflow        *domain.Workflow
	Node            domain.Node
	Plan            *ExecutionPlan
	OutputsByNodeID map[string][]domain.Item
	TriggerItems    []domain.Item
}

type runNodeResult struct {
	Input  []domain.Item
	Output []domain.Item
}

// assembleInput builds the node's input from its predecessors' outputs, or
// from the trigger items for entry nodes. Items are cloned as they cross
// each edge and connection-level data mappings are applied.
func (r *nodeRunner) assembleInput(p runNodeParams) domain.NodeInput {
	sources := []domain.SourceItems{}
	items := []domain.Item{}

	inbound := p.Plan.InboundConnections(p.Node.ID)

	if len(inbound) == 0 {
		cloned := domain.CloneItems(p.TriggerItems)
		items = cloned
		sources = append(sources, domain.SourceItems{SourceNodeID: "", Items: cloned})
	} else {
		for _, conn := range inbound {
			mapped := conn.ApplyDataMapping(p.OutputsByNodeID[conn.SourceNodeID])
			sources = append(sources, domain.SourceItems{SourceNodeID: conn.SourceNodeID, Items: mapped})
			items = append(items, mapped...)
		}
	}

	outputsByName := map[string][]domain.Item{}
	for nodeID, outputs := range p.OutputsByNodeID {
		if node, ok := p.Workflow.GetNodeByID(nodeID); ok {
			outputsByName[node.Name] = outputs
		}
	}

	return domain.NodeInput{
		NodeID:            p.Node.ID,
		Node:              p.Node,
		Items:             items,
		ItemsBySource:     sources,
		OutputsByNodeName: outputsByName,
		Params: domain.NodeParams{
			Action:   p.Node.Action,
			Settings: p.Node.Settings,
		},
		Workflow: p.Workflow,
	}
}

func (r *nodeRunner) runNode(ctx context.Context, p runNodeParams) (runNodeResult, error) {
	input := r.assembleInput(p)

	output, err := r.executeNode(ctx, p.Node, input)
	if err != nil {
		var nodeErr *domain.NodeExecutionError
		if !errors.As(err, &nodeErr) {
			err = domain.NewNodeExecutionError(p.Node.ID, p.Node.Name, err)
		}

		if !p.Node.ContinueOnFail {
			return runNodeResult{Input: input.Items}, err
		}

		r.logger.Warn().Err(err).Str("node_id", p.Node.ID).Msg("Node failed, continuing with error item")

		return runNodeResult{
			Input:  input.Items,
			Output: []domain.Item{{"error_message": err.Error()}},
		}, nil
	}

	return runNodeResult{
		Input:  input.Items,
		Output: output.Items,
	}, nil
}

func (r *nodeRunner) executeNode(ctx context.Context, node domain.Node, input domain.NodeInput) (domain.NodeOutput, error) {
	if err := r.checkRequiredSettings(node); err != nil {
		return domain.NodeOutput{}, err
	}

	creator, err := r.selector.SelectCreator(ctx, domain.SelectNodeParams{
		NodeType: node.Type,
	})
	if err != nil {
		return domain.NodeOutput{}, err
	}

	workspaceID := ""
	if scope, ok := domain.ExecutionScopeFromContext(ctx); ok {
		workspaceID = scope.WorkspaceID
	}

	executor, err := creator.CreateNode(ctx, domain.CreateNodeParams{
		WorkspaceID:  workspaceID,
		CredentialID: node.CredentialID(),
	})
	if err != nil {
		return domain.NodeOutput{}, err
	}

	return executor.Execute(ctx, input)
}

// checkRequiredSettings rejects a node whose settings omit a parameter its
// descriptor declares required for the chosen action, before any binding or
// execution happens. Node types registered without a descriptor skip the
// check.
func (r *nodeRunner) checkRequiredSettings(node domain.Node) error {
	descriptor, ok := r.selector.Descriptor(node.Type)
	if !ok {
		return nil
	}

	for _, key := range descriptor.RequiredKeys(node.Action) {
		if _, present := node.Settings[key]; !present {
			return domain.NewParameterResolutionError(node.ID, key)
		}
	}

	return nil
}
