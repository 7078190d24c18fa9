package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/conveyorhq/conveyor/pkg/domain"
)

type workflowFile struct {
	Workflows []domain.Workflow `json:"workflows"`
}

// LoadWorkflowsFromFile preloads workflow definitions from a JSON file into
// the store. The file holds either a {"workflows": [...]} object or a bare
// array of workflows.
func LoadWorkflowsFromFile(ctx context.Context, workflowStore *MemoryWorkflowStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	workflows, err := decodeWorkflows(data)
	if err != nil {
		return 0, err
	}

	for _, workflow := range workflows {
		if err := workflow.Validate(); err != nil {
			return 0, fmt.Errorf("invalid workflow %q: %w", workflow.ID, err)
		}

		if err := workflowStore.PutWorkflow(ctx, workflow); err != nil {
			return 0, err
		}
	}

	return len(workflows), nil
}

// ReadWorkflowFile decodes a single workflow definition from a JSON file.
func ReadWorkflowFile(path string) (domain.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Workflow{}, err
	}

	var workflow domain.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return domain.Workflow{}, fmt.Errorf("failed to parse workflow file %s: %w", path, err)
	}

	return workflow, nil
}

func decodeWorkflows(data []byte) ([]domain.Workflow, error) {
	var file workflowFile
	if err := json.Unmarshal(data, &file); err == nil && len(file.Workflows) > 0 {
		return file.Workflows, nil
	}

	var workflows []domain.Workflow
	if err := json.Unmarshal(data, &workflows); err != nil {
		return nil, fmt.Errorf("failed to parse workflows: %w", err)
	}

	return workflows, nil
}
