package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/conveyorhq/conveyor/internal/config"
	"github.com/conveyorhq/conveyor/internal/initialization"
	"github.com/conveyorhq/conveyor/internal/store"
	"github.com/conveyorhq/conveyor/pkg/domain"
	"github.com/conveyorhq/conveyor/pkg/engine"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow-file>",
		Short: "Execute a workflow definition from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, args[0])
		},
	}

	cmd.Flags().String("items", "", "Trigger items as a JSON array")
	cmd.Flags().String("items-file", "", "Path to a JSON file with trigger items")

	return cmd
}

func runWorkflow(cmd *cobra.Command, workflowPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setupLogging(cmd)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Debug sessions are not used here, the run is strictly in-process.
	cfg.SessionStore = "memory"

	workflow, err := store.ReadWorkflowFile(workflowPath)
	if err != nil {
		return err
	}

	if workflow.ID == "" {
		workflow.ID = uuid.NewString()
	}

	if workflow.WorkspaceID == "" {
		workflow.WorkspaceID = cfg.WorkspaceID
	}

	triggerItems, err := readTriggerItems(cmd)
	if err != nil {
		return err
	}

	container, err := initialization.NewEngineContainer(ctx, cfg)
	if err != nil {
		return err
	}

	if err := container.WorkflowStore.PutWorkflow(ctx, workflow); err != nil {
		return err
	}

	log.Info().Msgf("Executing workflow %s", workflow.ID)

	result, err := container.ExecutorService.ExecuteWorkflow(ctx, engine.ExecuteWorkflowParams{
		WorkspaceID:  workflow.WorkspaceID,
		WorkflowID:   workflow.ID,
		TriggerItems: triggerItems,
	})
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(result.OutputItems, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(output))

	return nil
}

func readTriggerItems(cmd *cobra.Command) ([]domain.Item, error) {
	itemsJSON, _ := cmd.Flags().GetString("items")
	itemsFile, _ := cmd.Flags().GetString("items-file")

	if itemsJSON == "" && itemsFile == "" {
		return nil, nil
	}

	data := []byte(itemsJSON)

	if itemsFile != "" {
		fileData, err := os.ReadFile(itemsFile)
		if err != nil {
			return nil, err
		}

		data = fileData
	}

	var items []domain.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse trigger items: %w", err)
	}

	return items, nil
}
