package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/conveyorhq/conveyor/internal/config"
	"github.com/conveyorhq/conveyor/internal/initialization"
	"github.com/conveyorhq/conveyor/internal/store"
	"github.com/conveyorhq/conveyor/pkg/domain"
	"github.com/conveyorhq/conveyor/pkg/engine"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func NewDebugCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug <workflow-file>",
		Short: "Step through a workflow interactively",
		Long: `Load a workflow definition and step through it node by node. Commands:
start, step, continue, break <node-id>, unbreak <node-id>, stack, session, quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(cmd, args[0])
		},
	}

	cmd.Flags().StringSlice("break", nil, "Node ids to break on")
	cmd.Flags().String("items", "", "Trigger items as a JSON array")
	cmd.Flags().String("items-file", "", "Path to a JSON file with trigger items")

	return cmd
}

func runDebug(cmd *cobra.Command, workflowPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setupLogging(cmd)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

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

	breakpoints, _ := cmd.Flags().GetStringSlice("break")

	session, err := container.DebugController.CreateSession(ctx, engine.CreateSessionParams{
		WorkspaceID:  workflow.WorkspaceID,
		WorkflowID:   workflow.ID,
		Breakpoints:  breakpoints,
		TriggerItems: triggerItems,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Debugging workflow %s (session %s)\n", workflow.ID, session.ID)
	fmt.Fprintln(out, "Type 'start' to begin, 'help' for commands.")

	return debugLoop(ctx, out, cmd.InOrStdin(), container.DebugController, session.ID)
}

func debugLoop(ctx context.Context, out io.Writer, in io.Reader, controller *engine.DebugController, sessionID string) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "(conveyor) ")

		if !scanner.Scan() {
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		command, args := fields[0], fields[1:]

		switch command {
		case "start":
			result, err := controller.Start(ctx, sessionID)
			printStepOutcome(out, result, err)
		case "step", "s":
			result, err := controller.StepOver(ctx, sessionID)
			printStepOutcome(out, result, err)
		case "continue", "c":
			result, err := controller.Continue(ctx, sessionID)
			printStepOutcome(out, result, err)
		case "break", "unbreak":
			if len(args) != 1 {
				fmt.Fprintf(out, "usage: %s <node-id>\n", command)
				continue
			}

			_, err := controller.ToggleBreakpoint(ctx, engine.ToggleBreakpointParams{
				SessionID: sessionID,
				NodeID:    args[0],
				Enabled:   command == "break",
			})
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		case "stack":
			session, err := controller.GetSession(ctx, sessionID)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}

			for i, frame := range session.CallStack {
				line := fmt.Sprintf("#%d %s (%s) items=%d", i, frame.NodeID, frame.NodeType, len(frame.Output))
				if frame.Error != "" {
					line += " error=" + frame.Error
				}

				fmt.Fprintln(out, line)
			}
		case "session":
			session, err := controller.GetSession(ctx, sessionID)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}

			data, err := json.MarshalIndent(session, "", "  ")
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}

			fmt.Fprintln(out, string(data))
		case "help":
			fmt.Fprintln(out, "commands: start, step, continue, break <node-id>, unbreak <node-id>, stack, session, quit")
		case "quit", "q", "exit":
			if _, err := controller.Terminate(ctx, sessionID); err != nil {
				var stateErr *domain.SessionStateError
				if !errors.As(err, &stateErr) {
					fmt.Fprintf(out, "terminate: %v\n", err)
				}
			}

			return nil
		default:
			fmt.Fprintf(out, "unknown command %q, try 'help'\n", command)
		}
	}
}

func printStepOutcome(out io.Writer, result engine.DebugStepResult, err error) {
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)

		return
	}

	session := result.Session

	switch {
	case result.IsPaused:
		fmt.Fprintf(out, "paused before node %s (%d executed)\n", session.CurrentNodeID, session.ExecutedCount())
	default:
		fmt.Fprintf(out, "session %s (%d nodes executed)\n", session.Status, session.ExecutedCount())
	}

	if len(session.CallStack) == 0 {
		return
	}

	frame := session.CallStack[len(session.CallStack)-1]
	if frame.Error != "" {
		fmt.Fprintf(out, "  last node %s failed: %s\n", frame.NodeID, frame.Error)
		if frame.SourceLocation != "" {
			fmt.Fprintf(out, "  at %s\n", frame.SourceLocation)
		}
	}
}
