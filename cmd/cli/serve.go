package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/conveyorhq/conveyor/internal/config"
	"github.com/conveyorhq/conveyor/internal/controllers"
	"github.com/conveyorhq/conveyor/internal/initialization"
	"github.com/conveyorhq/conveyor/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the engine HTTP server",
		Long:  `Start the engine service exposing workflow execution and the interactive debugger over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	return cmd
}

func runServe(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setupLogging(cmd)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	container, err := initialization.NewEngineContainer(ctx, cfg)
	if err != nil {
		return err
	}

	debugController := controllers.NewDebugController(controllers.DebugControllerDependencies{
		DebugController: container.DebugController,
	})

	executionController := controllers.NewExecutionController(controllers.ExecutionControllerDependencies{
		ExecutorService: container.ExecutorService,
		Selector:        container.Selector,
	})

	app := server.NewHTTPServer(ctx, server.HTTPServerDependencies{
		DebugController:     debugController,
		ExecutionController: executionController,
	})

	go func() {
		<-ctx.Done()

		log.Info().Msg("Shutting down HTTP server")

		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}()

	log.Info().Msgf("Starting engine service on %s", cfg.HTTPAddress)

	if err := app.Listen(cfg.HTTPAddress); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")

		return err
	}

	if err := container.ConnectionManager.Release(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to release connection handles")
	}

	log.Info().Msg("Engine service stopped")

	return nil
}
