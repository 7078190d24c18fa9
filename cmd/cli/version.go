package cli

import (
	"fmt"

	"github.com/conveyorhq/conveyor/internal/version"

	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()

			fmt.Fprintf(cmd.OutOrStdout(), "conveyor %s (%s, %s)\n", info.Version, info.GoVersion, info.Platform)

			if info.GitCommit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", info.GitCommit)
			}

			return nil
		},
	}
}
