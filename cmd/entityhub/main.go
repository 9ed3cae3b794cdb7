package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teranos/entityhub/am"
	"github.com/teranos/entityhub/cmd/entityhub/commands"
	"github.com/teranos/entityhub/logger"
)

var rootCmd = &cobra.Command{
	Use:   "entityhub",
	Short: "entityhub - schema-less entity store",
	Long: `entityhub - schema-less entity store over a SQLite triple graph.

Entities are sets of named, multi-valued, typed fields stored in yards.
Every yard keeps its entities in one named graph of the database.

Available commands:
  am      - Manage entityhub configuration ("I am")
  yard    - Store, fetch, find and remove entities
  version - Show version information

Examples:
  entityhub am show                          # Show current configuration
  entityhub yard put -f people.yaml          # Store entities from YAML
  entityhub yard get urn:ada                 # Fetch one entity
  entityhub yard find --text urn:name=ada    # Find entities by text
  entityhub yard stats                       # Show yard statistics`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLog, _ := cmd.Flags().GetBool("log-json")
		if !jsonLog {
			if cfg, err := am.Load(); err == nil {
				jsonLog = cfg.Log.JSON
			}
		}
		if err := logger.Initialize(jsonLog, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = logger.WithRequestID(ctx, uuid.NewString())
		ctx = logger.WithComponent(ctx, cmd.CommandPath())
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.YardCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
