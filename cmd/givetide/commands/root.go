// Package commands defines all Cobra CLI commands for the givetide binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/givetide/givetide-go/internal/audit"
	"github.com/givetide/givetide-go/internal/config"
	"github.com/givetide/givetide-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "givetide",
		Short: "GiveTide — fundraising campaign advice grounded in real case studies",
		Long: `GiveTide is a retrieval-augmented advisor for charitable fundraising campaigns.

It indexes a corpus of real fundraising case studies, retrieves the ones most
relevant to your question, and generates practical advice grounded in what
actually worked for comparable organizations.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.givetide/config.yaml).
See 'givetide --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.givetide/config.yaml)")

	root.AddCommand(
		NewInitCmd(),
		NewAskCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
