package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbmap/pkg/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the rbmap configuration",
	}

	cmd.AddCommand(newConfigDumpCommand())
	cmd.AddCommand(newConfigSchemaCommand())

	return cmd
}

func newConfigDumpCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging defaults, the config file and
RBMAP_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			return config.Dump(cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default: rbmap.yaml search)")

	return cmd
}

func newConfigSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(config.Schema())
			if err != nil {
				return fmt.Errorf("write schema: %w", err)
			}

			return nil
		},
	}
}
