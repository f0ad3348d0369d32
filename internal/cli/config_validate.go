package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the configuration file and BATCHRUN_* environment overrides.

This includes:
- YAML syntax of every section
- Chunk size, retry and delay ranges
- Output format, log level and log format names
- Endpoint URL and metrics listen address`,
		Example: `  # Validate current configuration
  batchrun config validate

  # Validate a specific file
  batchrun config validate --config ./ci-config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigPath(cmd)
			if err != nil {
				return err
			}

			if _, err = config.Load(path); err != nil {
				if errors.Is(err, config.ErrInvalidConfig) {
					cmd.PrintErrf("Configuration is invalid:\n  %v\n", err)
				}
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			source := path
			if source == "" {
				source = "built-in defaults"
			}
			cmd.Printf("Configuration is valid (%s)\n", source)
			return nil
		},
	}
	return cmd
}
