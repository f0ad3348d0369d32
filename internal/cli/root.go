package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/batchrun/internal/config"
	"github.com/rshade/batchrun/internal/logging"
)

// annotationLenientConfig marks commands that must start even when the
// configuration file is invalid.
const annotationLenientConfig = "batchrun/lenient-config"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the batchrun CLI.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:     "batchrun",
		Short:   "Resilient batch execution for tabular input",
		Long:    "batchrun: process every row of a CSV file in paced, concurrent chunks with per-item retries",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "path to config file (default $BATCHRUN_CONFIG or ~/.batchrun/config.yaml)")
	cmd.AddCommand(NewRunCmd(), NewValidateCmd(), newConfigCmd(), newCacheCmd(), NewVersionCmd(ver))

	return cmd
}

const rootCmdExample = `  # Process a CSV file locally (dry run, records are echoed back)
  batchrun run --input users.csv

  # Post every row to an HTTP endpoint, 20 at a time, with up to 3 retries
  batchrun run --input users.csv --endpoint https://api.example.com/users --chunk-size 20 --max-retries 3

  # Check required columns without processing anything
  batchrun validate --input users.csv --required email,name

  # Write results as NDJSON and fail the build on any failed row
  batchrun run --input users.csv --output ndjson --fail-on-error

  # Initialize configuration
  batchrun config init`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Configuration management commands",
		Annotations: map[string]string{annotationLenientConfig: "true"},
	}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigShowCmd(), NewConfigValidateCmd())
	return cmd
}

// loadConfig resolves .env files, the config file and BATCHRUN_* overrides
// into the global configuration.
func loadConfig(cmd *cobra.Command) error {
	envFiles := []string{".env"}
	if p, err := config.EnvFilePath(); err == nil {
		envFiles = append(envFiles, p)
	}
	for _, p := range envFiles {
		if err := config.LoadEnvFile(p); err != nil {
			cmd.PrintErrf("Warning: %v\n", err)
		}
	}

	path, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		if !isLenient(cmd) {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cmd.PrintErrf("Warning: ignoring configuration: %v\n", err)
		cfg = config.Default()
	}
	config.SetGlobalConfig(cfg)
	return nil
}

// resolveConfigPath returns the --config flag, or the default config file
// when it exists, or "" for built-in defaults.
func resolveConfigPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	p, err := config.ConfigFilePath()
	if err != nil {
		return "", nil //nolint:nilerr // No home directory means no config file.
	}
	if _, statErr := os.Stat(p); statErr != nil {
		if os.Getenv(config.EnvConfig) != "" {
			return "", fmt.Errorf("config file %s: %w", p, statErr)
		}
		return "", nil
	}
	return p, nil
}

func isLenient(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationLenientConfig] == "true" {
			return true
		}
	}
	return false
}
