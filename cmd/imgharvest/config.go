package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"imgharvest/pkg/config"
	"imgharvest/pkg/ui"
)

const exampleConfig = `# imgharvest configuration file
#
# Every option can also be set with an IMGHARVEST_ environment variable,
# for example IMGHARVEST_CONCURRENCY or IMGHARVEST_OUTPUT_DIR.

# Page loading
page:
  user_agent: ""
  # Timeout for the page and each stylesheet
  timeout: 30s
  # Fetch linked stylesheets to find background images
  fetch_stylesheets: true
  max_stylesheets: 20
  # Largest page accepted, in bytes
  max_body_size: 10485760

# Candidate downloads
download:
  # Candidates processed in parallel. Archive order never changes.
  # Range: 1-16
  concurrency: 1
  # Timeout for each image request
  timeout: 30s
  # Reject cross-origin responses without a matching Access-Control-Allow-Origin
  enforce_cors: true
  # Largest image accepted, in bytes. 0 means no limit.
  max_file_size: 0

# Where the archive is saved
output:
  directory: "."
  # Ask for the location before saving
  save_as: false

# Image request rate limiting. 0 disables it.
rate_limit:
  requests_per_minute: 0
  # token_bucket allows short bursts, sliding_window never exceeds the rate in any minute
  strategy: token_bucket
  burst: 4

# Retries of the page request. Images are never retried.
retry:
  max_attempts: 3
  initial_backoff: 1s
  max_backoff: 30s
  multiplier: 2.0

# Desktop notifications
notifications:
  enabled: false
  on_complete: true
  on_error: true

# Logging
logging:
  # debug, info, warn, error, disabled
  level: "info"
  # Also write JSON logs to this file
  file: ""
`

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage imgharvest configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (IMGHARVEST_*)
  - .env files
  - Configuration file
  - Default values`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create an example configuration file",
			Long: `Create an example configuration file with all available options.

The file is written to .imgharvest.yaml in the current directory unless a
different path is given with --config.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigInit(opts)
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate a configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigValidate(cmd, opts)
			},
		},
	)

	return cmd
}

func runConfigInit(opts *globalOptions) error {
	configPath := opts.configFile
	if configPath == "" {
		configPath = "." + config.AppName + ".yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	ui.PrintInfo("Next", "imgharvest config validate --config "+configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, opts *globalOptions) error {
	cfg, err := opts.loadConfig(nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))

	source := opts.configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found)"
	}
	fmt.Fprintf(out, "\n# configuration file: %s\n", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, opts *globalOptions) error {
	path := opts.configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return errors.New("no configuration file found, specify one with --config")
	}

	ui.PrintInfo("Validating configuration", path)

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration has errors:\n%w", err)
	}

	var warnings []string
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if info, err := os.Stat(cfg.Output.Directory); err == nil && !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("output path %s is not a directory", cfg.Output.Directory))
	}
	if !cfg.Download.EnforceCORS {
		warnings = append(warnings, "CORS enforcement is off, conversions may differ from a browser")
	}
	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Output directory", cfg.Output.Directory)
	ui.PrintInfo("Concurrency", fmt.Sprint(cfg.Download.Concurrency))
	ui.PrintInfo("Rate limit", fmt.Sprintf("%d requests/minute", cfg.RateLimit.RequestsPerMinute))
	ui.PrintInfo("Page retries", fmt.Sprint(cfg.Retry.MaxAttempts))
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
