package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"imgharvest/pkg/config"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configFile string
	logLevel   string
	quiet      bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "imgharvest",
		Short: "Collect every image on a web page into a WebP archive",
		Long: `imgharvest finds every image a web page shows, converts each one to WebP and
saves them together as a single zip archive.

Images are discovered from <img> elements and their lazy-loading attributes,
srcset candidates, inline and stylesheet background images, <picture> sources
and icon links. Vector images are skipped. A candidate that cannot be fetched
or converted is dropped without stopping the run.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetOutput(cmd.OutOrStdout())
			if opts.quiet || opts.logLevel == "error" {
				ui.SetQuietMode(true)
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./.imgharvest.yaml or $XDG_CONFIG_HOME/imgharvest/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors and alerts")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "show every candidate and debug logs")

	cmd.SetVersionTemplate(`imgharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newScanCmd(opts),
		newDownloadCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

// loadConfig merges every configuration source for a command
func (o *globalOptions) loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	switch {
	case o.logLevel != "":
		flags["log-level"] = o.logLevel
	case o.verbose:
		flags["log-level"] = "debug"
	case o.quiet:
		flags["log-level"] = "error"
	}

	cfg, err := config.Load(o.configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// initLogger installs the global logger for cfg
func initLogger(cfg *config.Config) (logger.Logger, error) {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	l := logger.GetLogger()
	l.WithField("version", version).Debug("imgharvest starting")
	return l, nil
}
