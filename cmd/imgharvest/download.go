package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"imgharvest/pkg/config"
	"imgharvest/pkg/convert"
	"imgharvest/pkg/fetcher"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/orchestrator"
	"imgharvest/pkg/storage"
	"imgharvest/pkg/ui"
	"imgharvest/pkg/ui/tui"
)

type downloadOptions struct {
	page        pageOptions
	output      string
	saveAs      bool
	concurrency int
	rateLimit   int
	noCORSCheck bool
	useTUI      bool
	notify      bool
}

// flagMap returns only the flags the user set, so config files and the
// environment keep their values otherwise
func (d *downloadOptions) flagMap(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if d.output != "" {
		flags["output"] = d.output
	}
	if cmd.Flags().Changed("save-as") {
		flags["save-as"] = d.saveAs
	}
	if cmd.Flags().Changed("concurrency") {
		flags["concurrency"] = d.concurrency
	}
	if cmd.Flags().Changed("rate-limit") {
		flags["rate-limit"] = d.rateLimit
	}
	if d.noCORSCheck {
		flags["enforce-cors"] = false
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = d.notify
	}
	return flags
}

func newDownloadCmd(opts *globalOptions) *cobra.Command {
	d := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download [url]",
		Short: "Convert every image on a page to WebP and save them as one zip archive",
		Long: `Download every image a page shows, convert each one to WebP and save them as
<host>_images_<timestamp>.zip in the output directory.

Each candidate is first fetched as a cross-origin request carrying the page's
Origin. When that fails it is loaded again as a plain image. Candidates that
fail both ways are dropped; the run still produces an archive of the rest.`,
		Example: `  # Save the archive in the current directory
  imgharvest download https://example.com/gallery

  # Choose where to save it
  imgharvest download https://example.com/gallery --save-as

  # Four parallel downloads, at most 120 image requests per minute
  imgharvest download https://example.com/gallery --concurrency 4 --rate-limit 120

  # Full-screen progress
  imgharvest download https://example.com/gallery --tui`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, opts, d, args)
		},
	}

	d.register(cmd)
	return cmd
}

func (d *downloadOptions) register(cmd *cobra.Command) {
	d.page.register(cmd)
	cmd.Flags().StringVarP(&d.output, "output", "o", "", "directory the archive is saved in")
	cmd.Flags().BoolVar(&d.saveAs, "save-as", false, "ask where to save the archive")
	cmd.Flags().IntVar(&d.concurrency, "concurrency", 1, "number of candidates processed in parallel")
	cmd.Flags().IntVar(&d.rateLimit, "rate-limit", 0, "maximum image requests per minute (0 disables)")
	cmd.Flags().BoolVar(&d.noCORSCheck, "no-cors-check", false, "accept cross-origin responses without Access-Control-Allow-Origin")
	cmd.Flags().BoolVar(&d.useTUI, "tui", false, "use the interactive terminal UI")
	cmd.Flags().BoolVar(&d.notify, "notifications", false, "send a desktop notification when the run ends")
}

func runDownload(cmd *cobra.Command, opts *globalOptions, d *downloadOptions, args []string) error {
	target, err := d.page.target(args)
	if err != nil {
		return err
	}

	cfg, err := opts.loadConfig(d.flagMap(cmd))
	if err != nil {
		return err
	}
	if d.useTUI {
		if cfg.Output.SaveAs {
			return errors.New("--save-as cannot be combined with --tui")
		}
		// Console logs would draw over the interface
		if cfg.Logging.File == "" {
			cfg.Logging.Level = "disabled"
		}
	} else if !opts.verbose && opts.logLevel == "" && cfg.Logging.File == "" {
		// Progress mode keeps the console to the progress line
		cfg.Logging.Level = "error"
	}
	log, err := initLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := fetcher.NewFromConfig(cfg, log)

	// A page that cannot be loaded still goes through the run so the user
	// gets the unavailable alert
	var source orchestrator.ImageSource
	pageURL := target
	pg, err := d.page.load(ctx, cfg, client, log, target)
	if err != nil {
		log.WithError(err).WithField("page", target).Error("Failed to load page")
	} else {
		agent := pg.Serve(ctx, log)
		defer agent.Stop()
		source = agent.Client()
		pageURL = pg.URL
	}

	saver, err := storage.NewSaver(cfg.Output.Directory,
		storage.WithLogger(log),
		storage.WithPrompter(storage.NewTerminalPrompter(os.Stdin, cmd.ErrOrStderr())),
	)
	if err != nil {
		return err
	}

	run := runner{
		cfg:       cfg,
		log:       log,
		source:    source,
		fetcher:   client,
		conv:      convert.New(nil, log),
		saver:     saver,
		outputDir: saver.OutputDir(),
		pageURL:   pageURL,
		verbose:   opts.verbose,
	}

	var res *orchestrator.Result
	if d.useTUI {
		res, err = run.withTUI(ctx)
	} else {
		res, err = run.plain(ctx)
	}

	ui.NewNotifier(cfg.Notifications).NotifyResult(res, err)
	return err
}

// runner drives one orchestrator run with either front end
type runner struct {
	cfg       *config.Config
	log       logger.Logger
	source    orchestrator.ImageSource
	fetcher   orchestrator.Fetcher
	conv      orchestrator.Converter
	saver     orchestrator.Saver
	outputDir string
	pageURL   string
	verbose   bool
}

func (r runner) newOrchestrator(rep orchestrator.Reporter) *orchestrator.Orchestrator {
	return orchestrator.New(r.source, r.fetcher, r.conv, r.saver, orchestrator.Options{
		PageURL:     r.pageURL,
		Concurrency: r.cfg.Download.Concurrency,
		SaveAs:      r.cfg.Output.SaveAs,
		Reporter:    rep,
		Logger:      r.log,
	})
}

func (r runner) plain(ctx context.Context) (*orchestrator.Result, error) {
	ui.PrintLogo()
	ui.PrintInfo("Page", r.pageURL)
	if !r.cfg.Output.SaveAs {
		ui.PrintInfo("Output", r.outputDir)
	}

	display := ui.NewProgressDisplay(r.pageURL, r.verbose)
	res, err := r.newOrchestrator(display).Run(ctx)
	display.Complete(res)
	return res, err
}

func (r runner) withTUI(ctx context.Context) (*orchestrator.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	terminal := tui.NewTUI(r.pageURL)
	o := r.newOrchestrator(terminal)

	var (
		res    *orchestrator.Result
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, runErr = o.Run(ctx)
		terminal.Finish(res, runErr)
	}()

	tuiErr := terminal.Start()
	// Quitting the interface cancels a run still in progress
	cancel()
	<-done

	if tuiErr != nil {
		return res, tuiErr
	}
	return res, runErr
}
