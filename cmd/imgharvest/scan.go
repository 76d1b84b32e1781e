package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imgharvest/pkg/fetcher"
	"imgharvest/pkg/orchestrator"
	"imgharvest/pkg/ui"
)

type scanOutput struct {
	Page        string   `json:"page"`
	Count       int      `json:"count"`
	Formats     []string `json:"formats"`
	Images      []string `json:"images"`
	Stylesheets int      `json:"stylesheets"`
}

func newScanCmd(opts *globalOptions) *cobra.Command {
	var (
		pageOpts pageOptions
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "List the images a page shows without downloading them",
		Example: `  # List every image on a page
  imgharvest scan https://example.com/gallery

  # Machine-readable output
  imgharvest scan https://example.com/gallery --json

  # Scan a saved page
  imgharvest scan --html saved.html --base-url https://example.com/gallery`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := pageOpts.target(args)
			if err != nil {
				return err
			}

			if asJSON {
				ui.SetQuietMode(true)
			}
			cfg, err := opts.loadConfig(nil)
			if err != nil {
				return err
			}
			log, err := initLogger(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client := fetcher.NewFromConfig(cfg, log)
			pg, err := pageOpts.load(ctx, cfg, client, log, target)
			if err != nil {
				return err
			}

			agent := pg.Serve(ctx, log)
			defer agent.Stop()

			o := orchestrator.New(agent.Client(), nil, nil, nil, orchestrator.Options{PageURL: pg.URL, Logger: log})
			res, err := o.Scan(ctx)
			if err != nil {
				return err
			}

			out := scanOutput{
				Page:        pg.URL,
				Count:       len(res.Images),
				Formats:     res.Formats,
				Images:      res.Images,
				Stylesheets: pg.Stylesheets,
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printScan(out)
			return nil
		},
	}

	pageOpts.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func printScan(out scanOutput) {
	ui.PrintInfo("Page", out.Page)
	if out.Count == 0 {
		ui.Alert(orchestrator.AlertNoImages)
		return
	}
	ui.PrintInfo("Images", fmt.Sprint(out.Count))
	ui.PrintInfo("Formats", strings.Join(out.Formats, ", "))
	for i, u := range out.Images {
		ui.PrintHighlight(fmt.Sprintf("%4d  %s", i+1, u))
	}
}
