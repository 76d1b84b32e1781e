package main

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"

	"github.com/spf13/cobra"

	"imgharvest/pkg/config"
	"imgharvest/pkg/fetcher"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/page"
)

// pageOptions selects where the document comes from
type pageOptions struct {
	htmlFile string
	baseURL  string
}

func (p *pageOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.htmlFile, "html", "", "read the page from a saved HTML file instead of fetching it")
	cmd.Flags().StringVar(&p.baseURL, "base-url", "", "address relative references in --html resolve against")
}

// target returns the page address for args and the flags
func (p *pageOptions) target(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if p.htmlFile == "" {
		return "", errors.New("a page URL or --html file is required")
	}
	if p.baseURL != "" {
		return p.baseURL, nil
	}
	abs, err := filepath.Abs(p.htmlFile)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// load fetches or reads the page
func (p *pageOptions) load(ctx context.Context, cfg *config.Config, client *fetcher.Client, log logger.Logger, target string) (*page.Page, error) {
	loader := page.NewLoader(client, cfg.Page, log)
	if p.htmlFile == "" {
		return loader.LoadURL(ctx, target)
	}

	base := target
	if p.baseURL != "" {
		base = p.baseURL
	}
	return loader.LoadFile(ctx, p.htmlFile, base)
}
