package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zcamper/silver-scraper/pkg/api"
	transport "github.com/zcamper/silver-scraper/pkg/http"
	"github.com/zcamper/silver-scraper/pkg/http/client"
)

const (
	EnvVariableURL = "SILVER_URL"
)

type rootOpts struct {
	URL     string
	Timeout time.Duration
	API     api.Server
}

func newRoot() *rootOpts {
	return &rootOpts{}
}

var rootLongHelp = strings.TrimSpace(`
silverctl talks to silverd, and runs one-shot scrapes.

Workflow:
  silverctl scrape --search "Silver coin" --max-items 20   # Scrape search results into a dataset.
  silverctl list-targets                                   # Which targets does the daemon track?
  silverctl catalog -t silver-coins                        # What has been scraped for a target?
  silverctl product https://www.silver.com/1-oz-eagle      # Last scraped state of one product.
`)

func (opts *rootOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "silverctl",
		Long:              rootLongHelp,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.PersistentPreRunE,
	}
	cmd.PersistentFlags().StringVarP(&opts.URL, "url", "u", "http://localhost:3030",
		fmt.Sprintf("base URL of the silverd API server; you can also set the environment variable %s", EnvVariableURL))
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 60*time.Second,
		"global command timeout; e.g. 30s, 10m or 1h")

	cmd.AddCommand(
		newVersionCommand(),
		newCompletionCommand(),
		newTargetList(opts).Command(),
		newCatalog(opts).Command(),
		newProduct(opts).Command(),
		newRefresh(opts).Command(),
		newScrape(opts).Command(),
	)

	return cmd
}

func (opts *rootOpts) PersistentPreRunE(cmd *cobra.Command, _ []string) error {
	url := os.Getenv(EnvVariableURL)
	if cmd.Flags().Changed("url") || url == "" {
		url = opts.URL
	}

	opts.API = client.New(&http.Client{Timeout: opts.Timeout}, transport.NewAPIRouter(), url)
	return nil
}
