package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/go-kit/kit/log"
	"github.com/spf13/cobra"

	"github.com/zcamper/silver-scraper/pkg/crawl"
	"github.com/zcamper/silver-scraper/pkg/dataset"
	"github.com/zcamper/silver-scraper/pkg/scraper"
	"github.com/zcamper/silver-scraper/pkg/site"
)

type scrapeOpts struct {
	*rootOpts
	inputPath  string
	outputPath string
	configPath string
	search     string
	startURLs  []string
	maxItems   int
	quiet      bool
	verbose    bool
}

func newScrape(parent *rootOpts) *scrapeOpts {
	return &scrapeOpts{rootOpts: parent}
}

func (opts *scrapeOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run a one-shot scrape, without a daemon, and write the records to a dataset.",
		Example: makeExample(
			`silverctl scrape --search "Silver coin" --max-items 20`,
			`silverctl scrape --url https://www.silver.com/silver-coins/ -o coins.jsonl`,
			`silverctl scrape --input run.json --output -`,
		),
		RunE: opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.inputPath, "input", "i", "", `run input JSON file; "-" reads stdin`)
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "dataset.jsonl", `dataset file to append to; "-" writes to stdout`)
	cmd.Flags().StringVar(&opts.configPath, "config", "", "site configuration file; built-in defaults are used if empty")
	cmd.Flags().StringVar(&opts.search, "search", "", "search query to scrape")
	cmd.Flags().StringSliceVar(&opts.startURLs, "url", nil, "start URL to scrape; repeatable")
	cmd.Flags().IntVar(&opts.maxItems, "max-items", 0, fmt.Sprintf("stop after this many products (default %d)", crawl.DefaultMaxItems))
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "no progress bar")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "log each fetch")
	return cmd
}

func (opts *scrapeOpts) RunE(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return errorWantedNoArgs
	}

	input, err := opts.buildInput()
	if err != nil {
		return err
	}

	var config site.Config
	if opts.configPath != "" {
		config, err = site.Load(opts.configPath)
		if err != nil {
			return err
		}
	} else {
		config = site.Default()
	}

	logger := log.NewNopLogger()
	if opts.verbose {
		logger = log.With(log.NewLogfmtLogger(os.Stderr), "ts", log.DefaultTimestampUTC)
	}

	sink, err := opts.openSink()
	if err != nil {
		return err
	}
	defer sink.Close()

	factory, err := scraper.NewRemoteFactory(config, logger)
	if err != nil {
		return err
	}

	crawler := &crawl.Crawler{
		Session:  factory.Session(),
		Sink:     sink,
		Logger:   logger,
		MaxItems: input.MaxItems,
	}

	var bar *pb.ProgressBar
	if !opts.quiet {
		bar = pb.New(input.MaxItems)
		bar.SetTemplateString(`Scraping {{counters . }} {{bar . }} {{percent . }} {{etime . "%s"}}`)
		bar.SetWriter(os.Stderr)
		bar.Start()
		crawler.Progress = func(done int) { bar.SetCurrent(int64(done)) }
	}

	pushed, err := crawler.Run(context.Background(), input)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Scraped %d products\n", pushed)
	return nil
}

func (opts *scrapeOpts) buildInput() (crawl.Input, error) {
	var input crawl.Input
	switch opts.inputPath {
	case "":
	case "-":
		var err error
		input, err = crawl.ReadInput(os.Stdin)
		if err != nil {
			return crawl.Input{}, err
		}
	default:
		f, err := os.Open(opts.inputPath)
		if err != nil {
			return crawl.Input{}, err
		}
		defer f.Close()
		input, err = crawl.ReadInput(f)
		if err != nil {
			return crawl.Input{}, err
		}
	}

	// flags add to (and override) the input file
	for _, u := range opts.startURLs {
		input.StartURLs = append(input.StartURLs, crawl.StartURL{URL: u})
	}
	if opts.search != "" {
		input.Search = opts.search
	}
	if opts.maxItems > 0 {
		input.MaxItems = opts.maxItems
	}
	if input.MaxItems <= 0 {
		input.MaxItems = crawl.DefaultMaxItems
	}
	if len(input.StartURLs) == 0 && input.Search == "" {
		input.Search = crawl.DefaultSearch
	}
	return input, nil
}

func (opts *scrapeOpts) openSink() (dataset.Sink, error) {
	if opts.outputPath == "-" {
		return dataset.NewWriterSink(dataset.NopWriteCloser{Writer: os.Stdout}), nil
	}
	return dataset.NewFileSink(opts.outputPath)
}
