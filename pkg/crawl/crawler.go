// Package crawl implements one-shot scraping runs: given some start
// URLs or a search query, it walks the site, scrapes each product it
// finds, and pushes the records to a dataset.
package crawl

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"

	"github.com/zcamper/silver-scraper/pkg/dataset"
	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper"
)

// a listing walk or search can page a long way; bound it in case a
// pagination link loops back on itself
const maxPages = 100

// Crawler drives one scraping run.
type Crawler struct {
	Session  *scraper.Session
	Sink     dataset.Sink
	Logger   log.Logger
	MaxItems int

	// Progress, if set, is called after every pushed record with the
	// number of records pushed so far.
	Progress func(done int)

	seen   map[string]bool
	pushed int
}

// Run works through the input until it runs out of pages or hits the
// item cap. It returns the number of records pushed.
func (c *Crawler) Run(ctx context.Context, input Input) (int, error) {
	input = withDefaults(input)
	c.seen = map[string]bool{}
	c.pushed = 0

	for _, start := range input.StartURLs {
		if c.full(input) {
			break
		}
		ref, err := product.ParseRef(start.URL)
		if err != nil {
			c.Logger.Log("warning", "skipping start URL", "url", start.URL, "err", err)
			continue
		}
		switch ref.Kind() {
		case product.KindProduct:
			c.scrapeProduct(ctx, input, ref, nil)
		case product.KindListing:
			if err := c.walkListing(ctx, input, ref); err != nil {
				return c.pushed, err
			}
		case product.KindSearch:
			query := ref.SearchQuery()
			if query == "" {
				query = input.Search
			}
			if query == "" {
				c.Logger.Log("warning", "search page URL has no query; skipping", "url", ref)
				continue
			}
			if err := c.runSearch(ctx, input, query); err != nil {
				return c.pushed, err
			}
		default:
			c.Logger.Log("warning", "start URL is not a product, listing or search page; skipping", "url", ref)
		}
		if err := ctx.Err(); err != nil {
			return c.pushed, err
		}
	}

	if input.Search != "" && !c.full(input) {
		if err := c.runSearch(ctx, input, input.Search); err != nil {
			return c.pushed, err
		}
	}

	return c.pushed, nil
}

func (c *Crawler) full(input Input) bool {
	return c.pushed >= input.MaxItems
}

// scrapeProduct fetches one product page and pushes the result. When
// the page cannot be fetched but we have data from a listing or the
// search API, that data is pushed instead of dropping the product.
func (c *Crawler) scrapeProduct(ctx context.Context, input Input, ref product.Ref, fallback *product.Info) {
	if c.full(input) {
		return
	}
	u := ref.String()
	if c.seen[u] {
		return
	}
	c.seen[u] = true

	entry, err := c.Session.ProductPage(ctx, ref)
	switch {
	case err != nil && fallback != nil:
		c.Logger.Log("warning", "product page fetch failed, keeping listing data", "url", ref, "err", err)
		c.push(*fallback)
		return
	case err != nil:
		c.Logger.Log("err", err, "url", ref)
		return
	case entry.ExcludedReason != "":
		c.Logger.Log("info", "skipping page", "url", ref, "reason", entry.ExcludedReason)
		return
	}
	c.push(entry.Info)
}

func (c *Crawler) push(info product.Info) {
	info.LastScraped = time.Now().UTC()
	if err := c.Sink.Push(info); err != nil {
		c.Logger.Log("err", err, "url", info.URL)
		return
	}
	c.pushed++
	if c.Progress != nil {
		c.Progress(c.pushed)
	}
}

func (c *Crawler) walkListing(ctx context.Context, input Input, ref product.Ref) error {
	visited := map[string]bool{}
	current := ref.String()

	for page := 1; current != "" && page <= maxPages && !c.full(input); page++ {
		if visited[current] {
			break
		}
		visited[current] = true

		pageRef, err := product.ParseRef(current)
		if err != nil {
			return err
		}
		listing, err := c.Session.ListingPage(ctx, pageRef)
		if err != nil {
			return err
		}
		for i := range listing.Products {
			if c.full(input) {
				break
			}
			info := listing.Products[i]
			if info.URL.Kind() != product.KindProduct {
				continue
			}
			c.scrapeProduct(ctx, input, info.URL, &info)
		}
		current = listing.Next
	}
	return nil
}

func (c *Crawler) runSearch(ctx context.Context, input Input, query string) error {
	for page := 1; page <= maxPages && !c.full(input); page++ {
		size := scraper.MaxResultsPerPage
		if remaining := input.MaxItems - c.pushed; remaining > 0 && remaining < size {
			size = remaining
		}
		result, err := c.Session.Search(ctx, query, page, size)
		if err != nil {
			return err
		}
		if len(result.Products) == 0 {
			return nil
		}
		for i := range result.Products {
			if c.full(input) {
				break
			}
			info := result.Products[i]
			c.scrapeProduct(ctx, input, info.URL, &info)
		}
	}
	return nil
}
