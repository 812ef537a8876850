package scraper

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper/middleware"
	"github.com/zcamper/silver-scraper/pkg/site"
)

// maxCatalogPages bounds a catalog walk, in case a broken pagination
// link loops back on itself.
const maxCatalogPages = 100

// Remote is a Client scraping one target through a shared session.
type Remote struct {
	session *Session
	target  site.Target
	allow   func(string) bool
}

// Catalog walks the target's pages and collects product URLs. For a
// query target it pages through the search API; for a listing target
// it follows the WooCommerce pagination.
func (r *Remote) Catalog(ctx context.Context) ([]string, error) {
	if r.target.Query != "" {
		return r.searchCatalog(ctx)
	}
	return r.listingCatalog(ctx)
}

func (r *Remote) searchCatalog(ctx context.Context) ([]string, error) {
	var urls []string
	seen := map[string]bool{}
	for page := 1; page <= maxCatalogPages; page++ {
		result, err := r.session.Search(ctx, r.target.Query, page, MaxResultsPerPage)
		if err != nil {
			return urls, err
		}
		if len(result.Products) == 0 {
			break
		}
		for _, info := range result.Products {
			u := info.URL.String()
			if seen[u] || !r.allow(u) {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func (r *Remote) listingCatalog(ctx context.Context) ([]string, error) {
	ref, err := product.ParseRef(r.target.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "target %q", r.target.Name)
	}

	var urls []string
	seen := map[string]bool{}
	visited := map[string]bool{}
	current := ref.String()

	for page := 1; current != "" && page <= maxCatalogPages; page++ {
		if visited[current] {
			break
		}
		visited[current] = true

		pageRef, err := product.ParseRef(current)
		if err != nil {
			return urls, err
		}
		listing, err := r.session.ListingPage(ctx, pageRef)
		if err != nil {
			return urls, err
		}
		for _, info := range listing.Products {
			u := info.URL.String()
			if seen[u] || !r.allow(u) {
				continue
			}
			if info.URL.Kind() != product.KindProduct {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
		}
		current = listing.Next
	}
	return urls, nil
}

// Product fetches one product page.
func (r *Remote) Product(ctx context.Context, ref product.Ref) (ProductEntry, error) {
	return r.session.ProductPage(ctx, ref)
}

// RemoteFactory supplies Remote clients sharing one warmed session
// and one set of rate limiters.
type RemoteFactory struct {
	session  *Session
	limiters *middleware.RateLimiters
	config   site.Config
	logger   log.Logger
}

// NewRemoteFactory builds the shared session and warms it.
func NewRemoteFactory(config site.Config, logger log.Logger) (*RemoteFactory, error) {
	limiters := &middleware.RateLimiters{
		RPS:    config.RPS,
		Burst:  config.Burst,
		Logger: logger,
	}
	session, err := NewSession(config, limiters, logger)
	if err != nil {
		return nil, err
	}
	if err := session.Warm(context.Background()); err != nil {
		// Warm-up failing is survivable; individual fetches will fail
		// or succeed on their own.
		logger.Log("warning", "session warm-up failed", "err", err)
	}
	return &RemoteFactory{
		session:  session,
		limiters: limiters,
		config:   config,
		logger:   logger,
	}, nil
}

// Session exposes the shared session, for callers (like the one-shot
// crawler) that fetch pages outside any configured target.
func (f *RemoteFactory) Session() *Session {
	return f.session
}

func (f *RemoteFactory) ClientFor(t site.Target) (Client, error) {
	if t.URL == "" && t.Query == "" {
		return nil, errors.Errorf("target %q has neither URL nor query", t.Name)
	}
	return &Remote{
		session: f.session,
		target:  t,
		allow:   f.config.AllowURL,
	}, nil
}

// Succeed relaxes the rate limit for a host after trouble-free use.
func (f *RemoteFactory) Succeed(host string) {
	f.limiters.Recover(host)
}

var _ ClientFactory = &RemoteFactory{}
