// Package daemon implements the API server backed by the product
// cache and the warmer.
package daemon

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/zcamper/silver-scraper/pkg/api"
	silvererr "github.com/zcamper/silver-scraper/pkg/errors"
	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper"
	"github.com/zcamper/silver-scraper/pkg/site"
)

// Daemon answers API queries from the cache, and nudges the warmer
// when asked to refresh a target out of turn.
type Daemon struct {
	V      string
	Config site.Config
	Store  scraper.Store
	Logger log.Logger

	// PriorityRefresh enqueues a target for warming ahead of the
	// regular rotation. It must not block indefinitely. A nil channel
	// means there is no warmer, i.e. scraping is disabled.
	PriorityRefresh chan site.Target
}

var _ api.Server = &Daemon{}

func (d *Daemon) Ping(ctx context.Context) error {
	return nil
}

func (d *Daemon) Version(ctx context.Context) (string, error) {
	return d.V, nil
}

func (d *Daemon) ListTargets(ctx context.Context) ([]api.TargetStatus, error) {
	statuses := []api.TargetStatus{}
	for _, t := range d.Config.Targets {
		status := api.TargetStatus{Target: t}
		metadata, err := d.Store.GetCatalogMetadata(t)
		switch {
		case err == nil:
			status.ProductCount = len(metadata.Products)
		case silvererr.IsMissing(err):
			// not warmed yet
			status.Error = scraper.ErrNoProductData.Error()
		case err == scraper.ErrScrapeDisabled:
			status.Error = err.Error()
		default:
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (d *Daemon) Catalog(ctx context.Context, target string) (product.CatalogMetadata, error) {
	t, ok := d.Config.FindTarget(target)
	if !ok {
		return product.CatalogMetadata{}, unknownTargetError(target)
	}
	return d.Store.GetCatalogMetadata(t)
}

func (d *Daemon) Product(ctx context.Context, url string) (product.Info, error) {
	ref, err := product.ParseRef(url)
	if err != nil {
		return product.Info{}, &silvererr.Error{
			Type: silvererr.User,
			Err:  err,
			Help: `The URL given is not a product page on the site.

Check that the URL is complete, and belongs to the site this daemon
scrapes.
`,
		}
	}
	return d.Store.GetProduct(ref)
}

func (d *Daemon) Refresh(ctx context.Context, target string) error {
	t, ok := d.Config.FindTarget(target)
	if !ok {
		return unknownTargetError(target)
	}
	if d.PriorityRefresh == nil {
		return scraper.ErrScrapeDisabled
	}
	select {
	case d.PriorityRefresh <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func unknownTargetError(name string) error {
	return &silvererr.Error{
		Type: silvererr.Missing,
		Err:  errors.Errorf("target %q is not configured", name),
		Help: `The target named is not in the daemon's configuration.

Use the targets list endpoint to see which targets the daemon scrapes,
or add the target to the site configuration file and restart the
daemon.
`,
	}
}
