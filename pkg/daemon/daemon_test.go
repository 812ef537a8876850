package daemon

import (
	"context"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"

	silvererr "github.com/zcamper/silver-scraper/pkg/errors"
	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper"
	"github.com/zcamper/silver-scraper/pkg/scraper/mock"
	"github.com/zcamper/silver-scraper/pkg/site"
)

func testDaemon(store scraper.Store, priority chan site.Target) *Daemon {
	return &Daemon{
		V:               "test",
		Config:          site.Default(),
		Store:           store,
		Logger:          log.NewNopLogger(),
		PriorityRefresh: priority,
	}
}

func TestListTargetsNotYetWarmed(t *testing.T) {
	store := &mock.Store{Err: &silvererr.Error{
		Type: silvererr.Missing,
		Err:  assert.AnError,
	}}
	d := testDaemon(store, make(chan site.Target, 1))

	statuses, err := d.ListTargets(context.Background())
	assert.NoError(t, err)
	assert.Len(t, statuses, 1)
	assert.Equal(t, 0, statuses[0].ProductCount)
	assert.Equal(t, scraper.ErrNoProductData.Error(), statuses[0].Error)
}

func TestScrapingDisabled(t *testing.T) {
	d := testDaemon(scraper.ScrapeDisabledStore{}, nil)
	ctx := context.Background()

	// targets are still listed, with the reason product data is
	// unavailable
	statuses, err := d.ListTargets(ctx)
	assert.NoError(t, err)
	assert.Len(t, statuses, 1)
	assert.Equal(t, scraper.ErrScrapeDisabled.Error(), statuses[0].Error)

	_, err = d.Catalog(ctx, "silver-coins")
	assert.Equal(t, scraper.ErrScrapeDisabled, err)

	ref, err := product.ParseRef("https://www.silver.com/1-oz-silver-eagle")
	assert.NoError(t, err)
	_, err = d.Product(ctx, ref.String())
	assert.Equal(t, scraper.ErrScrapeDisabled, err)

	// with no warmer there is nothing to nudge
	err = d.Refresh(ctx, "silver-coins")
	assert.Equal(t, scraper.ErrScrapeDisabled, err)
}
