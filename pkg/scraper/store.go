package scraper

import (
	"errors"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/site"
)

var (
	ErrNoProductData  = errors.New("product data not available")
	ErrScrapeDisabled = errors.New("cannot perform operation, scraping is disabled")
)

// Store is a read-side store of scraped product metadata.
type Store interface {
	GetCatalogMetadata(site.Target) (product.CatalogMetadata, error)
	GetProduct(product.Ref) (product.Info, error)
}

// ScrapeDisabledStore is used when scraping is disabled.
type ScrapeDisabledStore struct{}

func (s ScrapeDisabledStore) GetCatalogMetadata(site.Target) (product.CatalogMetadata, error) {
	return product.CatalogMetadata{}, ErrScrapeDisabled
}

func (s ScrapeDisabledStore) GetProduct(product.Ref) (product.Info, error) {
	return product.Info{}, ErrScrapeDisabled
}
