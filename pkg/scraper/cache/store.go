package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	silvererr "github.com/zcamper/silver-scraper/pkg/errors"
	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper"
	"github.com/zcamper/silver-scraper/pkg/site"
)

var (
	ErrNotCached = &silvererr.Error{
		Type: silvererr.Missing,
		Err:  errors.New("item not in cache"),
		Help: `Product not yet cached

It takes time to initially scrape all the products. Please wait.

If you have waited for a long time, check the daemon logs. Potential
reasons for the error are: no internet, no cache, error reaching the
site.
`,
	}
)

// Cache is a local store of scraped product metadata.
type Cache struct {
	Reader     Reader
	Decorators []Decorator
}

// Decorator is for decorating a Catalog before it is returned.
type Decorator interface {
	apply(*Catalog)
}

// StaleAfter is the maximum age of a product record before its stock
// state stops being trusted. Records scraped longer ago than this get
// their availability downgraded to Unknown; the price and the rest of
// the record are kept as the last known value.
type StaleAfter time.Duration

func (s StaleAfter) apply(c *Catalog) {
	cutoff := time.Now().Add(-time.Duration(s))
	for k, p := range c.Products {
		if p.LastScraped.IsZero() || p.LastScraped.Before(cutoff) {
			p.Availability = product.Unknown
			c.Products[k] = p
		}
	}
}

// GetCatalogMetadata returns the metadata for a catalog target (e.g.,
// the "silver-coins" category listing).
func (c *Cache) GetCatalogMetadata(t site.Target) (product.CatalogMetadata, error) {
	key := NewCatalogKey(product.BaseRef().Host, t)
	bytes, _, err := c.Reader.GetKey(key)
	if err != nil {
		return product.CatalogMetadata{}, err
	}
	var catalog Catalog
	if err = json.Unmarshal(bytes, &catalog); err != nil {
		return product.CatalogMetadata{}, err
	}

	// We only care about the error if we've never successfully
	// updated the result.
	if catalog.LastUpdate.IsZero() {
		if catalog.LastError != "" {
			return product.CatalogMetadata{}, fmt.Errorf("item not in cache, last error: %s", catalog.LastError)
		}
		return product.CatalogMetadata{}, ErrNotCached
	}

	// (Maybe) decorate the catalog.
	for _, d := range c.Decorators {
		d.apply(&catalog)
	}

	return catalog.CatalogMetadata, nil
}

// GetProduct gets the last scraped state of one product page.
func (c *Cache) GetProduct(ref product.Ref) (product.Info, error) {
	key := NewProductKey(ref)

	val, _, err := c.Reader.GetKey(key)
	if err != nil {
		return product.Info{}, err
	}
	var entry scraper.ProductEntry
	err = json.Unmarshal(val, &entry)
	if err != nil {
		return product.Info{}, err
	}
	if entry.ExcludedReason != "" {
		return product.Info{}, errors.New(entry.ExcludedReason)
	}
	return entry.Info, nil
}

// Catalog holds the last good information on a catalog target.
//
// Whenever we successfully fetch a set (partial or full) of product
// metadata, `LastUpdate`, `URLs` and `Products` shall each be assigned
// a value, and `LastError` will be cleared.
//
// If we cannot for any reason obtain the set of product metadata,
// `LastError` shall be assigned a value, and the other fields left
// alone.
//
// It's possible to have all fields populated: this means at some
// point it was successfully fetched, but since then, there's been an
// error. It's then up to the caller to decide what to do with the
// value (show the products, but also indicate there's a problem, for
// example).
type Catalog struct {
	product.CatalogMetadata
	LastError  string
	LastUpdate time.Time
}
