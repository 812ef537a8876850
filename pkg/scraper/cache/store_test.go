package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zcamper/silver-scraper/pkg/product"
)

func TestCacheKeys(t *testing.T) {
	r := product.MustParseRef("https://www.silver.com/1-oz-silver-eagle")
	assert.Equal(t, "productv1|www.silver.com|/1-oz-silver-eagle", NewProductKey(r).Key())
	assert.Equal(t, "catalogv1|www.silver.com|silver-coins", NewCatalogKey("www.silver.com", target).Key())
}

func TestStaleAvailabilityDowngrade(t *testing.T) {
	fresh := product.Info{
		URL:          product.MustParseRef("https://www.silver.com/fresh-coin"),
		Price:        "$31.00",
		Availability: product.InStock,
		LastScraped:  time.Now().Add(-time.Hour),
	}
	stale := product.Info{
		URL:          product.MustParseRef("https://www.silver.com/stale-coin"),
		Price:        "$29.00",
		Availability: product.InStock,
		LastScraped:  time.Now().Add(-72 * time.Hour),
	}

	catalog := Catalog{
		LastUpdate: time.Now(),
		CatalogMetadata: product.CatalogMetadata{
			URLs: []string{fresh.URL.String(), stale.URL.String()},
			Products: map[string]product.Info{
				fresh.URL.String(): fresh,
				stale.URL.String(): stale,
			},
		},
	}
	c := &mem{}
	bytes, err := json.Marshal(catalog)
	assert.NoError(t, err)
	assert.NoError(t, c.SetKey(NewCatalogKey("www.silver.com", target), time.Now().Add(time.Hour), bytes))

	store := &Cache{Reader: c, Decorators: []Decorator{StaleAfter(48 * time.Hour)}}
	got, err := store.GetCatalogMetadata(target)
	assert.NoError(t, err)

	assert.Equal(t, product.InStock, got.Products[fresh.URL.String()].Availability)
	// the stale record keeps its last price but loses its stock claim
	assert.Equal(t, product.Unknown, got.Products[stale.URL.String()].Availability)
	assert.Equal(t, "$29.00", got.Products[stale.URL.String()].Price)
}
