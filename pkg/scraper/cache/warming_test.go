package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper"
	"github.com/zcamper/silver-scraper/pkg/scraper/mock"
	"github.com/zcamper/silver-scraper/pkg/site"
)

type entry struct {
	b []byte
	d time.Time
}

type mem struct {
	kv map[string]entry
	mx sync.Mutex
}

var (
	ref    product.Ref
	target site.Target
)

func init() {
	ref, _ = product.ParseRef("https://www.silver.com/1-oz-silver-eagle")
	target = site.Target{Name: "silver-coins", Query: "silver coin"}
}

func (c *mem) SetKey(k Keyer, deadline time.Time, v []byte) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.kv == nil {
		c.kv = make(map[string]entry)
	}
	c.kv[k.Key()] = entry{v, deadline}
	return nil
}

func (c *mem) GetKey(k Keyer) ([]byte, time.Time, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.kv == nil {
		c.kv = make(map[string]entry)
	}

	if e, ok := c.kv[k.Key()]; ok {
		return e.b, e.d, nil
	}
	return nil, time.Time{}, ErrNotCached
}

// This effectively checks that the cache.Warmer and cache.Cache work
// together as intended: that is, if you ask the warmer to fetch
// information, the cache gets populated, and the Store implementation
// will see it.
func TestWarmThenQuery(t *testing.T) {
	price := "$39.45"
	warmer, cacheClient := setup(t, &price)
	logger := log.NewNopLogger()

	now := time.Now()
	warmer.warm(context.TODO(), now, logger, target)

	store := &Cache{Reader: cacheClient}
	catalog, err := store.GetCatalogMetadata(target)
	assert.NoError(t, err)

	// Otherwise, we should get what we put in ...
	assert.Len(t, catalog.URLs, 1)
	assert.Equal(t, ref.String(), catalog.URLs[0])

	info, err := store.GetProduct(ref)
	assert.NoError(t, err)
	assert.Equal(t, price, info.Price)
}

func TestWarmExcludedProduct(t *testing.T) {
	client := &mock.Client{
		CatalogFn: func() ([]string, error) {
			return []string{ref.String()}, nil
		},
		ProductFn: func(product.Ref) (scraper.ProductEntry, error) {
			entry := scraper.ProductEntry{}
			entry.ExcludedReason = "product page missing (HTTP 404)"
			return entry, nil
		},
	}
	factory := &mock.ClientFactory{Client: client}
	cacheClient := &mem{}
	warmer := &Warmer{clientFactory: factory, cache: cacheClient, clientTimeout: time.Minute, burst: 10}

	logger := log.NewNopLogger()
	warmer.warm(context.TODO(), time.Now(), logger, target)

	store := &Cache{Reader: cacheClient}
	catalog, err := store.GetCatalogMetadata(target)
	assert.NoError(t, err)
	// The URL is known, but it carries no product data
	assert.Len(t, catalog.URLs, 1)
	assert.Len(t, catalog.Products, 0)

	_, err = store.GetProduct(ref)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestWarmCatalogError(t *testing.T) {
	client := &mock.Client{
		CatalogFn: func() ([]string, error) {
			return nil, errors.New("HTTP 500 from search API")
		},
	}
	factory := &mock.ClientFactory{Client: client}
	cacheClient := &mem{}
	warmer := &Warmer{clientFactory: factory, cache: cacheClient, clientTimeout: time.Minute, burst: 10}

	logger := log.NewNopLogger()
	warmer.warm(context.TODO(), time.Now(), logger, target)

	// Never updated successfully, so the error shows through
	store := &Cache{Reader: cacheClient}
	_, err := store.GetCatalogMetadata(target)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestRefreshDeadline(t *testing.T) {
	price := "$39.45"
	warmer, cacheClient := setup(t, &price)
	logger := log.NewNopLogger()

	now0 := time.Now()
	warmer.warm(context.TODO(), now0, logger, target)

	// We should see that there's an entry for the product, and that
	// it's set to be refreshed
	k := NewProductKey(ref)
	_, deadline0, err := cacheClient.GetKey(k)
	assert.NoError(t, err)
	assert.True(t, deadline0.After(now0))

	// Fast-forward to after the refresh deadline; check that the
	// entry is given a longer deadline since nothing changed
	now1 := deadline0.Add(time.Minute)
	warmer.warm(context.TODO(), now1, logger, target)
	_, deadline1, err := cacheClient.GetKey(k)
	assert.NoError(t, err)
	assert.True(t, deadline1.After(now1))
	assert.True(t, deadline0.Sub(now0) < deadline1.Sub(now1), "%s < %s", deadline0.Sub(now0), deadline1.Sub(now1))

	// Fast-forward again, check that a _changed_ price results in a
	// shorter deadline
	price = "$41.10" // <-- the shop repriced the coin
	now2 := deadline1.Add(time.Minute)
	warmer.warm(context.TODO(), now2, logger, target)
	_, deadline2, err := cacheClient.GetKey(k)
	assert.NoError(t, err)
	assert.True(t, deadline1.Sub(now1) > deadline2.Sub(now2), "%s > %s", deadline1.Sub(now1), deadline2.Sub(now2))
}

func setup(t *testing.T, price *string) (*Warmer, Client) {
	client := &mock.Client{
		CatalogFn: func() ([]string, error) {
			return []string{ref.String()}, nil
		},
		ProductFn: func(r product.Ref) (scraper.ProductEntry, error) {
			if r.String() != ref.String() {
				t.Errorf("remote client was asked for %q instead of %q", r, ref)
			}
			numeric, _ := product.ParsePrice(*price)
			return scraper.ProductEntry{
				Info: product.Info{
					URL:          r,
					Name:         "1 oz Silver American Eagle",
					Price:        *price,
					PriceNumeric: numeric,
					Availability: product.InStock,
				},
			}, nil
		},
	}
	factory := &mock.ClientFactory{Client: client}
	c := &mem{}
	warmer := &Warmer{clientFactory: factory, cache: c, clientTimeout: time.Minute, burst: 10}
	return warmer, c
}
