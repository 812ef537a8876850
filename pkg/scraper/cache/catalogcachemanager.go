package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper"
	"github.com/zcamper/silver-scraper/pkg/site"
)

// a catalog walk pages through many listing or search pages, so it
// gets a much longer leash than a single product fetch
const catalogTimeout = 10 * time.Minute

type productToUpdate struct {
	ref                 product.Ref
	previousFingerprint string
	previousRefresh     time.Duration
}

// catalogCacheManager handles cache operations for one catalog target
type catalogCacheManager struct {
	now           time.Time
	target        site.Target
	client        scraper.Client
	clientTimeout time.Duration
	burst         int
	trace         bool
	logger        log.Logger
	cacheClient   Client
	sync.Mutex
}

func newCatalogCacheManager(now time.Time,
	target site.Target, clientFactory scraper.ClientFactory, clientTimeout time.Duration,
	burst int, trace bool, logger log.Logger, cacheClient Client) (*catalogCacheManager, error) {
	client, err := clientFactory.ClientFor(target)
	if err != nil {
		return nil, err
	}
	manager := &catalogCacheManager{
		now:           now,
		target:        target,
		client:        client,
		clientTimeout: clientTimeout,
		burst:         burst,
		trace:         trace,
		logger:        logger,
		cacheClient:   cacheClient,
	}
	return manager, nil
}

// fetchCatalog fetches the catalog record from the cache
func (c *catalogCacheManager) fetchCatalog() (Catalog, error) {
	var result Catalog
	key := NewCatalogKey(product.BaseRef().Host, c.target)
	bytes, _, err := c.cacheClient.GetKey(key)
	if err != nil {
		return Catalog{}, err
	}
	if err = json.Unmarshal(bytes, &result); err != nil {
		return Catalog{}, err
	}
	return result, nil
}

// getProductURLs walks the target's pages for product URLs
func (c *catalogCacheManager) getProductURLs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()
	urls, err := c.client.Catalog(ctx)
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("catalog timeout (%s) exceeded", catalogTimeout)
	}
	return urls, err
}

// storeCatalog writes the catalog record back to the cache
func (c *catalogCacheManager) storeCatalog(catalog Catalog) error {
	key := NewCatalogKey(product.BaseRef().Host, c.target)
	bytes, err := json.Marshal(catalog)
	if err != nil {
		return err
	}
	return c.cacheClient.SetKey(key, c.now.Add(catalogRefresh), bytes)
}

// fetchProductsResult is the result of fetching products from the cache
// invariant: len(productsToUpdate) == productsToUpdateRefreshCount + productsToUpdateMissingCount
type fetchProductsResult struct {
	productsFound                map[string]product.Info // products found in the cache
	productsToUpdate             []productToUpdate       // products which need to be updated
	productsToUpdateRefreshCount int                     // number of productsToUpdate whose cache entry expired
	productsToUpdateMissingCount int                     // number of productsToUpdate which are missing from the cache
}

// fetchProducts attempts to fetch the products at the provided URLs
// from the cache. It returns the products found, those which require
// updating and details about why they need to be updated.
func (c *catalogCacheManager) fetchProducts(urls []string) (fetchProductsResult, error) {
	products := map[string]product.Info{}

	var toUpdate []productToUpdate

	var missing, refresh int
	for _, u := range urls {
		ref, err := product.ParseRef(u)
		if err != nil {
			return fetchProductsResult{}, errors.Wrapf(err, "bad URL in catalog %q", c.target.Name)
		}

		// See if we have the product already cached
		key := NewProductKey(ref)
		bytes, deadline, err := c.cacheClient.GetKey(key)
		// If err, then we don't have it yet. Update.
		switch {
		case err != nil: // by and large these are cache misses, but any error shall count as "not found"
			if err != ErrNotCached {
				c.logger.Log("warning", "error from cache", "err", err, "url", ref)
			}
			missing++
			toUpdate = append(toUpdate, productToUpdate{ref: ref, previousRefresh: initialRefresh})
		case len(bytes) == 0:
			c.logger.Log("warning", "empty result from cache", "url", ref)
			missing++
			toUpdate = append(toUpdate, productToUpdate{ref: ref, previousRefresh: initialRefresh})
		default:
			var entry scraper.ProductEntry
			if err := json.Unmarshal(bytes, &entry); err == nil {
				if c.trace {
					c.logger.Log("trace", "found cached product", "url", ref, "last_scraped", entry.LastScraped.Format(time.RFC3339), "deadline", deadline.Format(time.RFC3339))
				}

				if entry.ExcludedReason == "" {
					products[ref.String()] = entry.Info
					if c.now.After(deadline) {
						previousRefresh := minRefresh
						lastScraped := entry.Info.LastScraped
						if !lastScraped.IsZero() {
							previousRefresh = deadline.Sub(lastScraped)
						}
						toUpdate = append(toUpdate, productToUpdate{ref: ref, previousRefresh: previousRefresh, previousFingerprint: entry.Info.Fingerprint()})
						refresh++
					}
				} else {
					if c.trace {
						c.logger.Log("trace", "excluded in cache", "url", ref, "reason", entry.ExcludedReason)
					}
					if c.now.After(deadline) {
						toUpdate = append(toUpdate, productToUpdate{ref: ref, previousRefresh: excludedRefresh})
						refresh++
					}
				}
			}
		}
	}

	result := fetchProductsResult{
		productsFound:                products,
		productsToUpdate:             toUpdate,
		productsToUpdateRefreshCount: refresh,
		productsToUpdateMissingCount: missing,
	}

	return result, nil
}

// updateProducts refreshes the cache entries for the products passed.
// It may not succeed for all of them. It returns the values stored in
// cache and the number of products it succeeded for.
func (c *catalogCacheManager) updateProducts(ctx context.Context, products []productToUpdate) (map[string]product.Info, int) {
	// The upper bound for concurrent fetches against a single host is
	// the burst, so limit the number of fetching goroutines to that.
	fetchers := make(chan struct{}, c.burst)
	awaitFetchers := &sync.WaitGroup{}

	ctxc, cancel := context.WithCancel(ctx)
	defer cancel()

	var successCount int
	var result = map[string]product.Info{}
	var warnAboutRateLimit sync.Once
updates:
	for _, up := range products {
		// to avoid race condition, when accessing it in the go routine
		upCopy := up
		select {
		case <-ctxc.Done():
			break updates
		case fetchers <- struct{}{}:
		}
		awaitFetchers.Add(1)
		go func() {
			defer func() { awaitFetchers.Done(); <-fetchers }()
			ctxcc, cancel := context.WithTimeout(ctxc, c.clientTimeout)
			defer cancel()
			entry, err := c.updateProduct(ctxcc, upCopy)
			if err != nil {
				if err, ok := errors.Cause(err).(net.Error); (ok && err.Timeout()) || ctxcc.Err() == context.DeadlineExceeded {
					// This was due to a context timeout, don't bother logging
					return
				}
				if strings.Contains(err.Error(), "429") {
					// abort the product fetching if we've been rate limited
					warnAboutRateLimit.Do(func() {
						c.logger.Log("warn", "aborting product fetching due to rate limiting, will try again later")
						cancel()
					})
					return
				}
				c.logger.Log("err", err, "url", upCopy.ref)
				return
			}
			c.Lock()
			successCount++
			if entry.ExcludedReason == "" {
				result[upCopy.ref.String()] = entry.Info
			}
			c.Unlock()
		}()
	}
	awaitFetchers.Wait()
	return result, successCount
}

func (c *catalogCacheManager) updateProduct(ctx context.Context, update productToUpdate) (scraper.ProductEntry, error) {
	ref := update.ref

	if c.trace {
		c.logger.Log("trace", "refreshing product", "url", ref, "previous_refresh", update.previousRefresh.String())
	}

	ctx, cancel := context.WithTimeout(ctx, c.clientTimeout)
	defer cancel()
	// Get the product from the site
	entry, err := c.client.Product(ctx, ref)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return scraper.ProductEntry{}, fmt.Errorf("client timeout (%s) exceeded", c.clientTimeout)
		}
		return scraper.ProductEntry{}, err
	}

	refresh := update.previousRefresh
	reason := ""
	switch {
	case entry.ExcludedReason != "":
		c.logger.Log("excluded", entry.ExcludedReason, "url", ref)
		refresh = excludedRefresh
		reason = "product is excluded"
	case update.previousFingerprint == "":
		entry.Info.LastScraped = c.now
		refresh = update.previousRefresh
		reason = "no prior cache entry for product"
	case entry.Info.Fingerprint() == update.previousFingerprint:
		entry.Info.LastScraped = c.now
		refresh = clipRefresh(refresh * 2)
		reason = "price and stock unchanged"
	default: // i.e., not excluded, but the price or stock state moved
		entry.Info.LastScraped = c.now
		refresh = clipRefresh(refresh / 2)
		reason = "price or stock changed"
	}

	if c.trace {
		c.logger.Log("trace", "caching product", "url", ref, "last_scraped", c.now.Format(time.RFC3339), "refresh", refresh.String(), "reason", reason)
	}

	key := NewProductKey(ref)
	// Write back to the cache
	val, err := json.Marshal(entry)
	if err != nil {
		return scraper.ProductEntry{}, err
	}
	err = c.cacheClient.SetKey(key, c.now.Add(refresh), val)
	if err != nil {
		return scraper.ProductEntry{}, err
	}
	return entry, nil
}
