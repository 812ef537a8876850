package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper"
	"github.com/zcamper/silver-scraper/pkg/site"
)

const askForNewTargetsInterval = time.Minute

// start off assuming a product will change about an hour from first
// seeing it
const initialRefresh = 1 * time.Hour

// never try to refresh a product faster than this
const minRefresh = 5 * time.Minute

// never set a refresh deadline longer than this
const maxRefresh = 24 * time.Hour

// excluded pages get a constant, fairly long refresh deadline; we
// don't expect them to grow a product overnight
const excludedRefresh = 24 * time.Hour

// the whole catalog record gets a long refresh; in general we write it
// back every time we go 'round the loop, so this is mainly for the
// effect of making garbage collection less likely.
const catalogRefresh = maxRefresh

func clipRefresh(r time.Duration) time.Duration {
	if r > maxRefresh {
		return maxRefresh
	}
	if r < minRefresh {
		return minRefresh
	}
	return r
}

// Warmer refreshes the information kept in the cache from the site.
type Warmer struct {
	clientFactory scraper.ClientFactory
	cache         Client
	clientTimeout time.Duration
	burst         int
	Trace         bool
	Priority      chan site.Target
	Notify        func()
}

// NewWarmer creates a cache warmer that (when Loop is invoked) will
// periodically refresh the values kept in the cache.
func NewWarmer(cf scraper.ClientFactory, cacheClient Client, clientTimeout time.Duration, burst int) (*Warmer, error) {
	if cf == nil || cacheClient == nil || burst <= 0 {
		return nil, errors.New("arguments must be non-nil (or > 0 in the case of burst)")
	}
	return &Warmer{
		clientFactory: cf,
		cache:         cacheClient,
		clientTimeout: clientTimeout,
		burst:         burst,
	}, nil
}

// Loop continuously gets the targets to populate the cache with, and
// populates the cache with them.
func (w *Warmer) Loop(logger log.Logger, stop <-chan struct{}, wg *sync.WaitGroup, targetsFunc func() []site.Target) {
	defer wg.Done()

	refresh := time.Tick(askForNewTargetsInterval)
	backlog := targetsFunc()

	// We have some fine control over how long to spend on each fetch
	// operation, since they are given a `context`. For now though,
	// just rattle through them one by one, however long they take.
	ctx := context.Background()

	priorityWarm := func(t site.Target) {
		logger.Log("priority", t.Name)
		w.warm(ctx, time.Now(), logger, t)
	}

	// This loop keeps a kind of priority queue, whereby targets coming
	// in on the `Priority` channel are looked up first. If there are
	// none, the configured targets are refreshed; but no more often
	// than once every `askForNewTargetsInterval`, since there is no
	// effective back-pressure on cache refreshes and it would spin
	// freely otherwise.
	for {
		select {
		case <-stop:
			logger.Log("stopping", "true")
			return
		case t := <-w.Priority:
			priorityWarm(t)
			continue
		default:
		}

		if len(backlog) > 0 {
			t := backlog[0]
			backlog = backlog[1:]
			w.warm(ctx, time.Now(), logger, t)
		} else {
			select {
			case <-stop:
				logger.Log("stopping", "true")
				return
			case <-refresh:
				backlog = targetsFunc()
			case t := <-w.Priority:
				priorityWarm(t)
			}
		}
	}
}

func (w *Warmer) warm(ctx context.Context, now time.Time, logger log.Logger, target site.Target) {
	errorLogger := log.With(logger, "target", target.Name)

	cacheManager, err := newCatalogCacheManager(now, target, w.clientFactory, w.clientTimeout, w.burst, w.Trace, errorLogger, w.cache)
	if err != nil {
		errorLogger.Log("err", err.Error())
		return
	}

	// This is what we're going to write back to the cache
	var catalog Catalog
	catalog, err = cacheManager.fetchCatalog()
	if err != nil && err != ErrNotCached {
		errorLogger.Log("err", errors.Wrap(err, "fetching previous result from cache"))
		return
	}
	// Save for comparison later
	oldProducts := catalog.Products

	// Now we have the previous result; everything after will be
	// attempting to refresh that value. Whatever happens, at the end
	// we'll write something back.
	defer func() {
		if err := cacheManager.storeCatalog(catalog); err != nil {
			errorLogger.Log("err", errors.Wrap(err, "writing result to cache"))
		}
	}()

	urls, err := cacheManager.getProductURLs(ctx)
	if err != nil {
		if !strings.Contains(err.Error(), context.DeadlineExceeded.Error()) && !strings.Contains(err.Error(), "net/http: request canceled") {
			errorLogger.Log("err", errors.Wrap(err, "walking catalog"))
			catalog.LastError = err.Error()
		}
		return
	}

	fetchResult, err := cacheManager.fetchProducts(urls)
	if err != nil {
		logger.Log("err", err, "url_count", len(urls))
		catalog.LastError = err.Error()
		return // abort and let the error be written
	}
	newProducts := fetchResult.productsFound

	var successCount int

	if len(fetchResult.productsToUpdate) > 0 {
		logger.Log("info", "refreshing catalog", "target", target.Name, "url_count", len(urls),
			"to_update", len(fetchResult.productsToUpdate),
			"of_which_refresh", fetchResult.productsToUpdateRefreshCount, "of_which_missing", fetchResult.productsToUpdateMissingCount)
		var products map[string]product.Info
		products, successCount = cacheManager.updateProducts(ctx, fetchResult.productsToUpdate)
		for k, v := range products {
			newProducts[k] = v
		}
		logger.Log("updated", target.Name, "successful", successCount, "attempted", len(fetchResult.productsToUpdate))
	}

	// We managed to fetch new metadata for everything we needed.
	// Ratchet the result forward.
	if successCount == len(fetchResult.productsToUpdate) {
		catalog = Catalog{
			LastUpdate: time.Now(),
			CatalogMetadata: product.CatalogMetadata{
				Products: newProducts,
				URLs:     urls,
			},
		}
		// If we got through all that without bumping into `HTTP 429
		// Too Many Requests` (or other problems), we can potentially
		// creep the rate limit up
		w.clientFactory.Succeed(product.BaseRef().Host)
	}

	if w.Notify != nil {
		cached := StringSet{}
		for u := range oldProducts {
			cached[u] = struct{}{}
		}

		// If there's more URLs than there used to be, there must be
		// at least one new product.
		if len(cached) < len(urls) {
			w.Notify()
			return
		}
		// Otherwise, check whether there are any entries in the
		// fetched URLs that aren't in the cached ones.
		urlSet := NewStringSet(urls)
		if !urlSet.Subset(cached) {
			w.Notify()
		}
	}
}

// StringSet is a set of strings.
type StringSet map[string]struct{}

// NewStringSet returns a StringSet containing exactly the strings
// given as arguments.
func NewStringSet(ss []string) StringSet {
	res := StringSet{}
	for _, s := range ss {
		res[s] = struct{}{}
	}
	return res
}

// Subset returns true if `s` is a subset of `t` (including the case
// of having the same members).
func (s StringSet) Subset(t StringSet) bool {
	for k := range s {
		if _, ok := t[k]; !ok {
			return false
		}
	}
	return true
}
