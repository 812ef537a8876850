/*
This package implements a product metadata cache given a backing k-v
store.

The interface `Client` stands in for the k-v store (e.g., memcached,
in the subpackage); `Cache` implements scraper.Store given a
`Client`.

The `Warmer` is for continually refreshing the cache by scraping the
site's catalog targets.
*/
package cache
