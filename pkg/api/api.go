// Package api defines the daemon's API, as served over HTTP by
// pkg/http/daemon and consumed by pkg/http/client.
package api

import (
	"context"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/site"
)

// TargetStatus is what the daemon reports for one catalog target.
// Error is set when no product data can be reported for the target,
// e.g. before the first warm, or when scraping is disabled.
type TargetStatus struct {
	Target       site.Target `json:"target"`
	ProductCount int         `json:"productCount"`
	Error        string      `json:"error,omitempty"`
}

// Server is the interface a daemon implements.
type Server interface {
	Ping(ctx context.Context) error
	Version(ctx context.Context) (string, error)
	ListTargets(ctx context.Context) ([]TargetStatus, error)
	Catalog(ctx context.Context, target string) (product.CatalogMetadata, error)
	Product(ctx context.Context, url string) (product.Info, error)
	Refresh(ctx context.Context, target string) error
}
