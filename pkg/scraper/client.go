package scraper

import (
	"context"
	"encoding/json"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/site"
)

type Excluded struct {
	ExcludedReason string `json:",omitempty"`
}

// ProductEntry represents a result from looking up a product URL on
// the site. It's an either-or: either you get a product.Info, or you
// get a reason that the URL should be treated as unusable (e.g., the
// page exists but carries no product).
type ProductEntry struct {
	product.Info `json:",omitempty"`
	Excluded
}

// MarshalJSON does custom JSON marshalling for ProductEntry values. We
// need this because the struct embeds the product.Info type, which has
// its own custom marshaling, which would get used otherwise.
func (entry ProductEntry) MarshalJSON() ([]byte, error) {
	// We can only do it this way because it's explicitly an either-or.
	if entry.ExcludedReason != "" {
		return json.Marshal(entry.Excluded)
	}
	return json.Marshal(entry.Info)
}

// UnmarshalJSON does custom JSON unmarshalling for ProductEntry values.
func (entry *ProductEntry) UnmarshalJSON(bytes []byte) error {
	if err := json.Unmarshal(bytes, &entry.Info); err != nil {
		return err
	}
	if err := json.Unmarshal(bytes, &entry.Excluded); err != nil {
		return err
	}
	return nil
}

// Client scrapes one target (a category, or a search query). It is an
// interface so we can wrap it in instrumentation, write fake
// implementations, and so on.
type Client interface {
	// Catalog walks the target's result pages and returns the product
	// page URLs it found, canonicalised.
	Catalog(ctx context.Context) ([]string, error)
	// Product fetches and extracts a single product page.
	Product(ctx context.Context, ref product.Ref) (ProductEntry, error)
}

// ClientFactory supplies Client implementations for a given target,
// sharing a warmed site session. This is an interface so we can
// provide fake implementations.
type ClientFactory interface {
	ClientFor(site.Target) (Client, error)
	// Succeed tells the factory an operation against the host finished
	// without rate-limit trouble, so throttling can be relaxed.
	Succeed(host string)
}
