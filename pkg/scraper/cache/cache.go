package cache

import (
	"strings"
	"time"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/site"
)

type Reader interface {
	// GetKey gets the value at a key, along with its refresh deadline
	GetKey(k Keyer) ([]byte, time.Time, error)
}

type Writer interface {
	// SetKey sets the value at a key, along with its refresh deadline
	SetKey(k Keyer, deadline time.Time, v []byte) error
}

type Client interface {
	Reader
	Writer
}

// An interface to provide the key under which to store the data. Keys
// carry the host so that entries from different sites never collide.
type Keyer interface {
	Key() string
}

type productKey struct {
	host, path string
}

func NewProductKey(ref product.Ref) Keyer {
	return &productKey{ref.Host, ref.Path}
}

func (k *productKey) Key() string {
	return strings.Join([]string{
		"productv1", // Bump the version number if the cache format changes
		k.host,
		k.path,
	}, "|")
}

type catalogKey struct {
	host, name string
}

func NewCatalogKey(host string, t site.Target) Keyer {
	return &catalogKey{host, t.Name}
}

func (k *catalogKey) Key() string {
	return strings.Join([]string{
		"catalogv1", // Bump the version number if the cache format changes
		k.host,
		k.name,
	}, "|")
}
