package mock

import (
	"context"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper"
	"github.com/zcamper/silver-scraper/pkg/site"
)

type Client struct {
	CatalogFn func() ([]string, error)
	ProductFn func(ref product.Ref) (scraper.ProductEntry, error)
}

func (m *Client) Catalog(context.Context) ([]string, error) {
	return m.CatalogFn()
}

func (m *Client) Product(ctx context.Context, ref product.Ref) (scraper.ProductEntry, error) {
	return m.ProductFn(ref)
}

var _ scraper.Client = &Client{}

type ClientFactory struct {
	Client scraper.Client
	Err    error

	Succeeded []string
}

func (m *ClientFactory) ClientFor(t site.Target) (scraper.Client, error) {
	return m.Client, m.Err
}

func (m *ClientFactory) Succeed(host string) {
	m.Succeeded = append(m.Succeeded, host)
}

var _ scraper.ClientFactory = &ClientFactory{}

type Store struct {
	Products []product.Info
	Err      error
}

func (m *Store) GetCatalogMetadata(t site.Target) (product.CatalogMetadata, error) {
	result := product.CatalogMetadata{
		Products: map[string]product.Info{},
	}
	for _, p := range m.Products {
		u := p.URL.String()
		result.URLs = append(result.URLs, u)
		result.Products[u] = p
	}
	return result, m.Err
}

func (m *Store) GetProduct(ref product.Ref) (product.Info, error) {
	for _, p := range m.Products {
		if p.URL.String() == ref.String() {
			return p, m.Err
		}
	}
	return product.Info{URL: ref}, m.Err
}

var _ scraper.Store = &Store{}
