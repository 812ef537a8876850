package scraper

// Monitoring middlewares for scraper interfaces

import (
	"context"
	"strconv"
	"time"

	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	silvermetrics "github.com/zcamper/silver-scraper/pkg/metrics"
	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/site"
)

const (
	RequestKindCatalog = "catalog"
	RequestKindProduct = "product"
)

var (
	storeDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: "silver",
		Subsystem: "store",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of product metadata requests (from cache), in seconds.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{silvermetrics.LabelSuccess})
	remoteDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: "silver",
		Subsystem: "scraper",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of remote site requests, in seconds.",
	}, []string{silvermetrics.LabelRequestKind, silvermetrics.LabelSuccess})
)

type instrumentedStore struct {
	next Store
}

func NewInstrumentedStore(next Store) Store {
	return &instrumentedStore{
		next: next,
	}
}

func (m *instrumentedStore) GetCatalogMetadata(t site.Target) (res product.CatalogMetadata, err error) {
	start := time.Now()
	res, err = m.next.GetCatalogMetadata(t)
	storeDuration.With(
		silvermetrics.LabelSuccess, strconv.FormatBool(err == nil),
	).Observe(time.Since(start).Seconds())
	return
}

func (m *instrumentedStore) GetProduct(ref product.Ref) (res product.Info, err error) {
	start := time.Now()
	res, err = m.next.GetProduct(ref)
	storeDuration.With(
		silvermetrics.LabelSuccess, strconv.FormatBool(err == nil),
	).Observe(time.Since(start).Seconds())
	return
}

type instrumentedFactory struct {
	next ClientFactory
}

// NewInstrumentedFactory wraps every client the factory hands out
// with request metrics.
func NewInstrumentedFactory(next ClientFactory) ClientFactory {
	return &instrumentedFactory{next: next}
}

func (f *instrumentedFactory) ClientFor(t site.Target) (Client, error) {
	c, err := f.next.ClientFor(t)
	if err != nil {
		return nil, err
	}
	return NewInstrumentedClient(c), nil
}

func (f *instrumentedFactory) Succeed(host string) {
	f.next.Succeed(host)
}

type instrumentedClient struct {
	next Client
}

func NewInstrumentedClient(next Client) Client {
	return &instrumentedClient{
		next: next,
	}
}

func (m *instrumentedClient) Catalog(ctx context.Context) (res []string, err error) {
	start := time.Now()
	res, err = m.next.Catalog(ctx)
	remoteDuration.With(
		silvermetrics.LabelRequestKind, RequestKindCatalog,
		silvermetrics.LabelSuccess, strconv.FormatBool(err == nil),
	).Observe(time.Since(start).Seconds())
	return
}

func (m *instrumentedClient) Product(ctx context.Context, ref product.Ref) (res ProductEntry, err error) {
	start := time.Now()
	res, err = m.next.Product(ctx, ref)
	remoteDuration.With(
		silvermetrics.LabelRequestKind, RequestKindProduct,
		silvermetrics.LabelSuccess, strconv.FormatBool(err == nil),
	).Observe(time.Since(start).Seconds())
	return
}
