package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"

	"github.com/zcamper/silver-scraper/pkg/daemon"
	transport "github.com/zcamper/silver-scraper/pkg/http"
	"github.com/zcamper/silver-scraper/pkg/http/client"
	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper/mock"
	"github.com/zcamper/silver-scraper/pkg/site"
)

func testServer(t *testing.T) (*httptest.Server, *client.Client, chan site.Target) {
	t.Helper()
	config := site.Default()
	priority := make(chan site.Target, 1)
	d := &daemon.Daemon{
		V:      "test",
		Config: config,
		Store: &mock.Store{
			Products: []product.Info{
				{
					URL:          product.MustParseRef("https://www.silver.com/1-oz-silver-eagle"),
					Name:         "1 oz Silver American Eagle",
					Price:        "$39.45",
					Availability: product.InStock,
				},
			},
		},
		Logger:          log.NewNopLogger(),
		PriorityRefresh: priority,
	}
	ts := httptest.NewServer(NewHandler(d, NewRouter()))
	t.Cleanup(ts.Close)
	c := client.New(http.DefaultClient, transport.NewAPIRouter(), ts.URL)
	return ts, c, priority
}

func TestPingAndVersion(t *testing.T) {
	_, c, _ := testServer(t)

	assert.NoError(t, c.Ping(context.Background()))

	v, err := c.Version(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "test", v)
}

func TestListTargets(t *testing.T) {
	_, c, _ := testServer(t)

	targets, err := c.ListTargets(context.Background())
	assert.NoError(t, err)
	assert.Len(t, targets, len(site.Default().Targets))
	assert.Equal(t, 1, targets[0].ProductCount)
}

func TestGetCatalog(t *testing.T) {
	_, c, _ := testServer(t)

	name := site.Default().Targets[0].Name
	catalog, err := c.Catalog(context.Background(), name)
	assert.NoError(t, err)
	assert.Len(t, catalog.Products, 1)

	_, err = c.Catalog(context.Background(), "no-such-target")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestGetProduct(t *testing.T) {
	_, c, _ := testServer(t)

	info, err := c.Product(context.Background(), "https://www.silver.com/1-oz-silver-eagle")
	assert.NoError(t, err)
	assert.Equal(t, "$39.45", info.Price)

	_, err = c.Product(context.Background(), "https://example.com/not-here")
	assert.Error(t, err)
}

func TestRefreshQueuesTarget(t *testing.T) {
	_, c, priority := testServer(t)

	name := site.Default().Targets[0].Name
	assert.NoError(t, c.Refresh(context.Background(), name))

	select {
	case queued := <-priority:
		assert.Equal(t, name, queued.Name)
	default:
		t.Error("refresh did not queue the target")
	}

	assert.Error(t, c.Refresh(context.Background(), "no-such-target"))
}

func TestNotFoundRoute(t *testing.T) {
	ts, _, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/v0/ancient")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
