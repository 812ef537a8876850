package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
)

const searchBody = `{
  "pagination": {"totalResults": 3},
  "results": [
    {
      "url": "/1-oz-silver-american-eagle/",
      "name": "1 oz Silver American Eagle",
      "price": 39.45,
      "thumbnailImageUrl": "/i/eagle-thumb.jpg",
      "sku": "SLV-ASE-1OZ",
      "description": "<p>The <b>official</b> bullion coin.</p>",
      "ss_in_stock": "1"
    },
    {
      "product_url": "https://www.silver.com/10-oz-silver-bar/",
      "title": "10 oz Silver Bar",
      "sale_price": "312.90",
      "imageUrl": "https://www.silver.com/i/bar.jpg",
      "uid": 104523,
      "description": ["First description", "Second description"],
      "in_stock": false
    },
    {
      "name": "No URL, dropped"
    }
  ]
}`

func newSearchClient(ts *httptest.Server) *SearchClient {
	return &SearchClient{
		Endpoint: ts.URL,
		SiteID:   "ey66qs",
		Client:   ts.Client(),
		Timeout:  5 * time.Second,
		Logger:   log.NewNopLogger(),
	}
}

func TestSearch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, searchBody)
	}))
	defer ts.Close()

	page, err := newSearchClient(ts).Search(context.Background(), "silver eagle", 1, 48)
	assert.NoError(t, err)

	assert.Contains(t, gotQuery, "siteId=ey66qs")
	assert.Contains(t, gotQuery, "q=silver+eagle")
	assert.Contains(t, gotQuery, "resultsPerPage=48")
	assert.Contains(t, gotQuery, "page=1")

	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Products, 2, "the result with no URL must be dropped")

	eagle := page.Products[0]
	assert.Equal(t, "https://www.silver.com/1-oz-silver-american-eagle", eagle.URL.String())
	assert.Equal(t, "1 oz Silver American Eagle", eagle.Name)
	assert.Equal(t, "$39.45", eagle.Price)
	assert.Equal(t, 39.45, eagle.PriceNumeric)
	assert.Equal(t, "https://www.silver.com/i/eagle-thumb.jpg", eagle.ImageURL)
	assert.Equal(t, "SLV-ASE-1OZ", eagle.SKU)
	assert.Equal(t, "The official bullion coin.", eagle.Description)
	assert.Equal(t, "In Stock", string(eagle.Availability))

	bar := page.Products[1]
	assert.Equal(t, "https://www.silver.com/10-oz-silver-bar", bar.URL.String())
	assert.Equal(t, "10 oz Silver Bar", bar.Name)
	assert.Equal(t, 312.90, bar.PriceNumeric, "sale_price is the fallback for price")
	assert.Equal(t, "104523", bar.SKU, "uid is the fallback for sku, numbers included")
	assert.Equal(t, "First description", bar.Description)
	assert.Equal(t, "Out of Stock", string(bar.Availability))
}

func TestSearchNon200IsEmptyNotFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	page, err := newSearchClient(ts).Search(context.Background(), "maple", 1, 48)
	assert.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Len(t, page.Products, 0)
}

func TestSearchClampsPageSize(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"pagination":{"totalResults":0},"results":[]}`)
	}))
	defer ts.Close()

	_, err := newSearchClient(ts).Search(context.Background(), "x", 0, 1000)
	assert.NoError(t, err)
	assert.Contains(t, gotQuery, "resultsPerPage=48")
	assert.Contains(t, gotQuery, "page=1")
}
