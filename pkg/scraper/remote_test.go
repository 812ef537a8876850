package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"

	"github.com/zcamper/silver-scraper/pkg/site"
)

func testRemote(t *testing.T, ts *httptest.Server, target site.Target, config site.Config) *Remote {
	t.Helper()
	config.BaseURL = ts.URL
	config.SearchEndpoint = ts.URL + "/search.json"
	s, err := NewSession(config, nil, log.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	return &Remote{session: s, target: target, allow: config.AllowURL}
}

func TestListingCatalog(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/silver-coins":
			fmt.Fprint(w, `<html><body><ul class="products">
				<li class="product"><a href="/coin-a/"><h2>Coin Alpha</h2></a></li>
				<li class="product"><a href="/silver-coins/page/9/"><h2>Not a product</h2></a></li>
				<li class="product"><a href="/proof-coin/"><h2>Proof Coin</h2></a></li>
			</ul><a class="next page-numbers" href="/silver-coins/page/2/">next</a></body></html>`)
		case "/silver-coins/page/2":
			// loops back to page 2; the walk must terminate anyway
			fmt.Fprint(w, `<html><body><ul class="products">
				<li class="product"><a href="/coin-b/"><h2>Coin Beta</h2></a></li>
				<li class="product"><a href="/coin-a/"><h2>Coin Alpha</h2></a></li>
			</ul><a class="next page-numbers" href="/silver-coins/page/2/">next</a></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	target := site.Target{Name: "silver-coins", URL: "https://www.silver.com/silver-coins/"}
	config := site.Default()
	config.ExcludeURLs = []string{"*proof*"}
	remote := testRemote(t, ts, target, config)

	urls, err := remote.Catalog(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.silver.com/coin-a",
		"https://www.silver.com/coin-b",
	}, urls)
}

func TestSearchCatalog(t *testing.T) {
	pages := map[string]string{
		"1": `{"pagination":{"totalResults":3},"results":[
			{"url":"/coin-a/","name":"Coin Alpha"},
			{"url":"/coin-b/","name":"Coin Beta"}]}`,
		"2": `{"pagination":{"totalResults":3},"results":[
			{"url":"/coin-c/","name":"Coin Gamma"},
			{"url":"/coin-a/","name":"Coin Alpha"}]}`,
		"3": `{"pagination":{"totalResults":3},"results":[]}`,
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pages[r.URL.Query().Get("page")])
	}))
	defer ts.Close()

	target := site.Target{Name: "coins", Query: "coin"}
	remote := testRemote(t, ts, target, site.Default())

	urls, err := remote.Catalog(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.silver.com/coin-a",
		"https://www.silver.com/coin-b",
		"https://www.silver.com/coin-c",
	}, urls)
}
