package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/site"
)

func testSession(t *testing.T, ts *httptest.Server) *Session {
	t.Helper()
	config := site.Default()
	config.BaseURL = ts.URL
	s, err := NewSession(config, nil, log.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestWarmSetsCookiesAndHeaders(t *testing.T) {
	var gotUA, gotReferer string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		fmt.Fprint(w, "<html></html>")
	}))
	defer ts.Close()

	s := testSession(t, ts)
	assert.NoError(t, s.Warm(context.Background()))

	assert.Contains(t, gotUA, "Chrome")
	assert.Equal(t, ts.URL+"/", gotReferer)

	// the cookie from warm-up rides along on later requests
	var gotCookie string
	ts.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}
		fmt.Fprint(w, "<html><body><h1>x</h1></body></html>")
	})
	_, err := s.ProductPage(context.Background(), product.MustParseRef("https://www.silver.com/1-oz-bar/"))
	assert.NoError(t, err)
	assert.Equal(t, "abc", gotCookie)
}

func TestProductPageStatuses(t *testing.T) {
	status := http.StatusOK
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, "<html><body><h1>1 oz Bar</h1></body></html>")
	}))
	defer ts.Close()

	s := testSession(t, ts)
	ref := product.MustParseRef("https://www.silver.com/1-oz-bar/")

	entry, err := s.ProductPage(context.Background(), ref)
	assert.NoError(t, err)
	assert.Equal(t, "1 oz Bar", entry.Name)
	assert.Equal(t, ref.String(), entry.URL.String())

	// 404 is a permanent condition: excluded, not an error
	status = http.StatusNotFound
	entry, err = s.ProductPage(context.Background(), ref)
	assert.NoError(t, err)
	assert.NotEqual(t, "", entry.ExcludedReason)

	// other failures are errors, mentioning the status for the
	// warmer's 429 handling
	status = http.StatusTooManyRequests
	_, err = s.ProductPage(context.Background(), ref)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "429")
	}
}

func TestListingPageWalks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/silver-coins":
			fmt.Fprint(w, `<html><body><ul class="products">
				<li class="product"><a href="/coin-a/"><h2>Coin Alpha</h2></a></li>
			</ul>
			<a class="next page-numbers" href="/silver-coins/page/2/">next</a></body></html>`)
		default:
			fmt.Fprint(w, `<html><body><ul class="products">
				<li class="product"><a href="/coin-b/"><h2>Coin Beta</h2></a></li>
			</ul></body></html>`)
		}
	}))
	defer ts.Close()

	s := testSession(t, ts)
	page, err := s.ListingPage(context.Background(), product.MustParseRef("https://www.silver.com/silver-coins/"))
	assert.NoError(t, err)
	assert.Len(t, page.Products, 1)
	assert.Equal(t, "https://www.silver.com/coin-a", page.Products[0].URL.String())
	assert.Equal(t, "https://www.silver.com/silver-coins/page/2", page.Next)

	page, err = s.ListingPage(context.Background(), product.MustParseRef(page.Next))
	assert.NoError(t, err)
	assert.Equal(t, "", page.Next)
	assert.Equal(t, "https://www.silver.com/coin-b", page.Products[0].URL.String())
}
