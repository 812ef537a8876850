package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/zcamper/silver-scraper/pkg/product"
	"github.com/zcamper/silver-scraper/pkg/scraper/middleware"
	"github.com/zcamper/silver-scraper/pkg/site"
)

// The storefront sits behind bot protection, so the session presents
// itself as a desktop browser and keeps the cookies the site hands
// out during warm-up.
const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"
	acceptHeader     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	acceptLanguage   = "en-US,en;q=0.9"
)

// EnvProxy names the environment variable that overrides the
// configured forward proxy.
const EnvProxy = "SILVER_PROXY"

// Session is a warmed HTTP session against the site: one cookie jar,
// one rate-limited transport, browser headers on every request. All
// clients produced by a RemoteFactory share a session.
type Session struct {
	client  *http.Client
	base    *url.URL
	search  *SearchClient
	timeout time.Duration
	logger  log.Logger
}

// NewSession builds a session from the site profile. It doesn't touch
// the network; call Warm before scraping.
func NewSession(config site.Config, limiters *middleware.RateLimiters, logger log.Logger) (*Session, error) {
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing base URL %q", config.BaseURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	proxy := config.ProxyURL
	if env := os.Getenv(EnvProxy); env != "" {
		proxy = env
	}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing proxy URL %q", proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	var rt http.RoundTripper = &headerTransport{
		referer: config.BaseURL + "/",
		next:    transport,
	}
	if limiters != nil {
		rt = limiters.RoundTripper(rt)
	}

	s := &Session{
		client: &http.Client{
			Transport: rt,
			Jar:       jar,
		},
		base:    base,
		timeout: config.ClientTimeout.Duration(),
		logger:  logger,
	}
	s.search = &SearchClient{
		Endpoint: config.SearchEndpoint,
		SiteID:   config.SearchSpringSiteID,
		Client:   s.client,
		Timeout:  s.timeout,
		Logger:   logger,
	}
	return s, nil
}

// headerTransport decorates every request with the browser headers
// the site expects. The Referer points at the homepage, matching what
// the warm-up visit would have established.
type headerTransport struct {
	referer string
	next    http.RoundTripper
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", defaultUserAgent)
	}
	r.Header.Set("Accept", acceptHeader)
	r.Header.Set("Accept-Language", acceptLanguage)
	if r.Header.Get("Referer") == "" {
		r.Header.Set("Referer", t.referer)
	}
	return t.next.RoundTrip(r)
}

// Warm visits the homepage so the site sets its cookies. A non-200
// answer isn't fatal, but it's a strong hint that scraping will fail,
// so it gets logged.
func (s *Session) Warm(ctx context.Context) error {
	resp, err := s.get(ctx, s.base.String()+"/")
	if err != nil {
		return errors.Wrap(err, "homepage warm-up")
	}
	defer resp.Body.Close()
	cookies := len(s.client.Jar.Cookies(s.base))
	s.logger.Log("info", "homepage warm-up", "status", resp.StatusCode, "cookies", cookies)
	if resp.StatusCode != http.StatusOK {
		s.logger.Log("warning", "homepage returned non-200, scraping may fail", "status", resp.StatusCode)
	}
	return nil
}

func (s *Session) get(ctx context.Context, url string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	// The caller closes the body; tie the context to that.
	resp.Body = &cancelReadCloser{resp.Body, cancel}
	return resp, nil
}

type cancelReadCloser struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Read(p []byte) (int, error) { return c.body.Read(p) }
func (c *cancelReadCloser) Close() error {
	err := c.body.Close()
	c.cancel()
	return err
}

// ListingPage is one page of a category walk: the product tiles on
// it, and the URL of the next page if there is one.
type ListingPage struct {
	Products []product.Info
	Next     string
}

// url maps a canonical ref onto the session's base URL. Refs always
// stringify against the canonical site host, which is what we want in
// records; the base URL decides where the bytes actually come from.
func (s *Session) url(ref product.Ref) string {
	u := *s.base
	u.Path = ref.Path
	if len(ref.Query) > 0 {
		u.RawQuery = ref.Query.Encode()
	}
	return u.String()
}

// ListingPage fetches a category page and extracts its product grid.
func (s *Session) ListingPage(ctx context.Context, ref product.Ref) (ListingPage, error) {
	resp, err := s.get(ctx, s.url(ref))
	if err != nil {
		return ListingPage{}, errors.Wrapf(err, "fetching listing %s", ref)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ListingPage{}, fmt.Errorf("fetching listing %s: HTTP %d", ref, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ListingPage{}, errors.Wrapf(err, "parsing listing %s", ref)
	}
	return ListingPage{
		Products: listingProducts(doc, ref),
		Next:     nextPageURL(doc, ref),
	}, nil
}

// ProductPage fetches and extracts a single product page. A 404 is
// reported as an excluded entry, since retrying won't help; other
// non-200 statuses are errors.
func (s *Session) ProductPage(ctx context.Context, ref product.Ref) (ProductEntry, error) {
	resp, err := s.get(ctx, s.url(ref))
	if err != nil {
		return ProductEntry{}, errors.Wrapf(err, "fetching product %s", ref)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		entry := ProductEntry{}
		entry.ExcludedReason = "product page missing (HTTP 404)"
		return entry, nil
	case resp.StatusCode != http.StatusOK:
		return ProductEntry{}, fmt.Errorf("fetching product %s: HTTP %d", ref, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ProductEntry{}, errors.Wrapf(err, "parsing product %s", ref)
	}
	return productDetails(doc, ref), nil
}

// Search queries the SearchSpring API.
func (s *Session) Search(ctx context.Context, query string, page, perPage int) (SearchPage, error) {
	return s.search.Search(ctx, query, page, perPage)
}
