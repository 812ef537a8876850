package product

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const (
	siteHost = "www.silver.com"

	bareSiteHost = "silver.com"
)

var (
	ErrInvalidRef   = errors.New("invalid product URL")
	ErrBlankRef     = errors.Wrap(ErrInvalidRef, "blank URL")
	ErrWrongSite    = errors.Wrap(ErrInvalidRef, "URL is not on silver.com")
	ErrBadScheme    = errors.Wrap(ErrInvalidRef, "URL scheme must be http or https")
	ErrMalformedRef = errors.Wrap(ErrInvalidRef, "URL could not be parsed")
)

// Kind classifies a site URL by the sort of page it points at, which
// determines how it gets scraped.
type Kind int

const (
	// KindOther is a page we have no use for (support pages, assets).
	KindOther Kind = iota
	// KindSearch is a site search results page; these are answered by
	// the SearchSpring API rather than fetched as HTML.
	KindSearch
	// KindListing is a category or shop page carrying a paginated grid
	// of product tiles.
	KindListing
	// KindProduct is a single product detail page.
	KindProduct
)

func (k Kind) String() string {
	switch k {
	case KindSearch:
		return "search"
	case KindListing:
		return "listing"
	case KindProduct:
		return "product"
	default:
		return "other"
	}
}

// Category path prefixes that mark a URL as a listing page. The shop
// nests everything else under a single path segment.
var topCategories = map[string]bool{
	"silver-bullion":    true,
	"gold-bullion":      true,
	"platinum-bullion":  true,
	"palladium-bullion": true,
	"silver-coins":      true,
	"gold-coins":        true,
	"silver-bars":       true,
	"gold-bars":         true,
	"silver-rounds":     true,
	"product-category":  true,
}

// Path segments that mark support pages we never scrape.
var skipSegments = map[string]bool{
	"about":      true,
	"contact":    true,
	"faq":        true,
	"help":       true,
	"blog":       true,
	"my-account": true,
	"cart":       true,
	"checkout":   true,
	"shipping":   true,
	"privacy":    true,
	"terms":      true,
	"wp-admin":   true,
	"wp-content": true,
}

// Ref identifies a page on the site. The host is canonicalised to
// www.silver.com, and the path never carries a trailing slash, so two
// refs to the same page compare equal.
//
// Examples (stringified):
//   - https://www.silver.com/1-oz-silver-american-eagle
//   - https://www.silver.com/silver-coins/page/2
//   - https://www.silver.com/?s=eagle&post_type=product
type Ref struct {
	Host  string
	Path  string
	Query url.Values
}

// ParseRef parses an absolute URL into a Ref. Only http(s) URLs on
// silver.com or www.silver.com are accepted; everything else is
// rejected so the crawler can't be pointed off-site.
func ParseRef(s string) (Ref, error) {
	var ref Ref
	if s == "" {
		return ref, errors.Wrapf(ErrBlankRef, "parsing %q", s)
	}
	u, err := url.Parse(s)
	if err != nil {
		return ref, errors.Wrapf(ErrMalformedRef, "parsing %q", s)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ref, errors.Wrapf(ErrBadScheme, "parsing %q", s)
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case siteHost, bareSiteHost:
	default:
		return ref, errors.Wrapf(ErrWrongSite, "parsing %q", s)
	}
	ref.Host = siteHost
	ref.Path = strings.TrimRight(u.EscapedPath(), "/")
	if ref.Path != "" && !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}
	ref.Query = u.Query()
	return ref, nil
}

// MustParseRef is ParseRef for statically-known URLs; it panics on
// error, and is meant for tests and defaults.
func MustParseRef(s string) Ref {
	ref, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// String returns the canonical URL for the ref.
func (r Ref) String() string {
	if r.Host == "" {
		return ""
	}
	u := url.URL{Scheme: "https", Host: r.Host, Path: r.Path}
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}
	return u.String()
}

// Slug returns the final path segment, which names the product on
// product pages.
func (r Ref) Slug() string {
	segments := r.segments()
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

func (r Ref) segments() []string {
	var out []string
	for _, s := range strings.Split(r.Path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SearchQuery returns the search term carried by a search URL, or ""
// when there is none. WordPress search uses `s`; `q` is accepted for
// pasted SearchSpring URLs.
func (r Ref) SearchQuery() string {
	if q := r.Query.Get("s"); q != "" {
		return q
	}
	return r.Query.Get("q")
}

// Kind classifies the ref. The order of checks matters: search beats
// listing (a search URL has an empty path), listing beats product, and
// support pages are never products.
func (r Ref) Kind() Kind {
	if r.Query.Get("s") != "" || r.Query.Get("q") != "" || strings.Contains(r.Path, "/search") {
		return KindSearch
	}
	segments := r.segments()
	if len(segments) == 0 {
		return KindListing
	}
	if topCategories[segments[0]] {
		return KindListing
	}
	for _, s := range segments {
		if s == "page" || s == "product-category" {
			return KindListing
		}
	}
	for _, s := range segments {
		if skipSegments[s] {
			return KindOther
		}
	}
	if len(segments) == 1 && !strings.Contains(segments[0], ".") {
		return KindProduct
	}
	return KindOther
}

// ResolveRef resolves a possibly-relative href found on a page against
// the page it was found on.
func ResolveRef(base Ref, href string) (Ref, error) {
	if href == "" {
		return Ref{}, errors.Wrap(ErrBlankRef, "resolving href")
	}
	baseURL, err := url.Parse(base.String())
	if err != nil {
		return Ref{}, errors.Wrapf(ErrMalformedRef, "resolving %q", href)
	}
	rel, err := url.Parse(href)
	if err != nil {
		return Ref{}, errors.Wrapf(ErrMalformedRef, "resolving %q", href)
	}
	return ParseRef(baseURL.ResolveReference(rel).String())
}

// BaseRef is the site root, used for session warm-up and as the
// resolution base when none better is known.
func BaseRef() Ref {
	return Ref{Host: siteHost}
}

// A Ref is serialized/deserialized as its canonical URL string.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Ref) UnmarshalJSON(data []byte) (err error) {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*r, err = ParseRef(str)
	return err
}

var _ fmt.Stringer = Ref{}
