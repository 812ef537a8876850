package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/zcamper/silver-scraper/pkg/product"
)

// MaxResultsPerPage is the largest page the SearchSpring API serves.
const MaxResultsPerPage = 48

// SearchClient queries the SearchSpring search API the storefront
// uses for its product search.
type SearchClient struct {
	Endpoint string
	SiteID   string
	Client   *http.Client
	Timeout  time.Duration
	Logger   log.Logger
}

// SearchPage is one page of search results, with the total number of
// results the query matched.
type SearchPage struct {
	Products []product.Info
	Total    int
}

// Search runs one query page. An error answer from the API is logged
// and returned as an empty page, since search results going missing
// shouldn't abort a whole scrape.
func (c *SearchClient) Search(ctx context.Context, query string, page, perPage int) (SearchPage, error) {
	if perPage <= 0 || perPage > MaxResultsPerPage {
		perPage = MaxResultsPerPage
	}
	if page <= 0 {
		page = 1
	}

	params := url.Values{
		"siteId":         []string{c.SiteID},
		"q":              []string{query},
		"resultsPerPage": []string{strconv.Itoa(perPage)},
		"page":           []string{strconv.Itoa(page)},
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return SearchPage{}, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return SearchPage{}, errors.Wrapf(err, "searching for %q", query)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.Logger.Log("warning", "search API returned non-200", "status", resp.StatusCode, "query", query)
		return SearchPage{}, nil
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return SearchPage{}, errors.Wrapf(err, "decoding search response for %q", query)
	}

	result := SearchPage{Total: body.Pagination.TotalResults}
	for _, r := range body.Results {
		if info, ok := r.info(); ok {
			result.Products = append(result.Products, info)
		}
	}
	c.Logger.Log("info", "search API page", "query", query, "page", page,
		"total", result.Total, "got", len(result.Products))
	return result, nil
}

type searchResponse struct {
	Pagination struct {
		TotalResults int `json:"totalResults"`
	} `json:"pagination"`
	Results []searchResult `json:"results"`
}

// The result schema is loose: fields come and go by site, numbers
// arrive as strings, descriptions sometimes as arrays. Each field
// below keeps the fallback order of the feed.
type searchResult struct {
	URL              string       `json:"url"`
	ProductURL       string       `json:"product_url"`
	Name             string       `json:"name"`
	Title            string       `json:"title"`
	Price            flexNumber   `json:"price"`
	SalePrice        flexNumber   `json:"sale_price"`
	Thumbnail        string       `json:"thumbnailImageUrl"`
	ImageURL         string       `json:"imageUrl"`
	Image            string       `json:"image"`
	SKU              flexString   `json:"sku"`
	UID              flexString   `json:"uid"`
	Description      flexStrings  `json:"description"`
	ShortDescription flexStrings  `json:"short_description"`
	SSInStock        flexStock    `json:"ss_in_stock"`
	InStock          flexStock    `json:"in_stock"`
	Availability     flexStock    `json:"availability"`
}

func (r searchResult) info() (product.Info, bool) {
	rawURL := r.URL
	if rawURL == "" {
		rawURL = r.ProductURL
	}
	name := r.Name
	if name == "" {
		name = r.Title
	}
	if rawURL == "" || name == "" {
		return product.Info{}, false
	}
	if !strings.HasPrefix(rawURL, "http") {
		if !strings.HasPrefix(rawURL, "/") {
			rawURL = "/" + rawURL
		}
		rawURL = "https://" + product.BaseRef().Host + rawURL
	}
	ref, err := product.ParseRef(rawURL)
	if err != nil {
		return product.Info{}, false
	}

	info := product.Info{URL: ref, Name: name}

	price := r.Price
	if !price.ok {
		price = r.SalePrice
	}
	if price.ok {
		info.PriceNumeric = price.value
		info.Price = product.FormatPrice(price.value)
	}

	image := r.Thumbnail
	if image == "" {
		image = r.ImageURL
	}
	if image == "" {
		image = r.Image
	}
	if image != "" && !strings.HasPrefix(image, "http") {
		if !strings.HasPrefix(image, "/") {
			image = "/" + image
		}
		image = "https://" + product.BaseRef().Host + image
	}
	info.ImageURL = image

	info.SKU = string(r.SKU)
	if info.SKU == "" {
		info.SKU = string(r.UID)
	}

	desc := r.Description.first()
	if desc == "" {
		desc = r.ShortDescription.first()
	}
	if desc != "" {
		info.Description = product.TruncateDescription(stripHTML(desc))
	}

	info.Availability = product.InStock
	for _, stock := range []flexStock{r.SSInStock, r.InStock, r.Availability} {
		if stock.set {
			if !stock.inStock {
				info.Availability = product.OutOfStock
			}
			break
		}
	}

	return info, true
}

// stripHTML flattens description markup to text.
func stripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// flexNumber decodes a JSON number or a numeric string.
type flexNumber struct {
	value float64
	ok    bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		n.value, n.ok = value, true
	case string:
		if value == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil // not a price, ignore
		}
		n.value, n.ok = parsed, true
	}
	return nil
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		*s = flexString(value)
	case float64:
		*s = flexString(strconv.FormatFloat(value, 'f', -1, 64))
	}
	return nil
}

// flexStrings decodes a JSON string or an array of strings, keeping
// the first element.
type flexStrings string

func (s *flexStrings) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexStrings(str)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil && len(list) > 0 {
		*s = flexStrings(list[0])
	}
	return nil
}

func (s flexStrings) first() string {
	return string(s)
}

// flexStock decodes the various in-stock spellings: booleans, "0",
// "false", "no", "out".
type flexStock struct {
	set     bool
	inStock bool
}

func (s *flexStock) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case bool:
		s.set, s.inStock = true, value
	case string:
		if value == "" {
			return nil
		}
		s.set = true
		switch strings.ToLower(value) {
		case "0", "false", "no", "out":
			s.inStock = false
		default:
			s.inStock = true
		}
	}
	return nil
}
